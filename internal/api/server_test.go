// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/projectflow/projectflow/internal/api"
	"github.com/projectflow/projectflow/internal/mocks/users"
	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/config"
	"github.com/projectflow/projectflow/internal/testutil"
	"github.com/projectflow/projectflow/internal/users/access"
	"github.com/projectflow/projectflow/internal/users/auth"
	"github.com/projectflow/projectflow/internal/users/role"
)

type stubEnsurer struct {
	err   error
	calls int
}

func (s *stubEnsurer) Ensure(ctx context.Context) error {
	s.calls++
	return s.err
}

func newTestServer(t *testing.T, ensurer *stubEnsurer, state string) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	accounts := users.NewAccountRepository()
	sessions := users.NewSessionRepository()
	groups := users.NewGroupRepository(role.SeedGroups(map[role.GroupKey][]string{
		role.GroupOwner: {"olivia"},
	}))

	authService := auth.NewService(auth.Options{
		Accounts:   accounts,
		Sessions:   sessions,
		Groups:     groups,
		BcryptCost: bcrypt.MinCost,
	})
	authHandler := auth.NewHandler(authService, auth.NewCookiePolicy(false, 0))
	accessHandler := access.NewHandler(access.NewService(groups, accounts, sessions), authHandler.RequireSession())

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		BootstrapState: func() string { return state },
		CheckDatabase:  func(ctx context.Context) error { return nil },
	}, testutil.Logger())

	cfg := &config.Config{ServerPort: "0", Environment: "development"}
	server := api.NewServer(ctx, cfg, testutil.Logger(), ensurer, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Access:    accessHandler,
	})
	return server.Handler()
}

func do(handler http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.RemoteAddr = "192.0.2.1:1234"
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestServer_HealthRoutesSkipBootstrapGate(t *testing.T) {
	ensurer := &stubEnsurer{err: errors.New("connection refused")}
	handler := newTestServer(t, ensurer, "failed")

	assert.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/health", "").Code)

	ready := do(handler, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(ready.Body.Bytes(), &body))
	assert.Equal(t, "failed", body["bootstrap"])

	assert.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/metrics", "").Code)
	assert.Zero(t, ensurer.calls)
}

func TestServer_AuthRoutesWaitForBootstrap(t *testing.T) {
	ensurer := &stubEnsurer{err: errors.New("connection refused")}
	handler := newTestServer(t, ensurer, "failed")

	recorder := do(handler, http.MethodPost, "/auth/login", `{"username":"olivia","password":"secret1"}`)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), apperr.CodeBootstrapFailed)
	assert.Equal(t, 1, ensurer.calls)

	// Each request retries initialization.
	do(handler, http.MethodGet, "/auth/roles/", "")
	assert.Equal(t, 2, ensurer.calls)
}

func TestServer_EndToEnd(t *testing.T) {
	handler := newTestServer(t, &stubEnsurer{}, "ready")

	ready := do(handler, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, ready.Code)

	signup := do(handler, http.MethodPost, "/auth/signup", `{"username":"olivia","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, signup.Code, signup.Body.String())

	var cookie *http.Cookie
	for _, c := range signup.Result().Cookies() {
		if c.Value != "" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	assert.Equal(t, http.StatusOK, do(handler, http.MethodGet, "/auth/me", "", cookie).Code)

	assigned := do(handler, http.MethodPost, "/auth/roles/assign", `{"username":"bob","role":"read"}`, cookie)
	require.Equal(t, http.StatusOK, assigned.Code, assigned.Body.String())
	assert.Contains(t, assigned.Body.String(), `"read":["bob"]`)

	assert.Equal(t, http.StatusUnauthorized, do(handler, http.MethodGet, "/auth/executors/", "").Code)
	assert.Equal(t, http.StatusNotFound, do(handler, http.MethodGet, "/nowhere", "").Code)
}
