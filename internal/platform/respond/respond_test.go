// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/ctxutil"
	"github.com/projectflow/projectflow/internal/platform/respond"
)

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) respond.ErrorEnvelope {
	t.Helper()
	var envelope respond.ErrorEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

func TestError_AppErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.ValidationError("bad"), http.StatusBadRequest, apperr.CodeValidation},
		{"not_allowlisted", apperr.NotAllowlisted(), http.StatusBadRequest, apperr.CodeNotAllowlisted},
		{"invalid_credentials", apperr.InvalidCredentials(), http.StatusBadRequest, apperr.CodeInvalidCredentials},
		{"no_longer_allowed", apperr.NoLongerAllowed(), http.StatusForbidden, apperr.CodeNoLongerAllowed},
		{"unauthorized", apperr.Unauthorized("Session missing"), http.StatusUnauthorized, apperr.CodeUnauthorized},
		{"wrapped_not_found", fmt.Errorf("lookup_failed: %w", apperr.NotFound("Account")), http.StatusNotFound, apperr.CodeNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperr.CodeInternal},
		{"deadline", fmt.Errorf("query_failed: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, apperr.CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/", nil)

			respond.Error(recorder, request, tt.err)

			assert.Equal(t, tt.status, recorder.Code)
			assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))
			envelope := decodeEnvelope(t, recorder)
			assert.Equal(t, tt.code, envelope.Code)
			assert.NotEmpty(t, envelope.Error)
		})
	}
}

func TestError_DetailsOnlyWhenVerbose(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:5432: connection refused")

	// 1. Production: no details
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	respond.Error(recorder, request, apperr.Internal(cause))

	envelope := decodeEnvelope(t, recorder)
	assert.Nil(t, envelope.Details)
	assert.NotContains(t, recorder.Body.String(), "10.0.0.1")

	// 2. Development: cause is exposed
	recorder = httptest.NewRecorder()
	request = request.WithContext(ctxutil.WithVerboseErrors(request.Context(), true))
	respond.Error(recorder, request, apperr.Internal(cause))

	envelope = decodeEnvelope(t, recorder)
	require.NotNil(t, envelope.Details)
	assert.Equal(t, cause.Error(), envelope.Details.Cause)
}

func TestOK_WritesPayloadUnwrapped(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.OK(recorder, map[string]bool{"success": true})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"success":true}`, recorder.Body.String())
}
