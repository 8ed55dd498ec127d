// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/projectflow/projectflow/internal/mocks/users"
	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/sec"
	"github.com/projectflow/projectflow/internal/users/account"
	"github.com/projectflow/projectflow/internal/users/auth"
	"github.com/projectflow/projectflow/internal/users/role"
)

// fixture wires a Service to in-memory repositories.
type fixture struct {
	accounts *users.AccountRepository
	sessions *users.SessionRepository
	groups   *users.GroupRepository
	service  *auth.Service
	now      time.Time
}

func newFixture(t *testing.T, lists map[role.GroupKey][]string) *fixture {
	t.Helper()

	f := &fixture{
		accounts: users.NewAccountRepository(),
		sessions: users.NewSessionRepository(),
		groups:   users.NewGroupRepository(role.SeedGroups(lists)),
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.service = auth.NewService(auth.Options{
		Accounts:   f.accounts,
		Sessions:   f.sessions,
		Groups:     f.groups,
		SessionTTL: 12 * time.Hour,
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) assign(t *testing.T, username string, key *role.GroupKey) {
	t.Helper()
	_, err := f.groups.Assign(context.Background(), username, key)
	require.NoError(t, err)
}

func creds(username, password string) auth.Credentials {
	return auth.Credentials{Username: username, Password: password, UserAgent: "test"}
}

func requireCode(t *testing.T, err error, code string, status int) *apperr.AppError {
	t.Helper()
	require.Error(t, err)
	appError := apperr.As(err)
	require.NotNil(t, appError, "expected an AppError, got %v", err)
	assert.Equal(t, code, appError.Code)
	assert.Equal(t, status, appError.HTTPStatus)
	return appError
}

/*
TestSignupThenLogin covers the canonical flow for a read-only user.
*/
func TestSignupThenLogin(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	// 1. Signup with untidy input
	signup, err := f.service.Signup(ctx, creds("Alice ", "secret1"))
	require.NoError(t, err)
	assert.Equal(t, "alice", signup.Account.Username)
	assert.Equal(t, role.RoleProjectReadOnly, signup.Account.Role)
	assert.Equal(t, "AL", signup.Account.Avatar)
	assert.NotEmpty(t, signup.Token)
	assert.Equal(t, sec.HashToken(signup.Token), signup.Session.Hash)
	assert.Equal(t, f.now.Add(12*time.Hour), signup.Session.ExpiresAt)

	// 2. Stored hash round-trips
	stored, err := f.accounts.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, stored.HasPassword())
	assert.True(t, sec.CheckPasswordHash("secret1", *stored.PasswordHash))
	assert.False(t, sec.CheckPasswordHash("wrong", *stored.PasswordHash))

	// 3. Login
	login, err := f.service.Login(ctx, creds("alice", "secret1"))
	require.NoError(t, err)
	assert.Equal(t, role.RoleProjectReadOnly, login.Account.Role)
	assert.NotEqual(t, signup.Token, login.Token)
	assert.Equal(t, 2, f.sessions.CountFor(stored.ID))

	// 4. Wrong password
	_, err = f.service.Login(ctx, creds("alice", "wrong"))
	requireCode(t, err, apperr.CodeInvalidCredentials, http.StatusBadRequest)
}

/*
TestSignup_Rejections verifies the input and allowlist checks of signup.
*/
func TestSignup_Rejections(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{
		role.GroupRead:  {"alice"},
		role.GroupWrite: {"admin3-temp"},
	})
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		code     string
	}{
		{"legacy executor prefix", "admin3-temp", "secret1", apperr.CodeValidation},
		{"legacy prefix any case", " ADMIN3-Temp ", "secret1", apperr.CodeValidation},
		{"short password", "alice", "12345", apperr.CodeValidation},
		{"empty username", "  ", "secret1", apperr.CodeValidation},
		{"not allowlisted", "mallory", "secret1", apperr.CodeNotAllowlisted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Signup(ctx, creds(tt.username, tt.password))
			requireCode(t, err, tt.code, http.StatusBadRequest)
		})
	}

	assert.Equal(t, 0, f.sessions.Count())
}

func TestSignup_AlreadyConfigured(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	_, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	_, err = f.service.Signup(ctx, creds("alice", "another1"))
	requireCode(t, err, apperr.CodeConflict, http.StatusConflict)
}

/*
TestSignup_CompletesProvisionedAccount verifies that an existing password-less
account is completed instead of duplicated.
*/
func TestSignup_CompletesProvisionedAccount(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupWrite: {"eve"}})
	ctx := context.Background()

	groups, err := f.groups.Load(ctx)
	require.NoError(t, err)
	provisioned := account.New("eve", role.Resolve("eve", groups), "owner")
	f.accounts.Put(provisioned)

	result, err := f.service.Signup(ctx, creds("eve", "secret1"))
	require.NoError(t, err)
	assert.Equal(t, provisioned.ID, result.Account.ID)
	assert.Equal(t, role.RoleExecutor, result.Account.Role)
	assert.True(t, result.Account.IsExecutor)
}

/*
TestLogin_Ambiguity verifies that unknown users, password-less accounts and wrong
passwords are indistinguishable.
*/
func TestLogin_Ambiguity(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice", "bob"}})
	ctx := context.Background()

	_, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	groups, err := f.groups.Load(ctx)
	require.NoError(t, err)
	f.accounts.Put(account.New("bob", role.Resolve("bob", groups), "owner"))

	var messages []string
	for _, input := range []auth.Credentials{
		creds("nobody", "secret1"),
		creds("bob", "secret1"),
		creds("alice", "wrong-password"),
	} {
		_, err := f.service.Login(ctx, input)
		appError := requireCode(t, err, apperr.CodeInvalidCredentials, http.StatusBadRequest)
		messages = append(messages, appError.Message)
	}

	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])
}

func TestLogin_EmptyCredentials(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.Login(context.Background(), creds("", ""))
	requireCode(t, err, apperr.CodeValidation, http.StatusBadRequest)

	_, err = f.service.Login(context.Background(), creds("alice", ""))
	requireCode(t, err, apperr.CodeValidation, http.StatusBadRequest)
}

func TestLogin_NoLongerAllowed(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	_, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	f.assign(t, "alice", nil)

	_, err = f.service.Login(ctx, creds("alice", "secret1"))
	requireCode(t, err, apperr.CodeNoLongerAllowed, http.StatusForbidden)
}

func TestLogin_DisabledAccount(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	result, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)
	require.NoError(t, f.accounts.UpdateStatus(ctx, result.Account.ID, account.StatusDisabled, "owner"))

	_, err = f.service.Login(ctx, creds("alice", "secret1"))
	requireCode(t, err, apperr.CodeForbidden, http.StatusForbidden)
}

/*
TestLogin_ResyncsRole verifies that a role change is picked up at login.
*/
func TestLogin_ResyncsRole(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	_, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	administrator := role.GroupAdministrator
	f.assign(t, "alice", &administrator)

	result, err := f.service.Login(ctx, creds("alice", "secret1"))
	require.NoError(t, err)
	assert.Equal(t, role.RoleTaskEditor, result.Account.Role)
	assert.True(t, result.Account.Permissions.ManageTeamMembers)

	stored, err := f.accounts.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, role.RoleTaskEditor, stored.Role)
}

/*
TestResolveSession_DeauthorizationPropagates verifies that removing a username
from every group ends its session on the next check: first 403, then 401.
*/
func TestResolveSession_DeauthorizationPropagates(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	result, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	acc, sess, err := f.service.ResolveSession(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)
	assert.Equal(t, result.Session.Hash, sess.Hash)

	f.assign(t, "alice", nil)

	_, _, err = f.service.ResolveSession(ctx, result.Token)
	requireCode(t, err, apperr.CodeNoLongerAllowed, http.StatusForbidden)
	assert.Equal(t, 0, f.sessions.Count())

	_, _, err = f.service.ResolveSession(ctx, result.Token)
	appError := requireCode(t, err, apperr.CodeUnauthorized, http.StatusUnauthorized)
	assert.Equal(t, "Invalid session", appError.Message)
}

func TestResolveSession_Expired(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	result, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	f.now = f.now.Add(12 * time.Hour)

	_, _, err = f.service.ResolveSession(ctx, result.Token)
	appError := requireCode(t, err, apperr.CodeUnauthorized, http.StatusUnauthorized)
	assert.Equal(t, "Session expired", appError.Message)
	assert.Equal(t, 0, f.sessions.Count())
}

func TestResolveSession_AccountGone(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	result, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)
	require.NoError(t, f.accounts.Delete(ctx, result.Account.ID))

	_, _, err = f.service.ResolveSession(ctx, result.Token)
	appError := requireCode(t, err, apperr.CodeUnauthorized, http.StatusUnauthorized)
	assert.Equal(t, "Account not found", appError.Message)
	assert.Equal(t, 0, f.sessions.Count())
}

/*
TestResolveSession_GuessedToken verifies that an arbitrary token never resolves.
*/
func TestResolveSession_GuessedToken(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	result, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	for _, guess := range []string{"x", result.Session.Hash, result.Token[:len(result.Token)-1]} {
		_, _, err := f.service.ResolveSession(ctx, guess)
		requireCode(t, err, apperr.CodeUnauthorized, http.StatusUnauthorized)
	}

	_, _, err = f.service.ResolveSession(ctx, "")
	appError := requireCode(t, err, apperr.CodeUnauthorized, http.StatusUnauthorized)
	assert.Equal(t, "Session missing", appError.Message)
}

func TestResolveSession_TouchesSession(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	result, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	_, sess, err := f.service.ResolveSession(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, f.now, sess.LastUsedAt)

	// A failed touch is not fatal.
	f.sessions.Fail("Touch", fmt.Errorf("redis down"))
	_, _, err = f.service.ResolveSession(ctx, result.Token)
	assert.NoError(t, err)
}

/*
TestResolveSession_StoreTimeout verifies that a store timeout propagates as an
error instead of an authentication decision.
*/
func TestResolveSession_StoreTimeout(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	result, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	f.sessions.Fail("FindByHash", fmt.Errorf("query_failed: %w", context.DeadlineExceeded))

	_, _, err = f.service.ResolveSession(ctx, result.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, apperr.IsAppError(err))
	assert.Equal(t, 1, f.sessions.Count())
}

func TestLogout(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{role.GroupRead: {"alice"}})
	ctx := context.Background()

	result, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	f.service.Logout(ctx, result.Token)
	assert.Equal(t, 0, f.sessions.Count())

	// Already gone, empty token and failing store are all fine.
	f.service.Logout(ctx, result.Token)
	f.service.Logout(ctx, "")
	f.sessions.Fail("DeleteByHash", fmt.Errorf("redis down"))
	f.service.Logout(ctx, "anything")
}

/*
TestResetAccount covers reset followed by a fresh signup.
*/
func TestResetAccount(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{
		role.GroupOwner: {"olivia"},
		role.GroupRead:  {"alice"},
	})
	ctx := context.Background()

	_, err := f.service.Signup(ctx, creds("alice", "secret1"))
	require.NoError(t, err)

	message, err := f.service.ResetAccount(ctx, "olivia", " Alice")
	require.NoError(t, err)
	assert.Contains(t, message, "alice")
	assert.Equal(t, 0, f.sessions.Count())

	stored, err := f.accounts.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, stored.HasPassword())
	assert.Equal(t, "olivia", stored.UpdatedBy)

	_, err = f.service.Login(ctx, creds("alice", "secret1"))
	requireCode(t, err, apperr.CodeInvalidCredentials, http.StatusBadRequest)

	result, err := f.service.Signup(ctx, creds("alice", "newpass1"))
	require.NoError(t, err)
	assert.Equal(t, stored.ID, result.Account.ID)

	_, err = f.service.Login(ctx, creds("alice", "newpass1"))
	assert.NoError(t, err)
}

func TestResetAccount_Rejections(t *testing.T) {
	f := newFixture(t, map[role.GroupKey][]string{
		role.GroupRead:  {"alice", "carol"},
		role.GroupWrite: {"eve"},
	})
	ctx := context.Background()

	_, err := f.service.Signup(ctx, creds("eve", "secret1"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		code     string
	}{
		{"empty", "", apperr.CodeValidation},
		{"never signed up", "alice", apperr.CodeValidation},
		{"executor", "eve", apperr.CodeValidation},
		{"not allowlisted", "mallory", apperr.CodeNotAllowlisted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.ResetAccount(ctx, "olivia", tt.username)
			requireCode(t, err, tt.code, http.StatusBadRequest)
		})
	}
}
