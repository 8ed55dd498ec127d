// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements session-based authentication for ProjectFlow.

It handles signup and login against the access group allowlist, password hashing,
the session lifecycle and the session cookie.

Architecture:

  - Service: Orchestrates signup, login, logout, session resolution and resets.
  - CookiePolicy: Issues, reads and clears the session cookie.
  - Handler: The /auth HTTP endpoints.

Every signup, login and session resolution re-syncs the account's role fields
from the current access groups, so a role change or a removal from the allowlist
takes effect on the next request rather than at session expiry.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/constants"
	"github.com/projectflow/projectflow/internal/platform/ctxutil"
	"github.com/projectflow/projectflow/internal/platform/metrics"
	"github.com/projectflow/projectflow/internal/platform/sec"
	"github.com/projectflow/projectflow/internal/platform/validate"
	"github.com/projectflow/projectflow/internal/users/account"
	"github.com/projectflow/projectflow/internal/users/role"
	"github.com/projectflow/projectflow/internal/users/session"
)

// # Contracts & Types

// GroupLoader provides the current access group snapshot.
type GroupLoader interface {
	Load(ctx context.Context) (role.Groups, error)
}

// Options holds the dependencies of [Service].
type Options struct {
	Accounts account.Repository
	Sessions session.Repository
	Groups   GroupLoader

	// SessionTTL defaults to 12h.
	SessionTTL time.Duration

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any change to hashing, allowlist checks
// or session handling must be reviewed with the error taxonomy in mind: unknown
// user, password-less account and wrong password must stay indistinguishable.
type Service struct {
	accountRepository account.Repository
	sessionRepository session.Repository
	groupLoader       GroupLoader
	sessionTTL        time.Duration
	bcryptCost        int
	now               func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(options Options) *Service {
	service := &Service{
		accountRepository: options.Accounts,
		sessionRepository: options.Sessions,
		groupLoader:       options.Groups,
		sessionTTL:        options.SessionTTL,
		bcryptCost:        options.BcryptCost,
		now:               options.Now,
	}

	if service.sessionTTL <= 0 {
		service.sessionTTL = constants.DefaultSessionTTL
	}
	if service.now == nil {
		service.now = time.Now
	}
	return service
}

// Credentials is the input of signup and login.
type Credentials struct {
	Username  string
	Password  string
	UserAgent string
}

// Result is a successful signup or login.
type Result struct {
	Account *account.Account
	Session *session.Session

	// Token is the raw session token. It goes into the cookie and nowhere else.
	Token string
}

// # Signup Flow

/*
Signup sets the password of an allowlisted username and opens a session.

Description: An existing account without a password (provisioned executor, or
after a reset) is completed in place instead of duplicated. An account that
already has a password is rejected as already configured.

Parameters:
  - context: context.Context
  - input: Credentials

Returns:
  - *Result: The account and its new session
  - error: VALIDATION_ERROR, NOT_ALLOWLISTED, CONFLICT, FORBIDDEN or storage errors
*/
func (service *Service) Signup(context context.Context, input Credentials) (result *Result, err error) {
	defer func() { metrics.RecordAuth("signup", outcomeOf(err)) }()

	// ── 1. Input Validation ───────────────────────────────────────────────
	username := role.Normalize(input.Username)

	validator := &validate.Validator{}
	validator.Required(constants.FieldUsername, username).
		Custom(constants.FieldUsername, role.IsLegacyExecutor(username), "This username format is no longer accepted").
		MinLen(constants.FieldPassword, input.Password, constants.MinPasswordLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Allowlist ──────────────────────────────────────────────────────
	groups, err := service.groupLoader.Load(context)
	if err != nil {
		return nil, fmt.Errorf("auth_service_load_groups_failed: %w", err)
	}

	profile := role.Resolve(username, groups)
	if profile == nil {
		return nil, apperr.NotAllowlisted()
	}

	// ── 3. Existing Account ───────────────────────────────────────────────
	acc, err := service.accountRepository.FindByUsername(context, username)
	switch {
	case err == nil:
		if err := service.syncProfile(context, acc, profile, username); err != nil {
			return nil, err
		}
		if acc.HasPassword() {
			return nil, apperr.Conflict("This account is already configured, please log in")
		}
		if !acc.IsActive() {
			return nil, apperr.Forbidden("Account disabled")
		}
	case apperr.HasCode(err, apperr.CodeNotFound):
		acc = nil
	default:
		return nil, fmt.Errorf("auth_service_find_account_failed: %w", err)
	}

	// ── 4. Password Hashing ───────────────────────────────────────────────
	hashedPassword, err := sec.HashPassword(input.Password, service.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 5. Persistence ────────────────────────────────────────────────────
	if acc == nil {
		acc = account.New(username, profile, username)
		acc.PasswordHash = &hashedPassword

		if err := service.accountRepository.Create(context, acc); err != nil {
			if apperr.HasCode(err, apperr.CodeConflict) {
				return nil, apperr.Conflict("This account is already configured, please log in")
			}
			return nil, fmt.Errorf("auth_service_create_account_failed: %w", err)
		}
	} else {
		if err := service.accountRepository.UpdatePassword(context, acc.ID, &hashedPassword, username); err != nil {
			return nil, fmt.Errorf("auth_service_set_password_failed: %w", err)
		}
		acc.PasswordHash = &hashedPassword
		acc.UpdatedBy = username
	}

	// ── 6. Session ────────────────────────────────────────────────────────
	sess, token, err := service.openSession(context, acc, input.UserAgent)
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(context).InfoContext(context, "signup_succeeded",
		slog.String("username", username),
		slog.String("role", string(acc.Role)),
	)

	return &Result{Account: acc, Session: sess, Token: token}, nil
}

// # Login Flow

/*
Login verifies a username and password and opens a session.

Description: Unknown usernames, password-less accounts and wrong passwords all
yield the same INVALID_CREDENTIALS error, and the first two still spend one bcrypt
comparison so response time does not tell them apart. A username removed from the
allowlist yields NO_LONGER_ALLOWED.

Parameters:
  - context: context.Context
  - input: Credentials

Returns:
  - *Result: The account and its new session
  - error: VALIDATION_ERROR, INVALID_CREDENTIALS, NO_LONGER_ALLOWED, FORBIDDEN or storage errors
*/
func (service *Service) Login(context context.Context, input Credentials) (result *Result, err error) {
	defer func() { metrics.RecordAuth("login", outcomeOf(err)) }()

	username := role.Normalize(input.Username)
	if username == "" || input.Password == "" {
		return nil, apperr.ValidationError("Username and password are required")
	}
	if role.IsLegacyExecutor(username) {
		return nil, validate.RequiredError(constants.FieldUsername, "This username format is no longer accepted")
	}

	// ── 1. Credential Lookup ──────────────────────────────────────────────
	acc, err := service.accountRepository.FindByUsername(context, username)
	if err != nil {
		if !apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, fmt.Errorf("auth_service_find_account_failed: %w", err)
		}
		sec.BurnPasswordCheck(input.Password, service.bcryptCost)
		return nil, apperr.InvalidCredentials()
	}

	if !acc.HasPassword() {
		sec.BurnPasswordCheck(input.Password, service.bcryptCost)
		return nil, apperr.InvalidCredentials()
	}

	// ── 2. Allowlist Re-check ─────────────────────────────────────────────
	groups, err := service.groupLoader.Load(context)
	if err != nil {
		return nil, fmt.Errorf("auth_service_load_groups_failed: %w", err)
	}

	profile := role.Resolve(username, groups)
	if profile == nil {
		return nil, apperr.NoLongerAllowed()
	}

	if err := service.syncProfile(context, acc, profile, acc.UpdatedBy); err != nil {
		return nil, err
	}

	if !acc.IsActive() {
		return nil, apperr.Forbidden("Account disabled")
	}

	// ── 3. Password Verification ──────────────────────────────────────────
	if !sec.CheckPasswordHash(input.Password, *acc.PasswordHash) {
		ctxutil.GetLogger(context).WarnContext(context, "login_rejected",
			slog.String("username", username),
			slog.String("reason", apperr.CodeInvalidCredentials),
		)
		return nil, apperr.InvalidCredentials()
	}

	// ── 4. Session ────────────────────────────────────────────────────────
	sess, token, err := service.openSession(context, acc, input.UserAgent)
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(context).InfoContext(context, "login_succeeded",
		slog.String("username", username),
		slog.String("role", string(acc.Role)),
	)

	return &Result{Account: acc, Session: sess, Token: token}, nil
}

// # Session Lifecycle

// Logout deletes the session of rawToken. It never fails: an unknown or already
// deleted session is fine and store errors are only logged.
func (service *Service) Logout(context context.Context, rawToken string) {
	metrics.RecordAuth("logout", "ok")
	if rawToken == "" {
		return
	}
	service.dropSession(context, sec.HashToken(rawToken))
}

/*
ResolveSession turns a raw session token into the account behind it.

Description: The token is hashed and looked up by exact match. Expired sessions
are deleted. The account is then re-checked through [Service.Profile], and the
session's last-used time is refreshed on a best-effort basis.

Parameters:
  - context: context.Context
  - rawToken: string

Returns:
  - *account.Account: The re-synced account
  - *session.Session: The live session
  - error: UNAUTHORIZED, NO_LONGER_ALLOWED, FORBIDDEN or storage errors
*/
func (service *Service) ResolveSession(context context.Context, rawToken string) (acc *account.Account, sess *session.Session, err error) {
	defer func() { metrics.RecordAuth("resolve", outcomeOf(err)) }()

	if rawToken == "" {
		return nil, nil, apperr.Unauthorized("Session missing")
	}

	// ── 1. Exact-match Lookup ─────────────────────────────────────────────
	hash := sec.HashToken(rawToken)

	sess, err = service.sessionRepository.FindByHash(context, hash)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, nil, apperr.Unauthorized("Invalid session")
		}
		return nil, nil, fmt.Errorf("auth_service_find_session_failed: %w", err)
	}

	// ── 2. Expiry ─────────────────────────────────────────────────────────
	now := service.now()
	if sess.IsExpired(now) {
		service.dropSession(context, hash)
		return nil, nil, apperr.Unauthorized("Session expired")
	}

	// ── 3. Account Re-check ───────────────────────────────────────────────
	acc, err = service.Profile(context, sess.AccountID, hash)
	if err != nil {
		return nil, nil, err
	}

	// ── 4. Activity ───────────────────────────────────────────────────────
	if err := service.sessionRepository.Touch(context, hash, now); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "session_touch_failed", slog.Any("error", err))
	} else {
		sess.LastUsedAt = now
	}

	return acc, sess, nil
}

/*
Profile reloads an account and re-checks its allowlist membership.

Description: The account and the group snapshot are loaded concurrently. When the
account is gone, removed from the allowlist or disabled, the session identified by
sessionHash is deleted, so deauthorization takes effect immediately.

Parameters:
  - context: context.Context
  - accountID: string
  - sessionHash: string

Returns:
  - *account.Account: The re-synced account
  - error: UNAUTHORIZED, NO_LONGER_ALLOWED, FORBIDDEN or storage errors
*/
func (service *Service) Profile(context context.Context, accountID, sessionHash string) (*account.Account, error) {
	var (
		acc    *account.Account
		groups role.Groups
	)

	loaders, loadCtx := errgroup.WithContext(context)
	loaders.Go(func() error {
		found, err := service.accountRepository.FindByID(loadCtx, accountID)
		acc = found
		return err
	})
	loaders.Go(func() error {
		loaded, err := service.groupLoader.Load(loadCtx)
		groups = loaded
		return err
	})

	if err := loaders.Wait(); err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			service.dropSession(context, sessionHash)
			return nil, apperr.Unauthorized("Account not found")
		}
		return nil, fmt.Errorf("auth_service_load_profile_failed: %w", err)
	}

	profile := role.Resolve(acc.Username, groups)
	if profile == nil {
		service.dropSession(context, sessionHash)
		ctxutil.GetLogger(context).WarnContext(context, "session_deauthorized",
			slog.String("username", acc.Username),
		)
		return nil, apperr.NoLongerAllowed()
	}

	if !acc.IsActive() {
		service.dropSession(context, sessionHash)
		return nil, apperr.Forbidden("Account disabled")
	}

	if err := service.syncProfile(context, acc, profile, acc.UpdatedBy); err != nil {
		return nil, err
	}
	return acc, nil
}

// # Account Reset

/*
ResetAccount clears the password of an allowlisted, non-executor account.

Description: The account keeps its identity and role; its owner chooses a new
password through signup. Every open session of the account is ended.

Parameters:
  - context: context.Context
  - actor: string (username performing the reset)
  - rawUsername: string

Returns:
  - string: Confirmation message
  - error: VALIDATION_ERROR, NOT_ALLOWLISTED or storage errors
*/
func (service *Service) ResetAccount(context context.Context, actor, rawUsername string) (message string, err error) {
	defer func() { metrics.RecordAuth("reset", outcomeOf(err)) }()

	username := role.Normalize(rawUsername)

	validator := &validate.Validator{}
	validator.Required(constants.FieldUsername, username).
		Custom(constants.FieldUsername, role.IsLegacyExecutor(username), "This username format is no longer accepted")
	if err := validator.Err(); err != nil {
		return "", err
	}

	groups, err := service.groupLoader.Load(context)
	if err != nil {
		return "", fmt.Errorf("auth_service_load_groups_failed: %w", err)
	}

	profile := role.Resolve(username, groups)
	if profile == nil {
		return "", apperr.NotAllowlisted()
	}
	if profile.IsExecutor {
		return "", validate.RequiredError(constants.FieldUsername, "Executor accounts are managed from the executor list")
	}

	acc, err := service.accountRepository.FindByUsername(context, username)
	if err != nil && !apperr.HasCode(err, apperr.CodeNotFound) {
		return "", fmt.Errorf("auth_service_find_account_failed: %w", err)
	}
	if err != nil || !acc.HasPassword() {
		return "", validate.RequiredError(constants.FieldUsername, "No password has been set for this account")
	}

	if err := service.accountRepository.UpdatePassword(context, acc.ID, nil, actor); err != nil {
		return "", fmt.Errorf("auth_service_reset_password_failed: %w", err)
	}

	if err := service.sessionRepository.DeleteByAccount(context, acc.ID); err != nil {
		return "", fmt.Errorf("auth_service_end_sessions_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_reset",
		slog.String("actor", actor),
		slog.String("username", username),
	)

	return fmt.Sprintf("Account %s was reset. Sign up again to choose a new password.", username), nil
}

// # Helpers

// openSession generates a token and persists its hash.
func (service *Service) openSession(context context.Context, acc *account.Account, userAgent string) (*session.Session, string, error) {
	token, err := sec.GenerateSecureToken(constants.SessionTokenBytes)
	if err != nil {
		return nil, "", fmt.Errorf("auth_service_token_failed: %w", err)
	}

	now := service.now().UTC()
	sess := &session.Session{
		Hash:       sec.HashToken(token),
		AccountID:  acc.ID,
		ExpiresAt:  now.Add(service.sessionTTL),
		LastUsedAt: now,
		UserAgent:  truncate(userAgent, 512),
		CreatedAt:  now,
	}

	if err := service.sessionRepository.Create(context, sess); err != nil {
		return nil, "", fmt.Errorf("auth_service_create_session_failed: %w", err)
	}
	return sess, token, nil
}

// dropSession deletes a session and only logs failures.
func (service *Service) dropSession(context context.Context, hash string) {
	if err := service.sessionRepository.DeleteByHash(context, hash); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "session_delete_failed", slog.Any("error", err))
	}
}

// syncProfile applies profile to acc and persists the role fields when they changed.
func (service *Service) syncProfile(context context.Context, acc *account.Account, profile *role.Profile, actor string) error {
	if !acc.ApplyProfile(profile) {
		return nil
	}

	acc.UpdatedBy = actor
	if err := service.accountRepository.UpdateProfile(context, acc); err != nil {
		return fmt.Errorf("auth_service_sync_profile_failed: %w", err)
	}
	return nil
}

// outcomeOf labels an operation result for metrics.
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if appError := apperr.As(err); appError != nil {
		return appError.Code
	}
	return "error"
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
