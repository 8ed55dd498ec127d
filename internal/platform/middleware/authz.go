// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/ctxutil"
	"github.com/projectflow/projectflow/internal/platform/respond"
	"github.com/projectflow/projectflow/internal/users/account"
	"github.com/projectflow/projectflow/internal/users/role"
	"github.com/projectflow/projectflow/internal/users/session"
)

// # Contracts

// SessionResolver turns a raw session token into a live, re-authorized account.
//
// # Why an interface?
//
// Defining SessionResolver here decouples the middleware from the `auth` service
// implementation, allowing us to easily inject fakes during unit testing.
type SessionResolver interface {
	ResolveSession(ctx context.Context, rawToken string) (*account.Account, *session.Session, error)
}

// SessionTokens reads the session token from a request and clears the session
// cookies from a response.
type SessionTokens interface {
	Token(request *http.Request) string
	Clear(writer http.ResponseWriter, request *http.Request)
}

// # Predicates

// CheckAuthenticated fails with 401 when acc is nil.
func CheckAuthenticated(acc *account.Account) *apperr.AppError {
	if acc == nil {
		return apperr.Unauthorized("Session missing")
	}
	return nil
}

// CheckPermission fails with 401 when acc is nil and 403 when the flag is unset.
func CheckPermission(acc *account.Account, permission role.Permission) *apperr.AppError {
	if err := CheckAuthenticated(acc); err != nil {
		return err
	}
	if !acc.Permissions.Has(permission) {
		return apperr.Forbidden("You do not have permission to perform this action")
	}
	return nil
}

// CheckAnyPermission passes when at least one of the flags is set.
func CheckAnyPermission(acc *account.Account, permissions ...role.Permission) *apperr.AppError {
	if err := CheckAuthenticated(acc); err != nil {
		return err
	}
	for _, permission := range permissions {
		if acc.Permissions.Has(permission) {
			return nil
		}
	}
	return apperr.Forbidden("You do not have permission to perform this action")
}

// CheckOwner passes only for the FULL_ACCESS role.
func CheckOwner(acc *account.Account) *apperr.AppError {
	if err := CheckAuthenticated(acc); err != nil {
		return err
	}
	if acc.Role != role.RoleFullAccess {
		return apperr.Forbidden("Only owners can perform this action")
	}
	return nil
}

// # HTTP Guards

/*
RequireSession resolves the session token and blocks requests without a live one.

# Flow
 1. Read the token via [SessionTokens] (cookie, then bearer header).
 2. Resolve it; the resolver re-checks expiry, account existence and allowlist
    membership on every call.
 3. On a 403 (deauthorized or disabled) clear the session cookies.
 4. Inject the account and an account-scoped logger into the context.

Store failures propagate as 5xx; they are never turned into 401.
*/
func RequireSession(resolver SessionResolver, tokens SessionTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			rawToken := tokens.Token(request)
			if rawToken == "" {
				respond.Error(writer, request, apperr.Unauthorized("Session missing"))
				return
			}

			// ── 2. Resolution ─────────────────────────────────────────────────
			acc, _, err := resolver.ResolveSession(request.Context(), rawToken)
			if err != nil {
				if appError := apperr.As(err); appError != nil && appError.HTTPStatus == http.StatusForbidden {
					tokens.Clear(writer, request)
				}
				respond.Error(writer, request, err)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAccount(request.Context(), acc)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(
				slog.String("account_id", acc.ID),
				slog.String("username", acc.Username),
			))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// guard adapts a predicate into a middleware.
func guard(check func(*account.Account) *apperr.AppError) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if err := check(ctxutil.GetAccount(request.Context())); err != nil {
				respond.Error(writer, request, err)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequirePermission blocks requests whose account lacks permission.
// Must be registered after [RequireSession].
func RequirePermission(permission role.Permission) func(http.Handler) http.Handler {
	return guard(func(acc *account.Account) *apperr.AppError {
		return CheckPermission(acc, permission)
	})
}

// RequireAnyPermission blocks requests whose account holds none of permissions.
func RequireAnyPermission(permissions ...role.Permission) func(http.Handler) http.Handler {
	return guard(func(acc *account.Account) *apperr.AppError {
		return CheckAnyPermission(acc, permissions...)
	})
}

// RequireOwner blocks requests from non-owners.
func RequireOwner(next http.Handler) http.Handler {
	return guard(CheckOwner)(next)
}

// GetAccount retrieves the authenticated [*account.Account] from the [context.Context].
//
// # Returns
//   - A pointer to [*account.Account] if the request is authenticated.
//   - nil if the request is anonymous.
func GetAccount(ctx context.Context) *account.Account {
	return ctxutil.GetAccount(ctx)
}
