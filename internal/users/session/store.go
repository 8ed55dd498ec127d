// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"time"
)

// Repository defines the persistence contract for sessions.
//
// Every method keys sessions by their token hash; lookups are exact matches.
// FindByHash returns a NOT_FOUND [apperr.AppError] for unknown hashes.
type Repository interface {
	// Create persists a new session.
	Create(ctx context.Context, sess *Session) error

	// FindByHash retrieves a session by token hash. Expired sessions may still be
	// returned; the caller decides what expiry means.
	FindByHash(ctx context.Context, hash string) (*Session, error)

	// Touch records activity on the session. Callers treat failures as non-fatal.
	Touch(ctx context.Context, hash string, at time.Time) error

	// DeleteByHash removes one session. Deleting an unknown hash is not an error.
	DeleteByHash(ctx context.Context, hash string) error

	// DeleteByAccount removes every session of an account.
	DeleteByAccount(ctx context.Context, accountID string) error

	// DeleteExpired removes sessions past their expiry and returns how many.
	DeleteExpired(ctx context.Context) (int64, error)
}
