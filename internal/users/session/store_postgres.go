// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/projectflow/projectflow/internal/platform/dberr"
)

const resourceName = "Session"

// PostgresRepository implements [Repository] on the users.session table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of [Repository].
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

/*
Create persists a new session.

Parameters:
  - context: context.Context
  - sess: *Session

Returns:
  - error: CONFLICT on a duplicate hash, or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, sess *Session) error {
	const query = `
		INSERT INTO users.session (sessionidhash, accountid, expiresat, lastusedat, useragent, createdat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if sess.LastUsedAt.IsZero() {
		sess.LastUsedAt = sess.CreatedAt
	}

	_, err := repository.pool.Exec(context, query,
		sess.Hash,
		sess.AccountID,
		sess.ExpiresAt,
		sess.LastUsedAt,
		sess.UserAgent,
		sess.CreatedAt,
	)
	return dberr.Wrap(err, resourceName, "postgres_session_create_failed")
}

// FindByHash retrieves a session by exact token hash.
func (repository *PostgresRepository) FindByHash(context context.Context, hash string) (*Session, error) {
	const query = `
		SELECT sessionidhash, accountid, expiresat, lastusedat, useragent, createdat
		FROM users.session
		WHERE sessionidhash = $1`

	var sess Session
	err := repository.pool.QueryRow(context, query, hash).Scan(
		&sess.Hash,
		&sess.AccountID,
		&sess.ExpiresAt,
		&sess.LastUsedAt,
		&sess.UserAgent,
		&sess.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, resourceName, "postgres_session_find_failed")
	}
	return &sess, nil
}

// Touch updates lastusedat.
func (repository *PostgresRepository) Touch(context context.Context, hash string, at time.Time) error {
	const query = `UPDATE users.session SET lastusedat = $2 WHERE sessionidhash = $1`

	if _, err := repository.pool.Exec(context, query, hash, at); err != nil {
		return fmt.Errorf("postgres_session_touch_failed: %w", err)
	}
	return nil
}

// DeleteByHash removes one session.
func (repository *PostgresRepository) DeleteByHash(context context.Context, hash string) error {
	if _, err := repository.pool.Exec(context, `DELETE FROM users.session WHERE sessionidhash = $1`, hash); err != nil {
		return fmt.Errorf("postgres_session_delete_failed: %w", err)
	}
	return nil
}

// DeleteByAccount removes every session of an account.
func (repository *PostgresRepository) DeleteByAccount(context context.Context, accountID string) error {
	if _, err := repository.pool.Exec(context, `DELETE FROM users.session WHERE accountid = $1`, accountID); err != nil {
		return fmt.Errorf("postgres_session_delete_by_account_failed: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry has passed.
func (repository *PostgresRepository) DeleteExpired(context context.Context) (int64, error) {
	tag, err := repository.pool.Exec(context, `DELETE FROM users.session WHERE expiresat <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
