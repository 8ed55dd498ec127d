// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/dberr"
)

const resourceName = "Account"

// accountColumns is the projection shared by every SELECT, in [scanAccount] order.
const accountColumns = `
	id, username, displayname, email, avatar, role, scope, permissions,
	isexecutor, passwordhash, status, createdby, updatedby, createdat, updatedat`

// PostgresRepository implements [Repository] on the users.account table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of [Repository].
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

// scanAccount maps one row of [accountColumns] into an [Account].
func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	err := row.Scan(
		&acc.ID,
		&acc.Username,
		&acc.DisplayName,
		&acc.Email,
		&acc.Avatar,
		&acc.Role,
		&acc.Scope,
		&acc.Permissions,
		&acc.IsExecutor,
		&acc.PasswordHash,
		&acc.Status,
		&acc.CreatedBy,
		&acc.UpdatedBy,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

/*
FindByID retrieves an account by its unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Account: The account
  - error: NOT_FOUND or storage errors
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users.account WHERE id = $1`

	acc, err := scanAccount(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, resourceName, "postgres_account_find_by_id_failed")
	}
	return acc, nil
}

// FindByUsername retrieves an account by its normalized username.
func (repository *PostgresRepository) FindByUsername(context context.Context, username string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users.account WHERE username = $1`

	acc, err := scanAccount(repository.pool.QueryRow(context, query, username))
	if err != nil {
		return nil, dberr.Wrap(err, resourceName, "postgres_account_find_by_username_failed")
	}
	return acc, nil
}

/*
Create persists a new account into the users.account table.

Description: Initializes timestamps when absent. The unique index on username
turns a concurrent duplicate signup into a CONFLICT instead of a second row.

Parameters:
  - context: context.Context
  - acc: *Account (Entity to persist)

Returns:
  - error: CONFLICT on duplicate username, or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, acc *Account) error {
	const query = `
		INSERT INTO users.account (
			id, username, displayname, email, avatar, role, scope, permissions,
			isexecutor, passwordhash, status, createdby, updatedby, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	now := time.Now().UTC()
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now
	if acc.Status == "" {
		acc.Status = StatusActive
	}

	_, err := repository.pool.Exec(context, query,
		acc.ID,
		acc.Username,
		acc.DisplayName,
		acc.Email,
		acc.Avatar,
		acc.Role,
		acc.Scope,
		acc.Permissions,
		acc.IsExecutor,
		acc.PasswordHash,
		acc.Status,
		acc.CreatedBy,
		acc.UpdatedBy,
		acc.CreatedAt,
		acc.UpdatedAt,
	)

	return dberr.Wrap(err, resourceName, "postgres_account_create_failed")
}

// UpdateProfile persists the role-derived fields after a role sync.
func (repository *PostgresRepository) UpdateProfile(context context.Context, acc *Account) error {
	const query = `
		UPDATE users.account
		SET displayname = $2, avatar = $3, role = $4, scope = $5, permissions = $6,
		    isexecutor = $7, updatedby = $8, updatedat = $9
		WHERE id = $1`

	acc.UpdatedAt = time.Now().UTC()

	tag, err := repository.pool.Exec(context, query,
		acc.ID,
		acc.DisplayName,
		acc.Avatar,
		acc.Role,
		acc.Scope,
		acc.Permissions,
		acc.IsExecutor,
		acc.UpdatedBy,
		acc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_account_update_profile_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceName)
	}
	return nil
}

// UpdatePassword sets or clears the password hash.
func (repository *PostgresRepository) UpdatePassword(context context.Context, id string, passwordHash *string, actor string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedby = $3, updatedat = NOW()
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, id, passwordHash, actor)
	if err != nil {
		return fmt.Errorf("postgres_account_update_password_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceName)
	}
	return nil
}

// UpdateStatus changes the lifecycle status of the account.
func (repository *PostgresRepository) UpdateStatus(context context.Context, id string, status Status, actor string) error {
	if !status.Valid() {
		return fmt.Errorf("postgres_account_update_status_failed: unknown status %q", status)
	}

	const query = `
		UPDATE users.account
		SET status = $2, updatedby = $3, updatedat = NOW()
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, id, status, actor)
	if err != nil {
		return fmt.Errorf("postgres_account_update_status_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceName)
	}
	return nil
}

// Delete removes the account. Sessions cascade through the foreign key.
func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	tag, err := repository.pool.Exec(context, `DELETE FROM users.account WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres_account_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceName)
	}
	return nil
}

// ListExecutors returns executor accounts ordered by username.
func (repository *PostgresRepository) ListExecutors(context context.Context) ([]*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users.account WHERE isexecutor ORDER BY username`

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_list_executors_failed: %w", err)
	}

	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Account, error) {
		return scanAccount(row)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres_account_list_executors_scan_failed: %w", err)
	}
	return accounts, nil
}
