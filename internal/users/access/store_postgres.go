// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/projectflow/projectflow/internal/users/role"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresGroupRepository implements [GroupRepository] on
// users.accessgroup and users.accessgroupmember.
//
// accessgroupmember has username as its primary key: a username can hold at
// most one membership row.
type PostgresGroupRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresGroupRepository creates a new PostgreSQL implementation of [GroupRepository].
func NewPostgresGroupRepository(pool *pgxpool.Pool) *PostgresGroupRepository {
	return &PostgresGroupRepository{pool: pool}
}

var _ GroupRepository = (*PostgresGroupRepository)(nil)

// ensureGroups creates the four group rows when absent.
func ensureGroups(context context.Context, tx pgx.Tx) error {
	const query = `
		INSERT INTO users.accessgroup (groupkey)
		SELECT unnest($1::text[])
		ON CONFLICT (groupkey) DO NOTHING`

	keys := make([]string, 0, 4)
	for _, key := range role.Keys() {
		keys = append(keys, string(key))
	}

	if _, err := tx.Exec(context, query, keys); err != nil {
		return fmt.Errorf("postgres_accessgroup_ensure_failed: %w", err)
	}
	return nil
}

// loadMembers reads every membership row into a snapshot.
func loadMembers(context context.Context, db querier) (role.Groups, error) {
	rows, err := db.Query(context, `SELECT groupkey, username FROM users.accessgroupmember`)
	if err != nil {
		return role.Groups{}, fmt.Errorf("postgres_accessgroup_load_failed: %w", err)
	}
	defer rows.Close()

	groups := role.NewGroups()
	for rows.Next() {
		var key, username string
		if err := rows.Scan(&key, &username); err != nil {
			return role.Groups{}, fmt.Errorf("postgres_accessgroup_scan_failed: %w", err)
		}
		groups.Add(role.GroupKey(key), username)
	}

	if err := rows.Err(); err != nil {
		return role.Groups{}, fmt.Errorf("postgres_accessgroup_rows_failed: %w", err)
	}
	return groups, nil
}

/*
Load returns the current group snapshot.

Description: Group rows are created lazily inside the same transaction, so the
first Load on an empty database succeeds with four empty groups.

Parameters:
  - context: context.Context

Returns:
  - role.Groups: The snapshot
  - error: Storage errors
*/
func (repository *PostgresGroupRepository) Load(context context.Context) (role.Groups, error) {
	var groups role.Groups

	err := pgx.BeginFunc(context, repository.pool, func(tx pgx.Tx) error {
		if err := ensureGroups(context, tx); err != nil {
			return err
		}

		loaded, err := loadMembers(context, tx)
		if err != nil {
			return err
		}
		groups = loaded
		return nil
	})
	if err != nil {
		return role.Groups{}, err
	}
	return groups, nil
}

/*
Assign moves username to target (or out of every group when target is nil).

Description: A single upsert (or delete) keyed by the username primary key, so a
username can never sit in two groups and concurrent assignments of the same
username serialize on its row.

Parameters:
  - context: context.Context
  - username: string (normalized)
  - target: *role.GroupKey (nil = unassign)

Returns:
  - role.Groups: The snapshot after the change
  - error: Storage errors
*/
func (repository *PostgresGroupRepository) Assign(context context.Context, username string, target *role.GroupKey) (role.Groups, error) {
	var groups role.Groups

	err := pgx.BeginFunc(context, repository.pool, func(tx pgx.Tx) error {
		if err := ensureGroups(context, tx); err != nil {
			return err
		}

		if target == nil {
			if _, err := tx.Exec(context, `DELETE FROM users.accessgroupmember WHERE username = $1`, username); err != nil {
				return fmt.Errorf("postgres_accessgroup_unassign_failed: %w", err)
			}
		} else {
			const upsert = `
				INSERT INTO users.accessgroupmember (username, groupkey, assignedat)
				VALUES ($1, $2, NOW())
				ON CONFLICT (username) DO UPDATE
				SET groupkey = EXCLUDED.groupkey, assignedat = EXCLUDED.assignedat`
			if _, err := tx.Exec(context, upsert, username, string(*target)); err != nil {
				return fmt.Errorf("postgres_accessgroup_assign_failed: %w", err)
			}
		}

		loaded, err := loadMembers(context, tx)
		if err != nil {
			return err
		}
		groups = loaded
		return nil
	})
	if err != nil {
		return role.Groups{}, err
	}
	return groups, nil
}

/*
Seed applies configured default members to groups that were never seeded.

Description: Each group row carries a seededat marker. Claiming the marker and
inserting members happen in one transaction, so concurrent instances seed a group
at most once. Members already assigned elsewhere keep their existing group.

Parameters:
  - context: context.Context
  - defaults: role.Groups

Returns:
  - error: Storage errors
*/
func (repository *PostgresGroupRepository) Seed(context context.Context, defaults role.Groups) error {
	return pgx.BeginFunc(context, repository.pool, func(tx pgx.Tx) error {
		if err := ensureGroups(context, tx); err != nil {
			return err
		}

		for _, key := range role.Keys() {
			const claim = `
				UPDATE users.accessgroup SET seededat = NOW()
				WHERE groupkey = $1 AND seededat IS NULL`

			tag, err := tx.Exec(context, claim, string(key))
			if err != nil {
				return fmt.Errorf("postgres_accessgroup_seed_claim_failed: %w", err)
			}
			if tag.RowsAffected() == 0 {
				continue
			}

			for _, username := range defaults.Members(key) {
				const insert = `
					INSERT INTO users.accessgroupmember (username, groupkey, assignedat)
					VALUES ($1, $2, NOW())
					ON CONFLICT (username) DO NOTHING`
				if _, err := tx.Exec(context, insert, username, string(key)); err != nil {
					return fmt.Errorf("postgres_accessgroup_seed_member_failed: %w", err)
				}
			}
		}
		return nil
	})
}
