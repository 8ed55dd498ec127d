// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import "context"

// # Repository Contracts

// Repository defines the persistence contract for accounts.
//
// Lookups return an [apperr.AppError] with code NOT_FOUND when no row matches.
// Usernames are stored normalized and are unique.
type Repository interface {
	// FindByID retrieves an account by its unique ID.
	FindByID(ctx context.Context, id string) (*Account, error)

	// FindByUsername retrieves an account by its normalized username.
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// Create persists a new account. A duplicate username yields CONFLICT.
	Create(ctx context.Context, acc *Account) error

	// UpdateProfile persists the role-derived fields of acc.
	UpdateProfile(ctx context.Context, acc *Account) error

	// UpdatePassword sets or clears (nil) the password hash.
	UpdatePassword(ctx context.Context, id string, passwordHash *string, actor string) error

	// UpdateStatus changes the lifecycle status.
	UpdateStatus(ctx context.Context, id string, status Status, actor string) error

	// Delete removes the account permanently.
	Delete(ctx context.Context, id string) error

	// ListExecutors returns every account provisioned as an executor.
	ListExecutors(ctx context.Context) ([]*Account, error)
}
