// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package access manages the access groups that decide who may use ProjectFlow and
with which role.

# Architecture

  - GroupRepository: the authoritative group membership store.
  - Service: role administration (assign, list) and executor provisioning.
  - Handler: owner-only HTTP endpoints under /auth/roles and /auth/executors.

The one-group-per-username invariant is enforced by the store itself, so two
concurrent assignments for the same username cannot leave it in two groups.
*/
package access

import (
	"context"

	"github.com/projectflow/projectflow/internal/users/role"
)

// GroupRepository defines the persistence contract for access groups.
type GroupRepository interface {
	// Load returns a snapshot of all four groups, creating missing group records.
	Load(ctx context.Context) (role.Groups, error)

	// Assign atomically removes username from every group and, when target is
	// non-nil, adds it to that group. It returns the snapshot after the change.
	Assign(ctx context.Context, username string, target *role.GroupKey) (role.Groups, error)

	// Seed applies defaults to every group that has never been seeded. Groups
	// seeded before, even if since emptied, are left untouched.
	Seed(ctx context.Context, defaults role.Groups) error
}
