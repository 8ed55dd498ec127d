// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectflow/projectflow/internal/testutil"
	"github.com/projectflow/projectflow/internal/users/access"
	"github.com/projectflow/projectflow/internal/users/role"
)

func keyPtr(key role.GroupKey) *role.GroupKey { return &key }

func TestPostgresGroupRepository(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	repository := access.NewPostgresGroupRepository(pool)
	ctx := context.Background()

	t.Run("first load creates four empty groups", func(t *testing.T) {
		groups, err := repository.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, role.Assignments{
			Owner: []string{}, Administrator: []string{}, Write: []string{}, Read: []string{},
		}, groups.Snapshot())
	})

	t.Run("seed applies once", func(t *testing.T) {
		seeds := role.SeedGroups(map[role.GroupKey][]string{
			role.GroupOwner: {"olivia"},
			role.GroupRead:  {"rita"},
		})
		require.NoError(t, repository.Seed(ctx, seeds))

		// An owner removes rita; a second seed must not bring her back.
		_, err := repository.Assign(ctx, "rita", nil)
		require.NoError(t, err)
		require.NoError(t, repository.Seed(ctx, seeds))

		groups, err := repository.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"olivia"}, groups.Members(role.GroupOwner))
		assert.Empty(t, groups.Members(role.GroupRead))
	})

	t.Run("assign moves between groups", func(t *testing.T) {
		_, err := repository.Assign(ctx, "bob", keyPtr(role.GroupWrite))
		require.NoError(t, err)

		groups, err := repository.Assign(ctx, "bob", keyPtr(role.GroupAdministrator))
		require.NoError(t, err)

		key, ok := groups.KeyOf("bob")
		require.True(t, ok)
		assert.Equal(t, role.GroupAdministrator, key)
		assert.NotContains(t, groups.Members(role.GroupWrite), "bob")
	})

	t.Run("concurrent assignments keep one membership", func(t *testing.T) {
		targets := []role.GroupKey{role.GroupOwner, role.GroupAdministrator, role.GroupWrite, role.GroupRead}

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(target role.GroupKey) {
				defer wg.Done()
				_, err := repository.Assign(ctx, "carol", &target)
				errs <- err
			}(targets[i%len(targets)])
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		groups, err := repository.Load(ctx)
		require.NoError(t, err)

		memberships := 0
		for _, key := range targets {
			if groups.Contains(key, "carol") {
				memberships++
			}
		}
		assert.Equal(t, 1, memberships)
	})
}
