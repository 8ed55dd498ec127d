// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectflow/projectflow/internal/platform/ctxutil"
	"github.com/projectflow/projectflow/internal/users/account"
	"github.com/projectflow/projectflow/internal/users/role"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Account verifies that the resolved account is carried by the context.
*/
func TestContext_Account(t *testing.T) {
	ctx := context.Background()

	// 1. Anonymous requests carry no account
	assert.Nil(t, ctxutil.GetAccount(ctx))

	// 2. Inject and retrieve
	acc := account.New("alice", &role.Profile{Role: role.RoleFullAccess, Scope: "all"}, "alice")
	ctx = ctxutil.WithAccount(ctx, acc)

	retrieved := ctxutil.GetAccount(ctx)
	require.NotNil(t, retrieved)
	assert.Equal(t, "alice", retrieved.Username)
	assert.Equal(t, role.RoleFullAccess, retrieved.Role)
}

func TestContext_VerboseErrors(t *testing.T) {
	ctx := context.Background()
	assert.False(t, ctxutil.IsVerboseErrors(ctx))

	assert.True(t, ctxutil.IsVerboseErrors(ctxutil.WithVerboseErrors(ctx, true)))
	assert.False(t, ctxutil.IsVerboseErrors(ctxutil.WithVerboseErrors(ctx, false)))
}
