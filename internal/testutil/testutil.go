// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package testutil provides data store fixtures for integration tests.
//
// Integration tests run only when TEST_DATABASE_URL (and, for Redis, TEST_REDIS_URL)
// point at disposable instances; otherwise they are skipped. Set TEST_REQUIRE_STORES=1
// in CI to turn a missing store into a failure.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/projectflow/projectflow/internal/platform/migration"
)

const setupTimeout = 10 * time.Second

// Logger discards everything. Store fixtures do not need log output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestPool connects to TEST_DATABASE_URL, applies the migrations and empties
// the users tables. The pool is closed when the test ends.
func SetupTestPool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		skipOrFail(t, "TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create test pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		skipOrFail(t, "test database not reachable: "+err.Error())
	}

	if err := migration.RunUp(ctx, dsn, Logger()); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	CleanupTestPool(t, pool)
	t.Cleanup(pool.Close)

	return pool
}

// CleanupTestPool removes all rows from the users tables, children first.
func CleanupTestPool(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	for _, table := range []string{
		"users.session",
		"users.accessgroupmember",
		"users.accessgroup",
		"users.account",
	} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("failed to clean up table %s: %v", table, err)
		}
	}
}

// SetupTestRedis connects to TEST_REDIS_URL and flushes the selected database.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		skipOrFail(t, "TEST_REDIS_URL not set")
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("invalid TEST_REDIS_URL: %v", err)
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		skipOrFail(t, "test redis not reachable: "+err.Error())
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush test redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func skipOrFail(t testing.TB, reason string) {
	t.Helper()
	if required, _ := strconv.ParseBool(os.Getenv("TEST_REQUIRE_STORES")); required {
		t.Fatal(reason)
	}
	t.Skip(reason)
}
