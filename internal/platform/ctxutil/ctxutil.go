// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/projectflow/projectflow/internal/platform/ctxkey"
	"github.com/projectflow/projectflow/internal/users/account"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithAccount returns a new context with the authenticated account attached.
func WithAccount(ctx context.Context, acc *account.Account) context.Context {
	return context.WithValue(ctx, ctxkey.KeyAccount, acc)
}

// GetAccount retrieves the authenticated [*account.Account] from the context.
// Returns nil for anonymous requests.
func GetAccount(ctx context.Context) *account.Account {
	acc, ok := ctx.Value(ctxkey.KeyAccount).(*account.Account)
	if !ok {
		return nil
	}
	return acc
}

// # Error Presentation

// WithVerboseErrors marks whether error responses may include diagnostic details.
func WithVerboseErrors(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, ctxkey.KeyVerboseErrors, verbose)
}

// IsVerboseErrors reports whether error details may be exposed. Defaults to false.
func IsVerboseErrors(ctx context.Context) bool {
	verbose, _ := ctx.Value(ctxkey.KeyVerboseErrors).(bool)
	return verbose
}
