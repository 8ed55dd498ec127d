// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/projectflow/projectflow/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// EnsureBootstrap starts or joins data store initialization. Nil skips it.
	EnsureBootstrap func(ctx context.Context) error

	// BootstrapState reports the data store lifecycle state, e.g. "ready".
	BootstrapState func() string

	// CheckDatabase pings the PostgreSQL pool.
	CheckDatabase func(ctx context.Context) error

	// CheckCache pings the Redis client. Nil when sessions live in PostgreSQL.
	CheckCache func(ctx context.Context) error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{"status": "ok"})
}

// readiness handles GET /ready (Readiness probe).
//
// Each call starts or joins an initialization attempt, so an orchestrator polling
// /ready brings the stores up before routing traffic.
// Dependencies are only pinged once bootstrap has succeeded.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	if handler.dependencies.EnsureBootstrap != nil {
		if err := handler.dependencies.EnsureBootstrap(request.Context()); err != nil {
			handler.logger.Warn("readiness_bootstrap_pending", slog.Any("error", err))
		}
	}

	bootstrapState := "ready"
	if handler.dependencies.BootstrapState != nil {
		bootstrapState = handler.dependencies.BootstrapState()
	}

	isSystemReady := bootstrapState == "ready"
	results := make([]checkResult, 0, 2)

	if isSystemReady {
		checks := []struct {
			name  string
			check func(ctx context.Context) error
		}{
			{"postgres", handler.dependencies.CheckDatabase},
			{"redis", handler.dependencies.CheckCache},
		}

		for _, dependency := range checks {
			if dependency.check == nil {
				continue
			}

			result := checkResult{Name: dependency.name, IsOK: true}
			if err := dependency.check(request.Context()); err != nil {
				result.IsOK = false
				result.Error = err.Error()
				isSystemReady = false
				handler.logger.Error("readiness_check_failed", slog.String("dependency", dependency.name), slog.Any("error", err))
			}
			results = append(results, result)
		}
	}

	responseStatus := "ready"
	httpStatus := http.StatusOK
	if !isSystemReady {
		responseStatus = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, map[string]any{
		"status":    responseStatus,
		"bootstrap": bootstrapState,
		"checks":    results,
	})
}
