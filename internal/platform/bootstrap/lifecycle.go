// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package bootstrap tracks the one-time initialization of the data stores.

The process starts serving before the database is known to be reachable.
Request handling calls [Lifecycle.Ensure], which runs the initializer at most once
at a time and memoizes success. A failure is not memoized: the next request
retries from scratch.

States:

  - Uninitialized: nothing has run yet, or the last attempt failed and was reset.
  - Initializing: an attempt is in flight; other callers wait for its result.
  - Ready: initialization succeeded; Ensure returns immediately.
  - Failed: the last attempt failed; the next Ensure starts a new attempt.
*/
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/projectflow/projectflow/internal/platform/constants"
	"github.com/projectflow/projectflow/internal/platform/metrics"
)

// State is the lifecycle state of the data store initialization.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// stateNames lists every state label exported as a metric.
var stateNames = []string{
	StateUninitialized.String(),
	StateInitializing.String(),
	StateReady.String(),
	StateFailed.String(),
}

// InitFunc performs one initialization attempt.
type InitFunc func(ctx context.Context) error

// Lifecycle runs an [InitFunc] until it succeeds once.
type Lifecycle struct {
	init    InitFunc
	logger  *slog.Logger
	timeout time.Duration

	group singleflight.Group

	mu    sync.RWMutex
	state State
}

// New creates a [Lifecycle] in the Uninitialized state.
func New(init InitFunc, logger *slog.Logger) *Lifecycle {
	lifecycle := &Lifecycle{
		init:    init,
		logger:  logger,
		timeout: constants.BootstrapTimeout,
	}
	lifecycle.setState(StateUninitialized)
	return lifecycle
}

/*
Ensure returns nil once initialization has succeeded.

Description: Concurrent callers share a single in-flight attempt. The attempt runs
on a context detached from the caller, bounded by the bootstrap timeout, so one
cancelled request does not fail the attempt for everyone waiting on it. The caller
still stops waiting when its own context ends.

Parameters:
  - ctx: context.Context

Returns:
  - error: The attempt's error, or ctx.Err() when the caller gave up first
*/
func (lifecycle *Lifecycle) Ensure(ctx context.Context) error {
	if lifecycle.State() == StateReady {
		return nil
	}

	resultChannel := lifecycle.group.DoChan("bootstrap", func() (any, error) {

		// A previous flight may have finished between the check above and this call.
		if lifecycle.State() == StateReady {
			return nil, nil
		}

		lifecycle.setState(StateInitializing)
		lifecycle.logger.Info("bootstrap_started")

		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lifecycle.timeout)
		defer cancel()

		if err := lifecycle.init(attemptCtx); err != nil {
			lifecycle.setState(StateFailed)
			lifecycle.logger.Error("bootstrap_failed", slog.Any("error", err))
			return nil, err
		}

		lifecycle.setState(StateReady)
		lifecycle.logger.Info("bootstrap_completed")
		return nil, nil
	})

	select {
	case result := <-resultChannel:
		return result.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state.
func (lifecycle *Lifecycle) State() State {
	lifecycle.mu.RLock()
	defer lifecycle.mu.RUnlock()
	return lifecycle.state
}

// Reset returns the lifecycle to Uninitialized. Intended for tests.
func (lifecycle *Lifecycle) Reset() {
	lifecycle.setState(StateUninitialized)
}

func (lifecycle *Lifecycle) setState(state State) {
	lifecycle.mu.Lock()
	lifecycle.state = state
	lifecycle.mu.Unlock()

	metrics.SetBootstrapState(state.String(), stateNames)
}
