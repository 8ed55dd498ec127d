// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/projectflow/projectflow/internal/platform/constants"
	"github.com/projectflow/projectflow/internal/platform/metrics"
)

// Sweeper periodically deletes expired sessions.
//
// A failed sweep is logged and retried at the next tick; it never stops the
// schedule or the process.
type Sweeper struct {
	repository Repository
	ready      func() bool
	scheduler  *cron.Cron
	logger     *slog.Logger
}

// NewSweeper schedules [Sweeper.RunOnce] on a standard cron spec
// (e.g. "@every 15m"). The schedule starts with [Sweeper.Start].
//
// Ticks are skipped while ready reports false, which keeps the sweeper off the
// store until its schema exists. A nil ready sweeps on every tick.
func NewSweeper(repository Repository, schedule string, ready func() bool, logger *slog.Logger) (*Sweeper, error) {
	sweeper := &Sweeper{
		repository: repository,
		ready:      ready,
		scheduler:  cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		logger:     logger,
	}

	if _, err := sweeper.scheduler.AddFunc(schedule, sweeper.tick); err != nil {
		return nil, fmt.Errorf("session_sweeper_schedule_invalid: %w", err)
	}

	return sweeper, nil
}

// Start runs the schedule in the background.
func (sweeper *Sweeper) Start() {
	sweeper.scheduler.Start()
	sweeper.logger.Info("session_sweeper_started")
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (sweeper *Sweeper) Stop(ctx context.Context) {
	done := sweeper.scheduler.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		sweeper.logger.Warn("session_sweeper_stop_timeout")
	}
}

// RunOnce performs one sweep and returns the number of removed sessions.
func (sweeper *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	removed, err := sweeper.repository.DeleteExpired(ctx)
	if err != nil {
		return removed, fmt.Errorf("session_sweep_failed: %w", err)
	}

	metrics.RecordSweep(removed)
	return removed, nil
}

func (sweeper *Sweeper) tick() {
	if sweeper.ready != nil && !sweeper.ready() {
		sweeper.logger.Debug("session_sweep_skipped", slog.String("reason", "stores_not_ready"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.SweepTimeout)
	defer cancel()

	removed, err := sweeper.RunOnce(ctx)
	if err != nil {
		sweeper.logger.Error("session_sweep_failed", slog.Any("error", err))
		return
	}

	sweeper.logger.Info("session_sweep_completed", slog.Int64("removed", removed))
}
