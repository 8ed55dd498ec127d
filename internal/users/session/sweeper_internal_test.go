// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expiringRepository counts DeleteExpired calls; other methods are unused here.
type expiringRepository struct {
	Repository
	sweeps int
}

func (repository *expiringRepository) DeleteExpired(ctx context.Context) (int64, error) {
	repository.sweeps++
	return 0, nil
}

func TestSweeper_TickWaitsForReadyStores(t *testing.T) {
	repository := &expiringRepository{}
	ready := false

	sweeper, err := NewSweeper(repository, "@every 1h", func() bool { return ready }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	sweeper.tick()
	assert.Zero(t, repository.sweeps, "no sweep before the schema exists")

	ready = true
	sweeper.tick()
	assert.Equal(t, 1, repository.sweeps)
}

func TestSweeper_TickWithoutReadinessCheck(t *testing.T) {
	repository := &expiringRepository{}

	sweeper, err := NewSweeper(repository, "@every 1h", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	sweeper.tick()
	assert.Equal(t, 1, repository.sweeps)
}
