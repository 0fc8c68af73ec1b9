package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int64
	err   error
}

func (s *countingSweeper) SweepOverdue(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	return 2, s.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("not a schedule", &countingSweeper{}, discard())
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	sweeper := &countingSweeper{}
	s, err := New("0 0 * * *", sweeper, discard())
	require.NoError(t, err)

	s.RunOnce()
	assert.Equal(t, int64(1), sweeper.calls.Load())

	sweeper.err = errors.New("store down")
	s.RunOnce()
	assert.Equal(t, int64(2), sweeper.calls.Load())
}

func TestScheduleFires(t *testing.T) {
	sweeper := &countingSweeper{}
	s, err := New("@every 1s", sweeper, discard())
	require.NoError(t, err)

	s.Start()
	defer func() { <-s.Stop().Done() }()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}
