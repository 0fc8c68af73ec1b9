// Package scheduler runs the periodic overdue sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = time.Minute

// Sweeper persists the overdue status of rentals past their due date.
type Sweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     *slog.Logger
}

// New registers the overdue sweep on a standard five-field cron spec such as
// "0 0 * * *" (daily at midnight). Overlapping runs are skipped.
func New(spec string, sweeper Sweeper, log *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		sweeper: sweeper,
		log:     log.With("component", "scheduler"),
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// RunOnce performs a single sweep.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.sweeper.SweepOverdue(ctx)
	if err != nil {
		s.log.Error("overdue sweep failed", "err", err)
		return
	}
	s.log.Debug("overdue sweep finished", "marked", n)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and returns a context that is done once a running
// sweep has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
