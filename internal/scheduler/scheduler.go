// Package scheduler triggers recurring imports on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/notebridge/internal/logger"
)

// SyncScheduler runs the provided import function on a cron schedule. Runs
// never overlap: a tick that fires while an import is still going is dropped.
type SyncScheduler struct {
	cron    *cron.Cron
	running chan struct{}
}

// New creates a scheduler for the given cron expression (standard five-field
// syntax, e.g. "0 3 * * *" for daily at 03:00).
func New(schedule string, run func(ctx context.Context) error) (*SyncScheduler, error) {
	s := &SyncScheduler{
		cron:    cron.New(),
		running: make(chan struct{}, 1),
	}

	_, err := s.cron.AddFunc(schedule, func() {
		select {
		case s.running <- struct{}{}:
		default:
			logger.Warn("previous sync still running, skipping tick")
			return
		}
		defer func() { <-s.running }()

		logger.Info("scheduled sync starting", logger.Fields{"schedule": schedule})
		if err := run(context.Background()); err != nil {
			logger.Error("scheduled sync failed", err)
			return
		}
		logger.Info("scheduled sync finished")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins firing ticks. Returns immediately.
func (s *SyncScheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *SyncScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
