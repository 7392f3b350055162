// ABOUTME: Cron scheduler that triggers digest runs on a fixed cadence
// ABOUTME: Overlapping triggers are skipped; a slow run delays the next, never doubles it

package cron

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"digest-courier/core/interfaces"
)

// Runner is the unit of work the scheduler triggers
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler manages the cron entry for digest runs
type Scheduler struct {
	cron   *cron.Cron
	logger interfaces.Logger
}

// New creates a scheduler that invokes runner on the given cron spec.
// Standard five-field specs and descriptors like @daily are accepted.
// Each trigger gets a fresh context derived from ctx.
func New(ctx context.Context, spec string, runner Runner, logger interfaces.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	_, err := c.AddFunc(spec, func() {
		logger.Info("scheduled digest run starting", map[string]interface{}{"spec": spec})
		if err := runner.Run(ctx); err != nil {
			logger.Error("scheduled digest run failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		logger.Info("scheduled digest run finished", nil)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return &Scheduler{
		cron:   c,
		logger: logger,
	}, nil
}

// Start begins firing triggers in a background goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts new triggers and waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
