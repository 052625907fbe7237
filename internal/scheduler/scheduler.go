// Package scheduler runs a task on a fixed period until it is
// cancelled or fails unrecoverably.
package scheduler

import (
	"context"
	"time"
)

// Task is one unit of periodic work. A non-nil error is treated as
// unrecoverable: the schedule that produced it stops.
type Task func(ctx context.Context) error

// Run invokes task immediately, then every interval, until ctx is
// cancelled or task returns an error. It blocks the calling goroutine;
// callers that want concurrent schedules run Run inside their own
// goroutine (or an errgroup.Group).
func Run(ctx context.Context, interval time.Duration, task Task) error {
	if err := task(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := task(ctx); err != nil {
				return err
			}
		}
	}
}
