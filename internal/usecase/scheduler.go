package usecase

import (
	"context"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/domain"
	"github.com/bobmatnyc/ai-power-rankings/internal/ports"
)

// CollectionWindow computes the lookback range ending at a trigger time.
func CollectionWindow(end time.Time, days int) domain.DateRange {
	if days <= 0 {
		days = 7
	}
	return domain.DateRange{
		Start: end.Add(-time.Duration(days) * 24 * time.Hour),
		End:   end,
	}
}

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
}

// NewScheduler returns a helper to start/stop recurring collection runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline}
}

// Start registers the pipeline with the underlying driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}
	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop() {
	if s.driver == nil {
		return
	}
	s.driver.Stop()
}
