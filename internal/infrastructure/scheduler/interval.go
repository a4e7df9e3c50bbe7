package scheduler

import (
	"context"
	"time"

	"github.com/bobmatnyc/ai-power-rankings/internal/ports"
)

// IntervalScheduler runs a job immediately and then on a fixed interval
// until the context ends or Stop is called.
type IntervalScheduler struct {
	interval time.Duration
	location *time.Location
	job      func(time.Time)
	stop     chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler. The location stamps the run
// times handed to the job.
func NewIntervalScheduler(interval time.Duration, location *time.Location, job func(time.Time)) *IntervalScheduler {
	if location == nil {
		location = time.UTC
	}
	return &IntervalScheduler{
		interval: interval,
		location: location,
		job:      job,
	}
}

// Start launches the ticking goroutine. Calling Start twice is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context) error {
	if s.job == nil || s.interval <= 0 {
		return nil
	}
	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.job(time.Now().In(s.location))
		for {
			select {
			case t := <-ticker.C:
				s.job(t.In(s.location))
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (s *IntervalScheduler) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}
