package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var _ SchedulerInterface = (*Scheduler)(nil)

// Scheduler triggers a run at start and then on every tick.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	reschedule chan time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:     runner,
		interval:   interval,
		reschedule: make(chan time.Duration, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker, tick := newTicker(s.interval)
		defer func() {
			if ticker != nil {
				ticker.Stop()
			}
		}()

		s.runOnce()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-tick:
				s.runOnce()
			case interval := <-s.reschedule:
				if ticker != nil {
					ticker.Stop()
				}
				ticker, tick = newTicker(interval)
				slog.Info("Update timer rescheduled", "interval", interval)
			}
		}
	}()
}

// Reschedule replaces the timer interval. A non-positive interval disables
// periodic runs.
func (s *Scheduler) Reschedule(interval time.Duration) {
	for {
		select {
		case s.reschedule <- interval:
			return
		default:
		}
		// drop a pending value nobody consumed yet
		select {
		case <-s.reschedule:
		default:
		}
	}
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runOnce() {
	_, err := s.runner.Run(s.ctx, RunOptions{Scheduled: true})
	switch {
	case errors.Is(err, ErrRunInProgress):
		slog.Debug("Scheduled update skipped, another run is active")
	case errors.Is(err, context.Canceled):
	case err != nil:
		slog.Error("Scheduled update failed", "error", err)
	}
}

func newTicker(interval time.Duration) (*time.Ticker, <-chan time.Time) {
	if interval <= 0 {
		return nil, nil
	}
	ticker := time.NewTicker(interval)
	return ticker, ticker.C
}
