package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/feed-vault/app/feed"
)

// SchedulerInterface drives periodic update runs.
// Example usage:
//
//	scheduler := NewScheduler(updater, time.Hour)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.Reschedule(30 * time.Minute)
type SchedulerInterface interface {
	Start()
	Stop()
	Reschedule(interval time.Duration)
}

// Runner performs one update run.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (Summary, error)
}

// FeedFetcher downloads and parses one feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*feed.Document, error)
}
