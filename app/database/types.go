package database

import (
	"time"
)

// FeedRun is the outcome of processing one feed during an update run.
type FeedRun struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	FeedURL   string        `json:"feed_url"`
	FeedName  string        `json:"feed_name"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Total     int           `json:"total"`
	Saved     int           `json:"saved"`
	Skipped   int           `json:"skipped"` // already saved or deleted before
	Expired   int           `json:"expired"`
	Filtered  int           `json:"filtered"`
	Failed    int           `json:"failed"`
	Cleaned   int           `json:"cleaned"`
	Error     string        `json:"error,omitempty"`
}
