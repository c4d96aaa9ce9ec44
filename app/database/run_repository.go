package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ RunRepository = (*SQLRunRepository)(nil)

// SQLRunRepository stores feed run history in sqlite
type SQLRunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

func (r *SQLRunRepository) RecordFeedRun(run FeedRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := r.db.Exec(`
		INSERT INTO feed_runs (id, run_id, feed_url, feed_name, started_at, duration_ms,
			total, saved, skipped, expired, filtered, failed, cleaned, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.RunID, run.FeedURL, run.FeedName, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
		run.Total, run.Saved, run.Skipped, run.Expired, run.Filtered, run.Failed, run.Cleaned, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record feed run: %w", err)
	}
	return nil
}

func (r *SQLRunRepository) ListRecent(limit int) ([]FeedRun, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, feed_url, feed_name, started_at, duration_ms,
			total, saved, skipped, expired, filtered, failed, cleaned, error
		FROM feed_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed runs: %w", err)
	}
	return scanRuns(rows)
}

func (r *SQLRunRepository) ListForFeed(feedURL string, limit int) ([]FeedRun, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, feed_url, feed_name, started_at, duration_ms,
			total, saved, skipped, expired, filtered, failed, cleaned, error
		FROM feed_runs
		WHERE feed_url = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, feedURL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed runs: %w", err)
	}
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]FeedRun, error) {
	defer rows.Close()

	var runs []FeedRun
	for rows.Next() {
		var run FeedRun
		var startedAt, durationMs int64
		err := rows.Scan(&run.ID, &run.RunID, &run.FeedURL, &run.FeedName, &startedAt, &durationMs,
			&run.Total, &run.Saved, &run.Skipped, &run.Expired, &run.Filtered, &run.Failed, &run.Cleaned, &run.Error)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed run: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedAt)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feed runs: %w", err)
	}
	return runs, nil
}
