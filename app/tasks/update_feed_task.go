package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/feed-vault/app/feed"
	"github.com/lysyi3m/feed-vault/app/saver"
	"github.com/lysyi3m/feed-vault/app/settings"
)

// FeedOutcome counts what happened to the items of one feed.
type FeedOutcome struct {
	Total    int
	Saved    int
	Skipped  int
	Expired  int
	Filtered int
	Failed   int
}

type UpdateFeedTask struct {
	Task
	Policy  settings.Policy
	fetcher FeedFetcher
	saver   *saver.Saver
	logger  *slog.Logger
}

func NewUpdateFeedTask(policy settings.Policy, fetcher FeedFetcher, s *saver.Saver, logger *slog.Logger) *UpdateFeedTask {
	return &UpdateFeedTask{
		Task:    NewTask(TaskTypeUpdateFeed, policy.FeedName),
		Policy:  policy,
		fetcher: fetcher,
		saver:   s,
		logger:  logger,
	}
}

// Execute fetches the feed and saves its items in source order. A failed
// item is counted and logged; only fetch and ledger errors are returned.
func (t *UpdateFeedTask) Execute(ctx context.Context) (FeedOutcome, error) {
	var outcome FeedOutcome

	select {
	case <-ctx.Done():
		return outcome, ctx.Err()
	default:
	}

	doc, err := t.fetcher.Fetch(ctx, t.Policy.FeedURL)
	if err != nil {
		return outcome, fmt.Errorf("failed to fetch feed: %w", err)
	}

	session := t.saver.Begin(t.Policy)
	outcome.Total = len(doc.Entries)

	for _, entry := range doc.Entries {
		if ctx.Err() != nil {
			break
		}

		item := feed.Normalize(entry)
		result, err := session.Save(ctx, entry, item)
		if err != nil {
			outcome.Failed++
			t.logger.Error("Failed to save item", "feed", t.FeedName, "link", item.Link, "error", err)
			continue
		}

		switch result {
		case saver.ResultSaved:
			outcome.Saved++
		case saver.ResultExpired:
			outcome.Expired++
		case saver.ResultFiltered:
			outcome.Filtered++
		default:
			outcome.Skipped++
		}
	}

	if err := session.Commit(); err != nil {
		return outcome, fmt.Errorf("failed to write ledger: %w", err)
	}

	t.logger.Info("Task completed",
		"type", string(t.Type),
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"total", outcome.Total,
		"saved", outcome.Saved,
		"skipped", outcome.Skipped,
		"expired", outcome.Expired,
		"filtered", outcome.Filtered,
		"failed", outcome.Failed)

	return outcome, ctx.Err()
}
