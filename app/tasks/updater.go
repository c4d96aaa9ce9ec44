package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/lysyi3m/feed-vault/app/database"
	"github.com/lysyi3m/feed-vault/app/notify"
	"github.com/lysyi3m/feed-vault/app/saver"
	"github.com/lysyi3m/feed-vault/app/settings"
	"github.com/lysyi3m/feed-vault/app/vault"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

var ErrRunInProgress = errors.New("feed update already in progress")

type RunOptions struct {
	// Scheduled runs skip feeds checked within their own update interval.
	Scheduled bool
	// FeedURL limits the run to one feed.
	FeedURL string
}

type Summary struct {
	RunID    string
	Feeds    int
	Saved    int
	Failed   int
	Cleaned  int
	Duration time.Duration
}

type Deps struct {
	Settings *settings.Store
	Fetcher  FeedFetcher
	Saver    *saver.Saver
	Cleaner  *saver.Cleaner
	Store    vault.Storage
	Notifier notify.Notifier
	Runs     database.RunRepository // optional
	Lock     *flock.Flock           // optional, excludes other processes
	Now      func() time.Time
	Logger   *slog.Logger
}

// Updater runs feed updates one at a time.
type Updater struct {
	deps  Deps
	state atomic.Int32
}

var _ Runner = (*Updater)(nil)

func NewUpdater(deps Deps) *Updater {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLog(deps.Logger)
	}
	return &Updater{deps: deps}
}

func (u *Updater) State() State {
	return State(u.state.Load())
}

// acquire moves the updater from idle to running. The returned release
// must be called when the run ends.
func (u *Updater) acquire() (func(), error) {
	if !u.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrRunInProgress
	}

	if u.deps.Lock == nil {
		return func() { u.state.Store(int32(StateIdle)) }, nil
	}

	locked, err := u.deps.Lock.TryLock()
	if err != nil {
		u.state.Store(int32(StateIdle))
		return nil, fmt.Errorf("failed to acquire update lock: %w", err)
	}
	if !locked {
		u.state.Store(int32(StateIdle))
		return nil, ErrRunInProgress
	}

	return func() {
		if err := u.deps.Lock.Unlock(); err != nil {
			u.deps.Logger.Warn("Failed to release update lock", "error", err)
		}
		u.state.Store(int32(StateIdle))
	}, nil
}

// Run updates every active feed in order, then cleans up the whole output
// root. A failing feed is logged and never stops the others.
func (u *Updater) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	release, err := u.acquire()
	if err != nil {
		return Summary{}, err
	}
	defer release()

	started := u.deps.Now()
	summary := Summary{RunID: uuid.NewString()}
	logger := u.deps.Logger.With("run_id", summary.RunID)

	if purged, err := u.deps.Settings.PurgeDeleted(started); err != nil {
		logger.Error("Failed to purge deleted feeds", "error", err)
	} else {
		for _, f := range purged {
			logger.Info("Deleted feed purged", "feed", f.Name, "url", f.URL)
		}
	}

	st := u.deps.Settings.Snapshot()
	feeds, err := u.selectFeeds(st, opts, started)
	if err != nil {
		return summary, err
	}
	if len(feeds) == 0 {
		u.deps.Notifier.Notify("No active feeds to update")
		return summary, nil
	}

	u.deps.Notifier.Notify(fmt.Sprintf("Updating %d feeds", len(feeds)))

	for _, f := range feeds {
		if ctx.Err() != nil {
			break
		}
		u.updateFeed(ctx, logger, summary.RunID, st.Resolve(f), &summary)
	}

	if ctx.Err() == nil {
		cleanup := NewCleanupTask("", saver.RootFolder(st.Root), st.GlobalRetention(), u.deps.Cleaner, logger)
		result, err := cleanup.Execute(ctx)
		if err != nil {
			logger.Error("Global cleanup failed", "error", err)
		}
		summary.Cleaned += result.Deleted
	}

	summary.Duration = u.deps.Now().Sub(started)
	logger.Info("Feed update completed",
		"feeds", summary.Feeds,
		"saved", summary.Saved,
		"failed", summary.Failed,
		"cleaned", summary.Cleaned,
		"duration", summary.Duration)
	u.deps.Notifier.Notify(fmt.Sprintf("Feed update complete: %d new items from %d feeds", summary.Saved, summary.Feeds))

	return summary, ctx.Err()
}

func (u *Updater) selectFeeds(st settings.Settings, opts RunOptions, now time.Time) ([]settings.Feed, error) {
	active := st.ActiveFeeds()

	if opts.FeedURL != "" {
		for _, f := range active {
			if f.URL == opts.FeedURL {
				return []settings.Feed{f}, nil
			}
		}
		return nil, fmt.Errorf("feed %s is not configured or not active", opts.FeedURL)
	}

	if !opts.Scheduled {
		return active, nil
	}

	var due []settings.Feed
	for _, f := range active {
		if f.UpdateInterval > 0 && f.LastChecked > 0 {
			next := time.UnixMilli(f.LastChecked).Add(time.Duration(f.UpdateInterval) * time.Minute)
			if now.Before(next) {
				u.deps.Logger.Debug("Feed not due for update yet", "feed", f.Name, "next_check", next)
				continue
			}
		}
		due = append(due, f)
	}
	return due, nil
}

func (u *Updater) updateFeed(ctx context.Context, logger *slog.Logger, runID string, policy settings.Policy, summary *Summary) {
	task := NewUpdateFeedTask(policy, u.deps.Fetcher, u.deps.Saver, logger)
	task.Start()
	startedAt := u.deps.Now()

	outcome, err := task.Execute(ctx)
	summary.Feeds++
	summary.Saved += outcome.Saved

	run := database.FeedRun{
		RunID:     runID,
		FeedURL:   policy.FeedURL,
		FeedName:  policy.FeedName,
		StartedAt: startedAt,
		Total:     outcome.Total,
		Saved:     outcome.Saved,
		Skipped:   outcome.Skipped,
		Expired:   outcome.Expired,
		Filtered:  outcome.Filtered,
		Failed:    outcome.Failed,
	}
	if err != nil {
		summary.Failed++
		run.Error = err.Error()
		logger.Error("Feed update failed", "feed", policy.FeedName, "url", policy.FeedURL, "error", err)
	}

	now := u.deps.Now()
	err = u.deps.Settings.UpdateFeed(policy.FeedURL, func(f *settings.Feed) {
		f.LastChecked = now.UnixMilli()
		if outcome.Saved > 0 {
			f.LastUpdated = now.UnixMilli()
		}
	})
	if err != nil {
		logger.Error("Failed to save feed state", "feed", policy.FeedName, "error", err)
	}

	cleanup, err := NewCleanupTask(policy.FeedName, saver.FeedFolder(policy), policy.Retention, u.deps.Cleaner, logger).Execute(ctx)
	if err != nil {
		logger.Error("Feed cleanup failed", "feed", policy.FeedName, "error", err)
	}
	summary.Cleaned += cleanup.Deleted
	run.Cleaned = cleanup.Deleted
	run.Duration = task.GetDuration()

	if u.deps.Runs != nil {
		if err := u.deps.Runs.RecordFeedRun(run); err != nil {
			logger.Warn("Failed to record feed run", "feed", policy.FeedName, "error", err)
		}
	}
}

// PurgeFeed removes a feed from the settings and deletes its output folder.
func (u *Updater) PurgeFeed(ctx context.Context, url string) error {
	release, err := u.acquire()
	if err != nil {
		return err
	}
	defer release()

	st := u.deps.Settings.Snapshot()
	f, ok := st.FindFeed(url)
	if !ok {
		return fmt.Errorf("feed %s not found", url)
	}
	folder := saver.FeedFolder(st.Resolve(f))

	if _, err := u.deps.Settings.RemoveFeed(url); err != nil {
		return fmt.Errorf("failed to remove feed: %w", err)
	}
	if err := u.deps.Store.RemoveAll(folder); err != nil {
		return fmt.Errorf("failed to remove feed folder: %w", err)
	}

	u.deps.Logger.Info("Feed purged", "feed", f.Name, "folder", folder)
	u.deps.Notifier.Notify(fmt.Sprintf("Feed %s and its notes were removed", f.Name))
	return nil
}
