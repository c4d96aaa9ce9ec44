package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/feed-vault/app/saver"
	"github.com/lysyi3m/feed-vault/app/settings"
)

type CleanupTask struct {
	Task
	Folder    string
	Retention settings.Retention
	cleaner   *saver.Cleaner
	logger    *slog.Logger
}

func NewCleanupTask(name, folder string, retention settings.Retention, cleaner *saver.Cleaner, logger *slog.Logger) *CleanupTask {
	return &CleanupTask{
		Task:      NewTask(TaskTypeCleanup, name),
		Folder:    folder,
		Retention: retention,
		cleaner:   cleaner,
		logger:    logger,
	}
}

// Execute removes expired notes under the task folder. A disabled
// retention is a no-op.
func (t *CleanupTask) Execute(ctx context.Context) (saver.CleanupResult, error) {
	if !t.Retention.Enabled() {
		return saver.CleanupResult{}, nil
	}
	t.Start()

	result, err := t.cleaner.Run(ctx, t.Folder, t.Retention)
	if err != nil {
		return result, err
	}

	if result.Deleted > 0 || result.Failed > 0 {
		t.logger.Info("Task completed",
			"type", string(t.Type),
			"feed", t.FeedName,
			"folder", t.Folder,
			"duration", t.GetDuration(),
			"checked", result.Checked,
			"deleted", result.Deleted,
			"protected", result.Protected,
			"failed", result.Failed)
	}
	return result, nil
}
