package saver

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/lysyi3m/feed-vault/app/frontmatter"
	"github.com/lysyi3m/feed-vault/app/settings"
	"github.com/lysyi3m/feed-vault/app/vault"
)

// PublishedKeys are the frontmatter keys read as a note's publish date.
var PublishedKeys = []string{"published", "pubDate", "datepub", "date", "upload date"}

type CleanupResult struct {
	Checked   int
	Deleted   int
	Protected int
	Failed    int
}

func (r *CleanupResult) add(o CleanupResult) {
	r.Checked += o.Checked
	r.Deleted += o.Deleted
	r.Protected += o.Protected
	r.Failed += o.Failed
}

type Cleaner struct {
	store  vault.Storage
	now    func() time.Time
	logger *slog.Logger
}

func NewCleaner(store vault.Storage, now func() time.Time, logger *slog.Logger) *Cleaner {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{store: store, now: now, logger: logger}
}

// Run deletes notes under folder that are older than the retention cutoff
// and records them as deleted in the ledger of their own folder. Failures
// on single files are logged and counted; only a failed listing is
// returned as an error.
func (c *Cleaner) Run(ctx context.Context, folder string, retention settings.Retention) (CleanupResult, error) {
	var result CleanupResult
	if !retention.Enabled() {
		return result, nil
	}

	files, err := c.store.List(folder)
	if err != nil {
		return result, err
	}

	now := c.now()
	cutoff := retention.Cutoff(now)
	ledgers := make(map[string]*Ledger)

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		if path.Base(file) == LedgerFile || !strings.HasSuffix(file, NoteExtension) {
			continue
		}
		result.add(c.cleanFile(file, retention, cutoff, now, ledgers))
	}

	for dir, ledger := range ledgers {
		if err := ledger.Flush(c.store, now); err != nil {
			c.logger.Error("Failed to write ledger after cleanup", "folder", dir, "error", err)
		}
	}

	return result, ctx.Err()
}

func (c *Cleaner) cleanFile(file string, retention settings.Retention, cutoff, now time.Time, ledgers map[string]*Ledger) CleanupResult {
	info, err := c.store.Stat(file)
	if err != nil {
		c.logger.Warn("Cleanup stat failed", "file", file, "error", err)
		return CleanupResult{Checked: 1, Failed: 1}
	}

	content, err := c.store.ReadFile(file)
	if err != nil {
		c.logger.Warn("Cleanup read failed", "file", file, "error", err)
		return CleanupResult{Checked: 1, Failed: 1}
	}
	fields, _ := frontmatter.Parse(content)

	stamp := info.ModTime
	if retention.DateField == settings.DateFieldPublished {
		stamp = info.CreatedAt
		if published, ok := fields.Time(PublishedKeys...); ok {
			stamp = published
		}
	}
	if !stamp.Before(cutoff) {
		return CleanupResult{Checked: 1}
	}

	if retention.CheckProperty && !fields.IsTrue(retention.Property) {
		return CleanupResult{Checked: 1, Protected: 1}
	}

	if err := c.store.Remove(file); err != nil {
		c.logger.Warn("Cleanup delete failed", "file", file, "error", err)
		return CleanupResult{Checked: 1, Failed: 1}
	}

	if link := fields.String("link"); link != "" {
		dir := path.Dir(file)
		ledger, ok := ledgers[dir]
		if !ok {
			ledger = LoadLedger(c.store, dir)
			ledgers[dir] = ledger
		}
		ledger.MarkDeleted(link, now)
	}

	c.logger.Debug("Expired note deleted", "file", file)
	return CleanupResult{Checked: 1, Deleted: 1}
}
