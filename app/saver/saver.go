// Package saver turns feed items into markdown notes and expires them.
package saver

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/lysyi3m/feed-vault/app/feed"
	"github.com/lysyi3m/feed-vault/app/render"
	"github.com/lysyi3m/feed-vault/app/settings"
	"github.com/lysyi3m/feed-vault/app/vault"
)

type Result int

const (
	ResultFailed Result = iota
	ResultSaved
	ResultDeleted
	ResultExpired
	ResultExists
	ResultFiltered
)

func (r Result) String() string {
	switch r {
	case ResultFailed:
		return "failed"
	case ResultSaved:
		return "saved"
	case ResultDeleted:
		return "deleted"
	case ResultExpired:
		return "expired"
	case ResultExists:
		return "exists"
	case ResultFiltered:
		return "filtered"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

type ImageResolver interface {
	Resolve(ctx context.Context, entry *feed.Node, pageURL string, fetchPage bool) string
}

type ImageDownloader interface {
	Download(ctx context.Context, imageURL, folder, baseName string) string
}

type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

type Saver struct {
	store      vault.Storage
	resolver   ImageResolver
	downloader ImageDownloader
	extractor  ContentExtractor
	filterer   *feed.Filterer
	now        func() time.Time
	logger     *slog.Logger
}

type Options struct {
	Store      vault.Storage
	Resolver   ImageResolver
	Downloader ImageDownloader
	Extractor  ContentExtractor
	Now        func() time.Time
	Logger     *slog.Logger
}

func NewSaver(opts Options) *Saver {
	s := &Saver{
		store:      opts.Store,
		resolver:   opts.Resolver,
		downloader: opts.Downloader,
		extractor:  opts.Extractor,
		filterer:   feed.NewFilterer(),
		now:        opts.Now,
		logger:     opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Session saves the items of one feed run into one folder.
type Session struct {
	saver  *Saver
	policy settings.Policy
	folder string
	ledger *Ledger
	render render.Context
}

// Begin opens a session for the feed described by policy, loading the
// ledger of its folder once.
func (s *Saver) Begin(policy settings.Policy) *Session {
	folder := FeedFolder(policy)
	return &Session{
		saver:  s,
		policy: policy,
		folder: folder,
		ledger: LoadLedger(s.store, folder),
		render: render.Context{FeedName: policy.FeedName, Now: s.now()},
	}
}

func (ss *Session) Folder() string {
	return ss.folder
}

func (ss *Session) Ledger() *Ledger {
	return ss.ledger
}

// Save writes item as a note unless the ledger already knows its link, it
// is expired, it is filtered out or the note file already exists. Only I/O
// failures return an error.
func (ss *Session) Save(ctx context.Context, entry *feed.Node, item feed.Item) (Result, error) {
	s := ss.saver
	now := s.now()

	if item.Link != "" {
		if known, ok := ss.ledger.Entry(item.Link); ok {
			if known.Deleted {
				return ResultDeleted, nil
			}
			// already produced, even if the note was removed or renamed since
			if known.SavedAt > 0 {
				return ResultExists, nil
			}
		}
	}

	if filtered, reason := s.filterer.Run(item, ss.policy.Filters); filtered {
		s.logger.Debug("Item filtered", "feed", ss.policy.FeedName, "link", item.Link, "reason", reason)
		return ResultFiltered, nil
	}

	if ss.expiredBeforeSave(item, now) {
		if item.Link != "" {
			ss.ledger.MarkDeleted(item.Link, now)
		}
		return ResultExpired, nil
	}

	fileName := feed.SanitizeFileName(render.Render(ss.policy.Templates.FileName, item, render.ModeFileName, ss.render))
	if fileName == "" {
		fileName = "Untitled"
	}
	notePath := path.Join(ss.folder, fileName+NoteExtension)

	exists, err := s.store.Exists(notePath)
	if err != nil {
		return ResultFailed, err
	}
	if exists {
		return ResultExists, nil
	}

	if err := s.store.MkdirAll(ss.folder); err != nil {
		return ResultFailed, err
	}

	item = ss.extractContent(ctx, item)
	item = ss.attachImage(ctx, entry, item, fileName)

	frontmatter := render.Render(ss.policy.Templates.Frontmatter, item, render.ModeYAML, ss.render)
	body := strings.TrimLeft(render.Render(ss.policy.Templates.Body, item, render.ModeBody, ss.render), "\n")
	note := "---\n" + frontmatter + "\n---\n\n" + body

	if err := s.store.WriteFile(notePath, note); err != nil {
		return ResultFailed, err
	}

	if item.Link != "" {
		ss.ledger.MarkSaved(item.Link, now)
	}
	return ResultSaved, nil
}

// expiredBeforeSave applies the retention cutoff to the publish date so
// content that would be cleaned up right away is never written. It only
// runs for publish-date retention without the protected-property gate; an
// unparseable date never expires.
func (ss *Session) expiredBeforeSave(item feed.Item, now time.Time) bool {
	r := ss.policy.Retention
	if !r.Enabled() || r.CheckProperty || r.DateField != settings.DateFieldPublished {
		return false
	}
	published, ok := feed.ParsePubDate(item.PubDate)
	if !ok {
		return false
	}
	return published.Before(r.Cutoff(now))
}

func (ss *Session) extractContent(ctx context.Context, item feed.Item) feed.Item {
	s := ss.saver
	if !ss.policy.ExtractContent || s.extractor == nil || item.Link == "" {
		return item
	}
	content, err := s.extractor.Extract(ctx, item.Link)
	if err != nil {
		s.logger.Warn("Content extraction failed, keeping feed content", "feed", ss.policy.FeedName, "link", item.Link, "error", err)
		return item
	}
	return item.WithContent(content)
}

func (ss *Session) attachImage(ctx context.Context, entry *feed.Node, item feed.Item, fileName string) feed.Item {
	s := ss.saver
	if s.resolver == nil || entry == nil {
		return item
	}
	imageURL := s.resolver.Resolve(ctx, entry, item.Link, ss.policy.Images.FetchPage)
	if imageURL == "" {
		return item
	}
	if ss.policy.Images.Download && s.downloader != nil {
		imageURL = s.downloader.Download(ctx, imageURL, ImageFolder(ss.policy, ss.folder), fileName)
	}
	return item.WithImage(imageURL)
}

// Commit writes the ledger when the session changed it.
func (ss *Session) Commit() error {
	return ss.ledger.Flush(ss.saver.store, ss.saver.now())
}
