package settings

import (
	"cmp"
	"time"

	"github.com/lysyi3m/feed-vault/app/feed"
)

// Policy is the configuration for one feed: global settings with that
// feed's overrides already applied.
type Policy struct {
	FeedName         string
	FeedURL          string
	Root             string
	GroupName        string
	FolderName       string
	AttachmentFolder string
	ExtractContent   bool
	UpdateInterval   int
	Templates        Templates
	Retention        Retention
	Images           Images
	Filters          []feed.Filter
}

// Retention decides when saved notes expire.
type Retention struct {
	Value         int
	Unit          string
	DateField     string
	CheckProperty bool
	Property      string
}

func (r Retention) Enabled() bool {
	return r.Value > 0
}

// Cutoff returns the instant before which notes are expired.
func (r Retention) Cutoff(now time.Time) time.Time {
	switch r.Unit {
	case "minutes":
		return now.Add(-time.Duration(r.Value) * time.Minute)
	case "hours":
		return now.Add(-time.Duration(r.Value) * time.Hour)
	case "weeks":
		return now.AddDate(0, 0, -7*r.Value)
	case "months":
		return now.AddDate(0, -r.Value, 0)
	default:
		return now.AddDate(0, 0, -r.Value)
	}
}

// Resolve merges the feed's overrides over s.
func (s Settings) Resolve(f Feed) Policy {
	p := Policy{
		FeedName:         f.Name,
		FeedURL:          f.URL,
		Root:             s.Root,
		GroupName:        s.GroupName(f.GroupID),
		FolderName:       cmp.Or(f.Folder, f.Name),
		AttachmentFolder: s.AttachmentFolder,
		ExtractContent:   s.ExtractContent,
		UpdateInterval:   cmp.Or(f.UpdateInterval, s.UpdateInterval),
		Templates:        s.Templates,
		Retention:        s.GlobalRetention(),
		Images:           s.Images,
		Filters:          f.Filters,
	}

	if o := f.Templates; o != nil {
		override(&p.Templates.FileName, o.FileName)
		override(&p.Templates.Frontmatter, o.Frontmatter)
		override(&p.Templates.Body, o.Body)
	}
	if o := f.Cleanup; o != nil {
		override(&p.Retention.Value, o.Value)
		override(&p.Retention.Unit, o.Unit)
		override(&p.Retention.DateField, o.DateField)
		override(&p.Retention.CheckProperty, o.CheckProperty)
		override(&p.Retention.Property, o.Property)
	}
	if o := f.Images; o != nil {
		override(&p.Images.Download, o.Download)
		override(&p.Images.Location, o.Location)
		override(&p.Images.Subfolder, o.Subfolder)
		override(&p.Images.SubfolderBase, o.SubfolderBase)
		override(&p.Images.Folder, o.Folder)
		override(&p.Images.FetchPage, o.FetchPage)
	}
	return p
}

func (s Settings) GlobalRetention() Retention {
	return Retention{
		Value:         s.Cleanup.Value,
		Unit:          s.Cleanup.Unit,
		DateField:     s.Cleanup.DateField,
		CheckProperty: s.Cleanup.CheckProperty,
		Property:      s.Cleanup.Property,
	}
}

func override[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (s Settings) GroupName(id string) string {
	if id == "" {
		return ""
	}
	for _, g := range s.Groups {
		if g.ID == id {
			return g.Name
		}
	}
	return ""
}

func (s Settings) FindFeed(url string) (Feed, bool) {
	for _, f := range s.Feeds {
		if f.URL == url {
			return f, true
		}
	}
	return Feed{}, false
}

// ActiveFeeds returns feeds that are enabled, have a URL and are not deleted.
func (s Settings) ActiveFeeds() []Feed {
	var active []Feed
	for _, f := range s.Feeds {
		if f.Enabled && f.URL != "" && !f.Deleted {
			active = append(active, f)
		}
	}
	return active
}
