package settings

import (
	"github.com/lysyi3m/feed-vault/app/feed"
)

type Settings struct {
	Root             string    `yaml:"root"`
	UpdateInterval   int       `yaml:"update_interval"` // minutes, 0 disables the timer
	AttachmentFolder string    `yaml:"attachment_folder"`
	ExtractContent   bool      `yaml:"extract_content"`
	Templates        Templates `yaml:"templates"`
	Cleanup          Cleanup   `yaml:"cleanup"`
	Images           Images    `yaml:"images"`
	Groups           []Group   `yaml:"groups"`
	Feeds            []Feed    `yaml:"feeds"`
}

type Templates struct {
	FileName    string `yaml:"filename"`
	Frontmatter string `yaml:"frontmatter"`
	Body        string `yaml:"body"`
}

type Cleanup struct {
	Value         int    `yaml:"value"` // 0 disables cleanup
	Unit          string `yaml:"unit"`  // minutes, hours, days, weeks, months
	DateField     string `yaml:"date_field"`
	CheckProperty bool   `yaml:"check_property"`
	Property      string `yaml:"property"`
}

type Images struct {
	Download      bool   `yaml:"download"`
	Location      string `yaml:"location"`
	Subfolder     string `yaml:"subfolder"`
	SubfolderBase string `yaml:"subfolder_base"`
	Folder        string `yaml:"folder"`
	FetchPage     bool   `yaml:"fetch_page"`
}

type Group struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Collapsed bool   `yaml:"collapsed"`
}

type Feed struct {
	Name           string        `yaml:"name"`
	URL            string        `yaml:"url"`
	Folder         string        `yaml:"folder,omitempty"`
	Enabled        bool          `yaml:"enabled"`
	GroupID        string        `yaml:"group_id,omitempty"`
	LastUpdated    int64         `yaml:"last_updated,omitempty"` // epoch ms
	LastChecked    int64         `yaml:"last_checked,omitempty"` // epoch ms
	Archived       bool          `yaml:"archived,omitempty"`
	Deleted        bool          `yaml:"deleted,omitempty"`
	DeletedAt      int64         `yaml:"deleted_at,omitempty"` // epoch ms
	UpdateInterval int           `yaml:"update_interval,omitempty"`
	Filters        []feed.Filter `yaml:"filters,omitempty"`

	Templates *TemplateOverride `yaml:"templates,omitempty"`
	Cleanup   *CleanupOverride  `yaml:"cleanup,omitempty"`
	Images    *ImagesOverride   `yaml:"images,omitempty"`
}

// Override fields left nil fall back to the global settings.

type TemplateOverride struct {
	FileName    *string `yaml:"filename,omitempty"`
	Frontmatter *string `yaml:"frontmatter,omitempty"`
	Body        *string `yaml:"body,omitempty"`
}

type CleanupOverride struct {
	Value         *int    `yaml:"value,omitempty"`
	Unit          *string `yaml:"unit,omitempty"`
	DateField     *string `yaml:"date_field,omitempty"`
	CheckProperty *bool   `yaml:"check_property,omitempty"`
	Property      *string `yaml:"property,omitempty"`
}

type ImagesOverride struct {
	Download      *bool   `yaml:"download,omitempty"`
	Location      *string `yaml:"location,omitempty"`
	Subfolder     *string `yaml:"subfolder,omitempty"`
	SubfolderBase *string `yaml:"subfolder_base,omitempty"`
	Folder        *string `yaml:"folder,omitempty"`
	FetchPage     *bool   `yaml:"fetch_page,omitempty"`
}

const (
	DateFieldPublished = "datepub"
	DateFieldSaved     = "datesaved"

	LocationDefault   = "default"
	LocationRoot      = "root"
	LocationNote      = "note"
	LocationSubfolder = "subfolder"
	LocationCustom    = "custom"

	SubfolderBaseFeed = "feed"
	SubfolderBaseRoot = "root"
)

const defaultFrontmatter = `title: "{{title}}"
link: "{{link}}"
author: "[[{{author}}]]"
feed: "[[{{feedname}}]]"
published: "{{datepub}}"
saved: "{{datesaved}}"
image: {{image}}
read: false`

func Default() Settings {
	return Settings{
		Root:             "Feeds",
		UpdateInterval:   60,
		AttachmentFolder: "attachments",
		Templates: Templates{
			FileName:    "{{title}}",
			Frontmatter: defaultFrontmatter,
			Body:        "{{image}}\n\n{{content}}",
		},
		Cleanup: Cleanup{
			Value:     0,
			Unit:      "days",
			DateField: DateFieldPublished,
			Property:  "read",
		},
		Images: Images{
			Location:      LocationDefault,
			Subfolder:     "images",
			SubfolderBase: SubfolderBaseFeed,
			FetchPage:     true,
		},
	}
}
