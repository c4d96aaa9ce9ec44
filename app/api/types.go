package api

import (
	"context"

	"github.com/lysyi3m/feed-vault/app/database"
	"github.com/lysyi3m/feed-vault/app/settings"
	"github.com/lysyi3m/feed-vault/app/tasks"
)

type UpdaterInterface interface {
	Run(ctx context.Context, opts tasks.RunOptions) (tasks.Summary, error)
	PurgeFeed(ctx context.Context, url string) error
	State() tasks.State
}

var _ UpdaterInterface = (*tasks.Updater)(nil)

type Handler struct {
	ctx       context.Context
	settings  *settings.Store
	updater   UpdaterInterface
	scheduler tasks.SchedulerInterface
	runs      database.RunRepository
}

type intervalRequest struct {
	Minutes *int `json:"minutes" binding:"required"`
}

type feedInfo struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	Group          string `json:"group,omitempty"`
	Folder         string `json:"folder"`
	Enabled        bool   `json:"enabled"`
	Archived       bool   `json:"archived"`
	Deleted        bool   `json:"deleted"`
	UpdateInterval int    `json:"update_interval"`
	Filters        int    `json:"filters"`
	LastUpdated    int64  `json:"last_updated"`
	LastChecked    int64  `json:"last_checked"`
}
