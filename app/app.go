package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/flock"

	"github.com/lysyi3m/feed-vault/app/cfg"
	"github.com/lysyi3m/feed-vault/app/database"
	"github.com/lysyi3m/feed-vault/app/feed"
	"github.com/lysyi3m/feed-vault/app/image"
	"github.com/lysyi3m/feed-vault/app/notify"
	"github.com/lysyi3m/feed-vault/app/saver"
	"github.com/lysyi3m/feed-vault/app/settings"
	"github.com/lysyi3m/feed-vault/app/tasks"
	"github.com/lysyi3m/feed-vault/app/vault"
)

// application holds the components every command shares.
type application struct {
	cfg      *cfg.Cfg
	logger   *slog.Logger
	settings *settings.Store
	db       *database.DB
	runs     database.RunRepository
	notifier notify.Notifier
	updater  *tasks.Updater
}

func newApplication(c *cfg.Cfg, logger *slog.Logger) (*application, error) {
	if err := c.EnsureDirs(); err != nil {
		return nil, err
	}

	store := settings.NewStore(c.SettingsFile)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	app := &application{cfg: c, logger: logger, settings: store}

	if c.History {
		db, err := database.NewConnection(c.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate run history: %w", err)
		}
		logger.Debug("Run history ready", "path", c.HistoryPath(), "version", version, "dirty", dirty)
		app.db = db
		app.runs = database.NewRunRepository(db)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	vaultFS := vault.NewFS(c.VaultDir)

	app.notifier = notify.New(c.NtfyURL, c.UserAgent, logger)

	deps := tasks.Deps{
		Settings: store,
		Fetcher:  feed.NewFetcher(httpClient, feed.NewParser(), c.UserAgent),
		Saver: saver.NewSaver(saver.Options{
			Store:      vaultFS,
			Resolver:   image.NewResolver(httpClient, c.UserAgent, logger),
			Downloader: image.NewDownloader(httpClient, c.UserAgent, vaultFS, logger),
			Extractor:  feed.NewContentExtractor(httpClient, c.UserAgent),
			Logger:     logger,
		}),
		Cleaner:  saver.NewCleaner(vaultFS, nil, logger),
		Store:    vaultFS,
		Notifier: app.notifier,
		Runs:     app.runs,
		Lock:     flock.New(c.LockPath()),
		Logger:   logger,
	}
	app.updater = tasks.NewUpdater(deps)

	return app, nil
}

func (a *application) Close() {
	notify.Wait(a.notifier)
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close run history", "error", err)
		}
	}
}
