package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/feed-vault/app/api"
	"github.com/lysyi3m/feed-vault/app/cfg"
	"github.com/lysyi3m/feed-vault/app/saver"
	"github.com/lysyi3m/feed-vault/app/tasks"
)

func main() {
	var opts cfg.Options
	parser := flags.NewParser(&opts, flags.Default)

	parser.AddCommand("serve", "Run scheduled updates and the HTTP API",
		"Runs an update at start, then on every update interval, and serves the HTTP API.",
		&serveCommand{opts: &opts})
	parser.AddCommand("update", "Run one update and exit",
		"Fetches every active feed (or one feed with --feed) and writes new notes.",
		&updateCommand{opts: &opts})
	parser.AddCommand("feeds", "List configured feeds",
		"Prints the configured feeds with their output folders and last update times.",
		&feedsCommand{opts: &opts})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

func setup(opts *cfg.Options) (*application, error) {
	c, err := opts.Build()
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger(c, os.Stderr)
	slog.SetDefault(logger)

	return newApplication(c, logger)
}

type serveCommand struct {
	opts *cfg.Options
}

func (cmd *serveCommand) Execute(args []string) error {
	app, err := setup(cmd.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	c := app.cfg
	slog.Info("Starting Feed Vault", "version", c.Version, "vault", c.VaultDir, "settings", c.SettingsFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(app.settings.Snapshot().UpdateInterval) * time.Minute
	scheduler := tasks.NewScheduler(app.updater, interval)
	scheduler.Start()
	slog.Info("Scheduler started", "interval", interval)

	handler := api.NewHandler(ctx, app.settings, app.updater, scheduler, app.runs)
	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(handler, c.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err = <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	stop()
	scheduler.Stop()

	slog.Info("Feed Vault shutdown complete")
	return err
}

type updateCommand struct {
	opts *cfg.Options
	Feed string `long:"feed" description:"Only update the feed with this URL"`
}

func (cmd *updateCommand) Execute(args []string) error {
	app, err := setup(cmd.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := app.updater.Run(ctx, tasks.RunOptions{FeedURL: cmd.Feed})
	if err != nil {
		return err
	}

	fmt.Printf("Updated %d feeds: %d new notes, %d removed, %d failed (%s)\n",
		summary.Feeds, summary.Saved, summary.Cleaned, summary.Failed, summary.Duration.Round(time.Millisecond))
	return nil
}

type feedsCommand struct {
	opts *cfg.Options
}

func (cmd *feedsCommand) Execute(args []string) error {
	app, err := setup(cmd.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	st := app.settings.Snapshot()
	if len(st.Feeds) == 0 {
		fmt.Println("No feeds configured")
		return nil
	}

	rows := make([][]string, 0, len(st.Feeds))
	for _, f := range st.Feeds {
		policy := st.Resolve(f)
		rows = append(rows, []string{
			f.Name,
			feedStatus(f.Enabled, f.Archived, f.Deleted),
			saver.FeedFolder(policy),
			strconv.Itoa(policy.UpdateInterval) + "m",
			sinceMillis(f.LastChecked),
			sinceMillis(f.LastUpdated),
		})
	}

	fmt.Println(renderTable(
		[]string{"Feed", "Status", "Folder", "Interval", "Checked", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	return nil
}

func feedStatus(enabled, archived, deleted bool) string {
	switch {
	case deleted:
		return "deleted"
	case archived:
		return "archived"
	case enabled:
		return "enabled"
	default:
		return "disabled"
	}
}

func sinceMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return humanize.Time(time.UnixMilli(ms))
}
