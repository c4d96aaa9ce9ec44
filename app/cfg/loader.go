package cfg

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

var logFormats = []string{"auto", "text", "json"}

// Options are the global flags shared by every command.
type Options struct {
	VaultDir     string `long:"vault" env:"VAULT_DIR" default:"./vault" description:"Directory notes are written to"`
	SettingsFile string `long:"settings" env:"SETTINGS_FILE" description:"Settings file (default: <data-dir>/settings.yml)"`
	DataDir      string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for run history and the update lock"`
	NoHistory    bool   `long:"no-history" env:"NO_HISTORY" description:"Do not record feed runs in the history database"`

	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Feed Vault/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" description:"Timezone for dates in notes (e.g., UTC, Europe/Berlin)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"auto" choice:"auto" choice:"text" choice:"json" description:"Log output format"`
	NtfyURL   string `long:"ntfy-url" env:"NTFY_URL" description:"ntfy topic URL for run notifications (optional)"`
}

// Build validates the options, applies the timezone and resolves derived
// paths.
func (o *Options) Build() (*Cfg, error) {
	if o.VaultDir == "" {
		return nil, fmt.Errorf("vault directory is required")
	}
	format := cmp.Or(o.LogFormat, "auto")
	if !slices.Contains(logFormats, format) {
		return nil, fmt.Errorf("unsupported log format %q", o.LogFormat)
	}

	vaultDir, err := filepath.Abs(o.VaultDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault directory: %w", err)
	}
	dataDir, err := filepath.Abs(cmp.Or(o.DataDir, "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	cfg := &Cfg{
		VaultDir:     vaultDir,
		SettingsFile: cmp.Or(o.SettingsFile, filepath.Join(dataDir, "settings.yml")),
		DataDir:      dataDir,
		History:      !o.NoHistory,
		Port:         o.Port,
		APIAccessKey: o.APIAccessKey,
		UserAgent:    o.UserAgent,
		Timezone:     o.Timezone,
		Debug:        o.Debug,
		LogFormat:    format,
		NtfyURL:      o.NtfyURL,
		Version:      GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// EnsureDirs creates the vault and data directories.
func (c *Cfg) EnsureDirs() error {
	for _, dir := range []string{c.VaultDir, c.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Cfg) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

func (c *Cfg) LockPath() string {
	return filepath.Join(c.DataDir, "update.lock")
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
