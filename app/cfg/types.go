package cfg

type Cfg struct {
	// Storage
	VaultDir     string
	SettingsFile string
	DataDir      string
	History      bool

	// HTTP server
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	LogFormat string
	NtfyURL   string
	Version   string
}
