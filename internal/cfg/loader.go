package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"./rss-pull.db" description:"Path to the SQLite database file"`

	// Fetching
	WorkerCount     int           `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of sources refreshed concurrently"`
	RefreshInterval time.Duration `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"30m" description:"Interval between scheduled refreshes"`
	FetchTimeout    time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30s" description:"Timeout for a single feed request"`
	HostInterval    time.Duration `long:"host-interval" env:"HOST_INTERVAL" default:"1s" description:"Minimum delay between requests to the same host (0 disables)"`
	UserAgent       string        `long:"user-agent" env:"USER_AGENT" default:"rss-pull/1.0" description:"User agent string for HTTP requests"`
	FeedsFile       string        `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yml" description:"YAML file with feed URLs to subscribe to at start-up"`

	// HTTP server
	Port     string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseURL  string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://feeds.example.com)"`
	Username string `long:"username" env:"AUTH_USERNAME" default:"admin" description:"Basic auth user name"`
	Password string `long:"password" env:"AUTH_PASSWORD" description:"Basic auth password (auth is disabled when empty)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for displayed timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses args together with the environment. The remaining positional
// arguments (command and its operands) are returned alongside the config.
// A nil config with a nil error means help was printed.
func Load(args []string) (*Cfg, []string, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.Usage = "[OPTIONS] serve | initdb | add <url>... | refresh [source-id] | list"

	rest, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		WorkerCount:     raw.WorkerCount,
		RefreshInterval: raw.RefreshInterval,
		FetchTimeout:    raw.FetchTimeout,
		HostInterval:    raw.HostInterval,
		UserAgent:       raw.UserAgent,
		FeedsFile:       raw.FeedsFile,
		Port:            raw.Port,
		BaseURL:         raw.BaseURL,
		Username:        raw.Username,
		Password:        raw.Password,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		return nil, nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return cfg, rest, nil
}

func validate(cfg *Cfg) error {
	switch {
	case cfg.DBPath == "":
		return fmt.Errorf("database path is required")
	case cfg.WorkerCount < 1:
		return fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	case cfg.RefreshInterval <= 0:
		return fmt.Errorf("refresh interval must be positive, got %s", cfg.RefreshInterval)
	case cfg.FetchTimeout <= 0:
		return fmt.Errorf("fetch timeout must be positive, got %s", cfg.FetchTimeout)
	case cfg.HostInterval < 0:
		return fmt.Errorf("host interval must not be negative, got %s", cfg.HostInterval)
	}
	return nil
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
