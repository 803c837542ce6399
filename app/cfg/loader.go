package cfg

import (
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version == "" {
		return "unknown"
	}
	return Version
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./cdn_comb.db" description:"Path to the SQLite database file"`

	// Application configuration
	AssetsDir         string `long:"assets-dir" env:"ASSETS_DIR" default:"./assets" description:"Directory containing asset group configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for asset processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler tick interval in seconds"`
	CheckInterval     int    `long:"check-interval" env:"CHECK_INTERVAL" default:"3600" description:"Minimum seconds between checks of the same asset"`
	DiscoveryInterval int    `long:"discovery-interval" env:"DISCOVERY_INTERVAL" default:"21600" description:"Seconds between canary page discovery passes"`
	FetchTimeout      int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Timeout in seconds for asset fetches"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Detection and migration tuning
	FailureThreshold        int     `long:"failure-threshold" env:"FAILURE_THRESHOLD" default:"3" description:"Consecutive fetch failures before an alert fires"`
	SizeAnomalyFactor       float64 `long:"size-anomaly-factor" env:"SIZE_ANOMALY_FACTOR" default:"5.0" description:"Reject migrations when sizes diverge by more than this factor"`
	PreferEarliestCandidate bool    `long:"prefer-earliest-candidate" env:"PREFER_EARLIEST_CANDIDATE" description:"Promote the earliest discovered candidate instead of the highest version"`
	CanaryPages             string  `long:"canary-pages" env:"CANARY_PAGES" description:"Comma-separated list of page URLs to scan for asset references"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"CDN Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:                  raw.DBPath,
		AssetsDir:               raw.AssetsDir,
		Port:                    raw.Port,
		WorkerCount:             raw.WorkerCount,
		SchedulerInterval:       raw.SchedulerInterval,
		CheckInterval:           raw.CheckInterval,
		DiscoveryInterval:       raw.DiscoveryInterval,
		FetchTimeout:            raw.FetchTimeout,
		APIAccessKey:            raw.APIAccessKey,
		FailureThreshold:        raw.FailureThreshold,
		SizeAnomalyFactor:       raw.SizeAnomalyFactor,
		PreferEarliestCandidate: raw.PreferEarliestCandidate,
		CanaryPages:             splitList(raw.CanaryPages),
		UserAgent:               raw.UserAgent,
		Timezone:                raw.Timezone,
		Debug:                   raw.Debug,
		Version:                 GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
