package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/subosito/gotenv"

	"github.com/lysyi3m/bili-feedgen/app/feed"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// One-shot generation
	Count       int      `short:"c" long:"count" env:"COUNT" default:"30" description:"Number of latest videos to include; applied before filters"`
	OutputFile  string   `short:"o" long:"output-file" env:"OUTPUT_FILE" description:"Write feed to file rather than print to stdout"`
	ForceWrite  bool     `long:"force-write" env:"FORCE_WRITE" description:"Overwrite the output file even if the feed content is unchanged"`
	FeedURL     string   `short:"u" long:"feed-url" env:"FEED_URL" default:"http://0.0.0.0:8000/atom.xml" description:"URL where the feed will be served at"`
	Filters     []string `short:"f" long:"filter" env:"FILTERS" env-delim:";" value-name:"FILTER" description:"Space-delimited keywords an entry must all contain in its title or description; repeat to accept entries passing any filter"`
	DisplayName string   `short:"n" long:"name" env:"DISPLAY_NAME" description:"Display name of the uploader, instead of the one reported by the API"`
	AllowEmpty  bool     `long:"allow-empty" env:"ALLOW_EMPTY" description:"Generate an empty feed instead of failing when the API returns no videos"`
	ShowVersion bool     `short:"V" long:"version" description:"Show version and exit"`

	// Service mode
	FeedsDir          string `long:"feeds-dir" env:"FEEDS_DIR" description:"Directory of <name>.yml feed definitions to regenerate periodically"`
	Listen            string `long:"listen" env:"LISTEN" description:"Address to serve feeds on, e.g. :8000"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler tick in seconds"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for feed generation"`
	HistoryDB         string `long:"history-db" env:"HISTORY_DB" description:"SQLite file recording every generation run (optional)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the management endpoints (optional)"`

	// API client
	APIURL    string  `long:"api-url" env:"API_URL" default:"http://space.bilibili.com" description:"Base URL of the Bilibili member API"`
	UserAgent string  `long:"user-agent" env:"USER_AGENT" default:"bili-feedgen/1.0" description:"User agent string for HTTP requests"`
	Timeout   int     `long:"timeout" env:"TIMEOUT" default:"30" description:"API request timeout in seconds"`
	RateLimit float64 `long:"rate-limit" env:"RATE_LIMIT" default:"1" description:"Maximum API requests per second, 0 for unlimited"`

	// Application metadata
	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Args struct {
		MemberID string `positional-arg-name:"MEMBER_ID" description:"The id following space.bilibili.com/, e.g. 1315101 (env MEMBER_ID)"`
	} `positional-args:"yes"`
}

// Load parses args (without the program name) together with the
// environment. A .env file, or the file named by ENV_FILE, is read first
// without overriding variables that are already set. Load returns nil, nil
// when help was requested.
func Load(args []string) (*Cfg, error) {
	envFile := cmp.Or(os.Getenv("ENV_FILE"), ".env")
	if err := gotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.Usage = "[OPTIONS] [MEMBER_ID]"

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		MemberID:          cmp.Or(raw.Args.MemberID, os.Getenv("MEMBER_ID")),
		Count:             raw.Count,
		OutputFile:        raw.OutputFile,
		ForceWrite:        raw.ForceWrite,
		FeedURL:           raw.FeedURL,
		Filters:           raw.Filters,
		DisplayName:       raw.DisplayName,
		AllowEmpty:        raw.AllowEmpty,
		ShowVersion:       raw.ShowVersion,
		FeedsDir:          raw.FeedsDir,
		Listen:            raw.Listen,
		SchedulerInterval: raw.SchedulerInterval,
		WorkerCount:       raw.WorkerCount,
		HistoryDB:         raw.HistoryDB,
		APIAccessKey:      raw.APIAccessKey,
		APIURL:            raw.APIURL,
		UserAgent:         raw.UserAgent,
		Timeout:           raw.Timeout,
		RateLimit:         raw.RateLimit,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if cfg.ShowVersion {
		return cfg, nil
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Cfg) validate() error {
	if c.MemberID == "" && !c.ServiceMode() {
		return fmt.Errorf("MEMBER_ID is required unless --feeds-dir or --listen is given")
	}
	if c.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", c.Count)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	if c.SchedulerInterval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %d", c.SchedulerInterval)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative, got %v", c.RateLimit)
	}
	return nil
}

// ServiceMode reports whether the process should keep running as a
// scheduler and/or HTTP server instead of generating one feed and exiting.
func (c *Cfg) ServiceMode() bool {
	return c.FeedsDir != "" || c.Listen != ""
}

func (c *Cfg) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Cfg) GeneratorName() string {
	return "bili-feedgen/" + c.Version
}

// FeedConfig describes the feed requested on the command line.
func (c *Cfg) FeedConfig() *feed.Config {
	feedConfig := &feed.Config{
		Name:        c.MemberID,
		MemberID:    c.MemberID,
		FeedURL:     c.FeedURL,
		DisplayName: c.DisplayName,
		Output:      c.OutputFile,
		Filters:     c.Filters,
		Settings: feed.ConfigSettings{
			Enabled:    true,
			Count:      c.Count,
			ForceWrite: c.ForceWrite,
			AllowEmpty: c.AllowEmpty,
		},
	}
	feed.ApplyDefaults(feedConfig)
	return feedConfig
}
