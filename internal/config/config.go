package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix     = "NEWSARCHIVE"
	configPathEnv = "NEWSARCHIVE_CONFIG"
	dateLayout    = "2006-01-02"
)

// Configuration validation errors.
var (
	ErrMissingStartDate  = errors.New("crawl.startDate is required")
	ErrMissingEndDate    = errors.New("crawl.endDate is required")
	ErrDateOrder         = errors.New("crawl.startDate must not be after crawl.endDate")
	ErrMissingOutputPath = errors.New("output.path is required")
	ErrNegativeDelay     = errors.New("http.requestDelay must be non-negative")
	ErrInvalidTimeout    = errors.New("http.timeout must be positive")
	ErrNegativeRetries   = errors.New("http.maxRetries must be non-negative")
)

// Config holds high-level settings required across the application.
type Config struct {
	Crawl   CrawlConfig   `yaml:"crawl"`
	Site    SiteConfig    `yaml:"site"`
	HTTP    HTTPConfig    `yaml:"http"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// CrawlConfig bounds the date range and checkpoint cadence of one crawl.
type CrawlConfig struct {
	StartDate string `yaml:"startDate" split_words:"true"`
	EndDate   string `yaml:"endDate" split_words:"true"`
	// CheckpointEvery persists crawl state after every N stored
	// articles, on top of the per-date checkpoint.
	CheckpointEvery int `yaml:"checkpointEvery" split_words:"true"`
}

// Dates parses the configured crawl range.
func (c CrawlConfig) Dates() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("crawl.startDate: %w", err)
	}
	end, err = time.Parse(dateLayout, c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("crawl.endDate: %w", err)
	}
	return start, end, nil
}

// SiteConfig selects the site profile and optionally overrides its base URL.
type SiteConfig struct {
	Profile string `yaml:"profile"`
	BaseURL string `yaml:"baseUrl" split_words:"true"`
}

// HTTPConfig carries the politeness and resilience knobs of the fetcher.
type HTTPConfig struct {
	RequestDelay time.Duration `yaml:"requestDelay" split_words:"true"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"maxRetries" split_words:"true"`
	UserAgent    string        `yaml:"userAgent" split_words:"true"`
	// IgnoreRobots skips the robots.txt check; the default is to respect it.
	IgnoreRobots bool `yaml:"ignoreRobots" split_words:"true"`
}

// OutputConfig points at the corpus directory.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration and applies environment overrides
// (NEWSARCHIVE_* variables, e.g. NEWSARCHIVE_HTTP_REQUEST_DELAY). The
// path argument wins over NEWSARCHIVE_CONFIG; an empty path with no env
// variable loads defaults plus environment overrides only.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	// A missing .env file is the normal case outside development.
	_ = godotenv.Load()
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}

	return cfg, nil
}

// Validate checks the invariants the crawler depends on. Violations are
// configuration errors and abort the process with a non-zero exit.
func (c Config) Validate() error {
	if c.Crawl.StartDate == "" {
		return ErrMissingStartDate
	}
	if c.Crawl.EndDate == "" {
		return ErrMissingEndDate
	}
	start, end, err := c.Crawl.Dates()
	if err != nil {
		return err
	}
	if start.After(end) {
		return ErrDateOrder
	}
	if c.Output.Path == "" {
		return ErrMissingOutputPath
	}
	if c.HTTP.RequestDelay < 0 {
		return ErrNegativeDelay
	}
	if c.HTTP.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.HTTP.MaxRetries < 0 {
		return ErrNegativeRetries
	}
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Crawl.StartDate != "" {
		base.Crawl.StartDate = override.Crawl.StartDate
	}
	if override.Crawl.EndDate != "" {
		base.Crawl.EndDate = override.Crawl.EndDate
	}
	if override.Crawl.CheckpointEvery > 0 {
		base.Crawl.CheckpointEvery = override.Crawl.CheckpointEvery
	}

	if override.Site.Profile != "" {
		base.Site.Profile = override.Site.Profile
	}
	if override.Site.BaseURL != "" {
		base.Site.BaseURL = override.Site.BaseURL
	}

	if override.HTTP.RequestDelay > 0 {
		base.HTTP.RequestDelay = override.HTTP.RequestDelay
	}
	if override.HTTP.Timeout > 0 {
		base.HTTP.Timeout = override.HTTP.Timeout
	}
	if override.HTTP.MaxRetries > 0 {
		base.HTTP.MaxRetries = override.HTTP.MaxRetries
	}
	if override.HTTP.UserAgent != "" {
		base.HTTP.UserAgent = override.HTTP.UserAgent
	}
	if override.HTTP.IgnoreRobots {
		base.HTTP.IgnoreRobots = true
	}

	if override.Output.Path != "" {
		base.Output.Path = override.Output.Path
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Crawl: CrawlConfig{CheckpointEvery: 25},
		Site:  SiteConfig{Profile: "spiegel"},
		HTTP: HTTPConfig{
			RequestDelay: 2 * time.Second,
			Timeout:      15 * time.Second,
			MaxRetries:   3,
			UserAgent:    "newsarchive/1.0",
		},
		Output:  OutputConfig{Path: "data"},
		Logging: LoggingConfig{Level: "info"},
	}
}
