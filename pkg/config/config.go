// ABOUTME: Configuration management with YAML file support and environment variable overrides
// ABOUTME: Environment variables win over the file so deployments can patch single values

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Feed contains feed ingestion configuration
	Feed FeedConfig `yaml:"feed"`

	// Ledger contains deduplication ledger configuration
	Ledger LedgerConfig `yaml:"ledger"`

	// Listmonk contains campaign platform configuration
	Listmonk ListmonkConfig `yaml:"listmonk"`

	// Digest contains composition configuration
	Digest DigestConfig `yaml:"digest"`

	// Schedule is the cron spec driving recurring runs
	Schedule string `yaml:"schedule"`

	// EnrichEnabled controls whether article pages are fetched for cover
	// images and excerpts. Disabling it keeps runs down to one feed fetch.
	EnrichEnabled bool `yaml:"enrich_enabled"`

	// LogLevel sets the minimum logged level (debug/info/warn/error)
	LogLevel string `yaml:"log_level"`

	// DryRun composes the digest but skips delivery and ledger commit
	DryRun bool `yaml:"dry_run"`
}

// FeedConfig holds feed ingestion configuration
type FeedConfig struct {
	// URL is the syndication feed to ingest
	URL string `yaml:"url"`

	// HTTPTimeout is the per-request timeout in seconds
	HTTPTimeout int `yaml:"http_timeout"`
}

// LedgerConfig holds ledger backend configuration
type LedgerConfig struct {
	// Type specifies the ledger backend (file/sqlite/redis/memory)
	Type string `yaml:"type"`

	// Path is the ledger location for the file and sqlite backends
	Path string `yaml:"path"`

	// Redis contains Redis-specific configuration
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Address is the Redis server address
	Address string `yaml:"address"`

	// Password is the Redis authentication password
	Password string `yaml:"password"`

	// DB is the Redis database number
	DB int `yaml:"db"`

	// Key is the set key holding the ledger
	Key string `yaml:"key"`
}

// ListmonkConfig holds campaign platform configuration
type ListmonkConfig struct {
	// URL is the listmonk instance root
	URL string `yaml:"url"`

	// Username and APIToken authenticate API calls
	Username string `yaml:"username"`
	APIToken string `yaml:"api_token"`

	// Lists are the subscriber list IDs to address
	Lists []int `yaml:"lists"`

	// TemplateID selects the platform-side wrapper template
	TemplateID int `yaml:"template_id"`

	// SendAt schedules delivery; empty means send immediately
	SendAt string `yaml:"send_at"`

	// TestEmails receive a test send before each campaign is scheduled
	TestEmails []string `yaml:"test_emails"`

	// Tags label created campaigns
	Tags []string `yaml:"tags"`

	// Timeout is the per-request timeout in seconds
	Timeout int `yaml:"timeout"`

	// RetryMaxAttempts bounds retries per API call
	RetryMaxAttempts int `yaml:"retry_max_attempts"`

	// RetryBaseDelay is the wait in seconds before the second attempt;
	// it doubles per attempt up to RetryMaxDelay.
	RetryBaseDelay int `yaml:"retry_base_delay"`

	// RetryMaxDelay caps the per-attempt wait in seconds
	RetryMaxDelay int `yaml:"retry_max_delay"`
}

// DigestConfig holds composition configuration
type DigestConfig struct {
	// Title is the campaign name, subject line, and template heading
	Title string `yaml:"title"`

	// Preface is optional text rendered above the entries
	Preface string `yaml:"preface"`

	// TemplatePath locates the digest HTML template
	TemplatePath string `yaml:"template_path"`

	// FirstRunRecent is how many entries form the first digest on an
	// empty ledger
	FirstRunRecent int `yaml:"first_run_recent"`
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variable overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Feed: FeedConfig{
			HTTPTimeout: 30,
		},
		Ledger: LedgerConfig{
			Type: "file",
			Path: "processed_links.txt",
		},
		Listmonk: ListmonkConfig{
			Lists:            []int{1},
			Tags:             []string{"digest-courier"},
			Timeout:          30,
			RetryMaxAttempts: 8,
			RetryBaseDelay:   1,
			RetryMaxDelay:    60,
		},
		Digest: DigestConfig{
			Title:          "Weekly Digest",
			TemplatePath:   "templates/digest.tmpl.html",
			FirstRunRecent: 5,
		},
		Schedule:      "0 8 * * 5",
		EnrichEnabled: true,
		LogLevel:      "info",
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Feed.URL, "FEED_URL")
	setInt(&cfg.Feed.HTTPTimeout, "HTTP_TIMEOUT")

	setString(&cfg.Ledger.Type, "LEDGER_TYPE")
	setString(&cfg.Ledger.Path, "LEDGER_PATH")
	setString(&cfg.Ledger.Redis.Address, "REDIS_ADDRESS")
	setString(&cfg.Ledger.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Ledger.Redis.DB, "REDIS_DB")
	setString(&cfg.Ledger.Redis.Key, "REDIS_KEY")

	setString(&cfg.Listmonk.URL, "LISTMONK_URL")
	setString(&cfg.Listmonk.Username, "LISTMONK_USERNAME")
	setString(&cfg.Listmonk.APIToken, "LISTMONK_API_TOKEN")
	setIntList(&cfg.Listmonk.Lists, "LISTMONK_LISTS")
	setInt(&cfg.Listmonk.TemplateID, "LISTMONK_TEMPLATE_ID")
	setString(&cfg.Listmonk.SendAt, "LISTMONK_SEND_AT")
	setStringList(&cfg.Listmonk.TestEmails, "LISTMONK_TEST_EMAILS")
	setStringList(&cfg.Listmonk.Tags, "LISTMONK_TAGS")
	setInt(&cfg.Listmonk.Timeout, "LISTMONK_TIMEOUT")
	setInt(&cfg.Listmonk.RetryMaxAttempts, "RETRY_MAX_ATTEMPTS")
	setInt(&cfg.Listmonk.RetryBaseDelay, "RETRY_BASE_DELAY")
	setInt(&cfg.Listmonk.RetryMaxDelay, "RETRY_MAX_DELAY")

	setString(&cfg.Digest.Title, "DIGEST_TITLE")
	setString(&cfg.Digest.Preface, "DIGEST_PREFACE")
	setString(&cfg.Digest.TemplatePath, "DIGEST_TEMPLATE_PATH")
	setInt(&cfg.Digest.FirstRunRecent, "FIRST_RUN_RECENT")

	setString(&cfg.Schedule, "SCHEDULE")
	setBool(&cfg.EnrichEnabled, "ENRICH_ENABLED")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setBool(&cfg.DryRun, "DRY_RUN")
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			*dst = intValue
		}
	}
}

func setBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			*dst = boolValue
		}
	}
}

func setStringList(dst *[]string, key string) {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		*dst = out
	}
}

func setIntList(dst *[]int, key string) {
	if value := os.Getenv(key); value != "" {
		var out []int
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if intValue, err := strconv.Atoi(trimmed); err == nil {
				out = append(out, intValue)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}

// SendAtTime parses the configured send time, accepting the formats
// dateparse recognizes. Returns nil when no send time is configured.
func (c *ListmonkConfig) SendAtTime() (*time.Time, error) {
	if c.SendAt == "" {
		return nil, nil
	}
	parsed, err := dateparse.ParseAny(c.SendAt)
	if err != nil {
		return nil, fmt.Errorf("send_at %q could not be parsed: %w", c.SendAt, err)
	}
	return &parsed, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return errors.New("feed URL cannot be empty")
	}
	if u, err := url.Parse(c.Feed.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("feed URL %q is not an absolute URL", c.Feed.URL)
	}
	if c.Feed.HTTPTimeout < 1 {
		return errors.New("HTTP timeout must be at least 1 second")
	}

	switch c.Ledger.Type {
	case "file", "sqlite":
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger path cannot be empty when using the %s ledger", c.Ledger.Type)
		}
	case "redis":
		if c.Ledger.Redis.Address == "" {
			return errors.New("redis address cannot be empty when using the redis ledger")
		}
	case "memory":
	default:
		return errors.New("ledger type must be 'file', 'sqlite', 'redis', or 'memory'")
	}

	if c.Digest.TemplatePath == "" {
		return errors.New("digest template path cannot be empty")
	}
	if c.Digest.Title == "" {
		return errors.New("digest title cannot be empty")
	}
	if c.Digest.FirstRunRecent < 1 {
		return errors.New("first run recent count must be at least 1")
	}

	if c.Schedule == "" {
		return errors.New("schedule cannot be empty")
	}

	if !c.DryRun {
		if c.Listmonk.URL == "" {
			return errors.New("listmonk URL cannot be empty")
		}
		if c.Listmonk.Username == "" || c.Listmonk.APIToken == "" {
			return errors.New("listmonk credentials cannot be empty")
		}
		if len(c.Listmonk.Lists) == 0 {
			return errors.New("at least one listmonk list is required")
		}
	}

	if _, err := c.Listmonk.SendAtTime(); err != nil {
		return err
	}

	return nil
}
