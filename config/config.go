// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ythttp "ytinsight/http"
	"ytinsight/insight"
	"ytinsight/internal/logging"
	"ytinsight/internal/retry"
)

const (
	// FileName is the config file looked up in the working and config directories.
	FileName = "ytinsight.yaml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "YTINSIGHT_"
	// configPathEnv names an explicit config file, skipping the lookup.
	configPathEnv = EnvPrefix + "CONFIG"
)

// Config holds all application configuration.
type Config struct {
	// APIKey is the YouTube Data API key. When empty, the key store is used.
	APIKey string `yaml:"api_key"`
	// APIEndpoint overrides the Data API base URL, e.g. for a proxy.
	APIEndpoint string `yaml:"api_endpoint"`

	// MaxResults is the number of videos per search (1-50).
	MaxResults int `yaml:"max_results"`
	// DefaultSort is the ranking criterion used when none is given.
	DefaultSort string `yaml:"default_sort"`
	// RegionCode restricts searches to a region (ISO 3166-1 alpha-2).
	RegionCode string `yaml:"region_code"`
	// Language biases searches towards a language (ISO 639-1).
	Language string `yaml:"language"`

	// Timeout bounds each HTTP request to the API.
	Timeout time.Duration `yaml:"timeout"`
	// RequestsPerSecond paces API requests; 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// HostRates overrides RequestsPerSecond for individual API hosts.
	HostRates map[string]float64 `yaml:"host_rates"`

	// MaxRetries is the maximum number of retries for failed calls
	MaxRetries int `yaml:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// ChannelCacheSize bounds the channel statistics cache; negative disables it.
	ChannelCacheSize int `yaml:"channel_cache_size"`
	// ChannelCacheTTL is how long cached channel statistics stay fresh.
	ChannelCacheTTL time.Duration `yaml:"channel_cache_ttl"`

	// DataDir holds the key store and search history.
	DataDir string `yaml:"data_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// ListenAddr is the address the HTTP server binds.
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxResults:        50,
		DefaultSort:       string(insight.ByQuality),
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		ChannelCacheSize:  256,
		ChannelCacheTTL:   time.Hour,
		DataDir:           filepath.Join(homeDir(), ".config", "ytinsight"),
		LogLevel:          "info",
		ListenAddr:        "127.0.0.1:8080",
	}
}

// Load loads configuration from environment variables, config file, and applies defaults.
// Priority: env vars > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Paths returns the config files Load considers, in order.
func Paths() []string {
	if p := os.Getenv(configPathEnv); p != "" {
		return []string{p}
	}
	return []string{
		FileName,
		filepath.Join(homeDir(), ".config", "ytinsight", FileName),
	}
}

// loadFromFile reads the first config file that exists. Finding no implicit
// file is not an error; an explicitly named file must exist.
func (c *Config) loadFromFile() error {
	explicit := os.Getenv(configPathEnv) != ""
	for _, path := range Paths() {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && !explicit {
				continue
			}
			return err
		}

		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return nil
}

// loadFromEnv overrides config with YTINSIGHT_* environment variables.
func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"API_KEY":      &c.APIKey,
		"API_ENDPOINT": &c.APIEndpoint,
		"DEFAULT_SORT": &c.DefaultSort,
		"REGION_CODE":  &c.RegionCode,
		"LANGUAGE":     &c.Language,
		"DATA_DIR":     &c.DataDir,
		"LOG_LEVEL":    &c.LogLevel,
		"LISTEN_ADDR":  &c.ListenAddr,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_RESULTS":        &c.MaxResults,
		"MAX_RETRIES":        &c.MaxRetries,
		"CHANNEL_CACHE_SIZE": &c.ChannelCacheSize,
	}
	for name, dst := range ints {
		if v, ok := lookupEnv(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"REQUESTS_PER_SECOND": &c.RequestsPerSecond,
		"BACKOFF_MULTIPLIER":  &c.BackoffMultiplier,
	}
	for name, dst := range floats {
		if v, ok := lookupEnv(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = f
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":           &c.Timeout,
		"INITIAL_BACKOFF":   &c.InitialBackoff,
		"MAX_BACKOFF":       &c.MaxBackoff,
		"CHANNEL_CACHE_TTL": &c.ChannelCacheTTL,
	}
	for name, dst := range durations {
		if v, ok := lookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}

	return nil
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.MaxResults < 1 || c.MaxResults > 50 {
		return fmt.Errorf("max_results must be between 1 and 50")
	}
	if _, ok := insight.ParseCriterion(c.DefaultSort); !ok {
		return fmt.Errorf("default_sort %q is not a known criterion", c.DefaultSort)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	for host, rps := range c.HostRates {
		if rps < 0 {
			return fmt.Errorf("host_rates[%s] must be non-negative", host)
		}
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1.0 {
		return fmt.Errorf("backoff_multiplier must be > 1.0")
	}
	if c.ChannelCacheSize >= 0 && c.ChannelCacheTTL <= 0 {
		return fmt.Errorf("channel_cache_ttl must be positive")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Criterion returns the default ranking criterion.
func (c *Config) Criterion() insight.Criterion {
	cr, ok := insight.ParseCriterion(c.DefaultSort)
	if !ok {
		return insight.ByQuality
	}
	return cr
}

// RetryConfig returns the retry policy for API calls.
func (c *Config) RetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = c.MaxRetries
	cfg.InitialBackoff = c.InitialBackoff
	cfg.MaxBackoff = c.MaxBackoff
	cfg.Multiplier = c.BackoffMultiplier
	return cfg
}

// HTTPConfig returns the outbound transport configuration.
func (c *Config) HTTPConfig() *ythttp.Config {
	cfg := ythttp.DefaultConfig()
	cfg.Timeout = c.Timeout
	cfg.RateLimiter.DefaultRPS = c.RequestsPerSecond
	for host, rps := range c.HostRates {
		cfg.RateLimiter.CustomRates[host] = rps
	}
	return cfg
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
