// Package config provides configuration for the election scraper.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables (a .env file in the working directory is honoured by
// the command entry point).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Defaults for the ps2017nss election results site
const (
	DefaultSitePrefix    = "https://volby.cz/pls/ps2017nss/"
	DefaultListingMarker = "ps3"
	DefaultUserAgent     = "election-scraper/1.0 (github.com/pfrederiksen/election-scraper)"
	DefaultTimeout       = 30 * time.Second
	DefaultLogLevel      = "info"
)

// Environment variables that override file values
const (
	EnvUserAgent = "ELECTION_SCRAPER_USER_AGENT"
	EnvTimeout   = "ELECTION_SCRAPER_TIMEOUT"
	EnvLogLevel  = "ELECTION_SCRAPER_LOG_LEVEL"
)

// Configuration validation errors.
var (
	ErrMissingSitePrefix    = errors.New("site_prefix is required")
	ErrMissingListingMarker = errors.New("listing_marker is required")
	ErrInvalidTimeout       = errors.New("timeout must be positive")
	ErrInvalidLogLevel      = errors.New("log_level must be one of: debug, info, warn, error")
)

// Config holds scraper settings
type Config struct {
	// SitePrefix must appear in every district listing URL
	SitePrefix string `yaml:"site_prefix"`
	// ListingMarker is where the listing URL is cut to derive the base URL for town links
	ListingMarker string        `yaml:"listing_marker"`
	UserAgent     string        `yaml:"user_agent"`
	Timeout       time.Duration `yaml:"timeout"`
	LogLevel      string        `yaml:"log_level"`
	// Lenient skips the per-town party count check
	Lenient bool `yaml:"lenient"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		SitePrefix:    DefaultSitePrefix,
		ListingMarker: DefaultListingMarker,
		UserAgent:     DefaultUserAgent,
		Timeout:       DefaultTimeout,
		LogLevel:      DefaultLogLevel,
	}
}

// Load builds the configuration from defaults, the YAML file at path (if path
// is not empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readFile(path string) (Config, error) {
	var fileCfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return fileCfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fileCfg, fmt.Errorf("parsing config file: %w", err)
	}

	return fileCfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvUserAgent)); v != "" {
		c.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.SitePrefix == "" {
		return ErrMissingSitePrefix
	}
	if c.ListingMarker == "" {
		return ErrMissingListingMarker
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}
