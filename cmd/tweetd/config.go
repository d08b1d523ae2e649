package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	tweets "github.com/anatolykoptev/go-tweets"
	"github.com/anatolykoptev/go-tweets/browser"
	"github.com/anatolykoptev/go-tweets/server"
)

const (
	sourceBrowser = "browser"
	sourceGraphQL = "graphql"
)

// Config is the tweetd configuration file.
type Config struct {
	// Source selects where TweetDetail payloads come from: browser or graphql.
	Source string `yaml:"source"`

	Log     LogConfig            `yaml:"log"`
	Engine  tweets.Config        `yaml:"engine"`
	Server  server.Config        `yaml:"server"`
	Browser browser.Config       `yaml:"browser"`
	GraphQL tweets.GraphQLConfig `yaml:"graphql"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Source: sourceBrowser,
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Source {
	case sourceBrowser, sourceGraphQL:
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", c.Source, sourceBrowser, sourceGraphQL)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// newLogger builds the process logger from cfg.
func newLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", cfg.Format)
}
