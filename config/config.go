// Package config loads the reviewer's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Backend configures the plan service connection.
type Backend struct {
	URL          string `toml:"url"`
	APIToken     string `toml:"api_token"`
	WebsocketURL string `toml:"websocket_url"`
}

// Review configures the review session behavior.
type Review struct {
	PlanID       string `toml:"plan_id"`
	HistoryLimit int    `toml:"history_limit"`
	SyncOnUndo   bool   `toml:"sync_on_undo"`
}

// Export configures export defaults.
type Export struct {
	Format string `toml:"format"`
}

// UI configures the terminal interface.
type UI struct {
	Theme string `toml:"theme"`
}

// Config is the complete reviewer configuration.
type Config struct {
	Backend Backend `toml:"backend"`
	Review  Review  `toml:"review"`
	Export  Export  `toml:"export"`
	UI      UI      `toml:"ui"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Backend: Backend{URL: "http://localhost:9999/api"},
		Review:  Review{HistoryLimit: 50},
		Export:  Export{Format: "json"},
		UI:      UI{Theme: "dark"},
	}
}

// Load reads a config file, applying defaults for anything unset. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("config: backend url is required")
	}
	if c.Review.HistoryLimit < 0 {
		return fmt.Errorf("config: history_limit must not be negative, got %d", c.Review.HistoryLimit)
	}
	switch c.UI.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("config: unknown theme %q", c.UI.Theme)
	}
	return nil
}
