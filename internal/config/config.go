// Package config holds the user-editable settings. Loading overlays file
// values onto defaults, so settings written by older versions survive
// upgrades and missing keys pick up current defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full settings tree.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Watch   WatchConfig   `yaml:"watch"`
	Browser BrowserConfig `yaml:"browser"`
}

// BackendConfig configures the sync backend.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	SubmitPath     string `yaml:"submit_path"`
	LoginPath      string `yaml:"login_path"`
	AuthCookieName string `yaml:"auth_cookie_name"`
	RetryAttempts  int    `yaml:"retry_attempts"`
	RetryDelayMs   int    `yaml:"retry_delay_ms"`
}

// WatchConfig configures the submission monitor.
type WatchConfig struct {
	AutoSync            bool   `yaml:"auto_sync"`
	CheckIntervalMs     int    `yaml:"check_interval_ms"`
	SubmitCheckDelaysMs []int  `yaml:"submit_check_delays_ms"`
	PagePattern         string `yaml:"page_pattern"`
}

// BrowserConfig configures how the Chrome instance is reached.
type BrowserConfig struct {
	ControlURL          string `yaml:"control_url"`
	Bin                 string `yaml:"bin"`
	Headless            bool   `yaml:"headless"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
}

// DefaultConfig returns the defaults applied at first run.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        "http://127.0.0.1:3000",
			SubmitPath:     "/api/submit",
			LoginPath:      "/api/solution/",
			AuthCookieName: "token",
			RetryAttempts:  3,
			RetryDelayMs:   1000,
		},
		Watch: WatchConfig{
			AutoSync:            true,
			CheckIntervalMs:     5000,
			SubmitCheckDelaysMs: []int{3000},
			PagePattern:         "leetcode.com/problems/",
		},
		Browser: BrowserConfig{
			Headless:            false,
			NavigationTimeoutMs: 30000,
		},
	}
}

// RetryDelay returns the base backoff delay.
func (c BackendConfig) RetryDelay() time.Duration {
	if c.RetryDelayMs <= 0 {
		return time.Second
	}
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// SubmitURL is the full submission endpoint.
func (c BackendConfig) SubmitURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + c.SubmitPath
}

// LoginURL is the full authentication endpoint.
func (c BackendConfig) LoginURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + c.LoginPath
}

// CheckInterval returns the periodic success-check interval.
func (c WatchConfig) CheckInterval() time.Duration {
	if c.CheckIntervalMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.CheckIntervalMs) * time.Millisecond
}

// SubmitCheckDelays returns the post-submit check schedule.
func (c WatchConfig) SubmitCheckDelays() []time.Duration {
	if len(c.SubmitCheckDelaysMs) == 0 {
		return []time.Duration{3 * time.Second}
	}
	delays := make([]time.Duration, 0, len(c.SubmitCheckDelaysMs))
	for _, ms := range c.SubmitCheckDelaysMs {
		delays = append(delays, time.Duration(ms)*time.Millisecond)
	}
	return delays
}

// NavigationTimeout returns the page navigation timeout.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// DefaultDir is the per-user state directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".leetsync"
	}
	return filepath.Join(home, ".leetsync")
}

// DefaultPath is the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DataPath is the default state database location.
func DataPath() string {
	return filepath.Join(DefaultDir(), "leetsync.db")
}

// Load reads configuration from a YAML file, overlaying it on defaults. A
// missing file returns pure defaults. Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("LEETSYNC_BACKEND_URL"); url != "" {
		c.Backend.BaseURL = url
	}
	if url := os.Getenv("LEETSYNC_CONTROL_URL"); url != "" {
		c.Browser.ControlURL = url
	}
}
