// Package config provides YAML-based fleet configuration loading for Roundhouse.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Fleet roles. A machine's mode decides where heartbeats are sent and
// where aggregation happens.
const (
	ModeStandalone = "standalone"
	ModeServer     = "server"
	ModeClient     = "client"
)

// FileName is the fleet config file name inside the Roundhouse directory.
const FileName = "fleet.yaml"

// Config is the per-machine fleet configuration, loaded from fleet.yaml.
type Config struct {
	Mode       string          `yaml:"mode"`
	ServerURL  string          `yaml:"server_url"`
	LocalPort  int             `yaml:"local_port"`
	PublicPort int             `yaml:"public_port"`
	Heartbeat  HeartbeatConfig `yaml:"heartbeat"`
	Probes     ProbeConfig     `yaml:"probes"`
	Display    DisplayConfig   `yaml:"display"`
	TaskBoard  TaskBoardConfig `yaml:"task_board"`
	Tunnel     TunnelConfig    `yaml:"tunnel"`
	Notify     NotifyConfig    `yaml:"notify"`
}

// HeartbeatConfig holds the beacon interval and liveness constants. These are
// the single source of truth for staleness math across the fleet.
type HeartbeatConfig struct {
	IntervalSeconds    int `yaml:"interval_seconds"`
	StaleMultiplier    int `yaml:"stale_multiplier"`
	SendTimeoutSeconds int `yaml:"send_timeout_seconds"`
}

// Interval returns the beacon interval as a duration.
func (h HeartbeatConfig) Interval() time.Duration {
	return time.Duration(h.IntervalSeconds) * time.Second
}

// StaleAfter returns how old a peer record may be before it is flagged stale.
func (h HeartbeatConfig) StaleAfter() time.Duration {
	return h.Interval() * time.Duration(h.StaleMultiplier)
}

// SendTimeout returns the per-beacon delivery timeout.
func (h HeartbeatConfig) SendTimeout() time.Duration {
	return time.Duration(h.SendTimeoutSeconds) * time.Second
}

// ProbeConfig lists the local services to probe and the per-probe timeout.
type ProbeConfig struct {
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	Services       []ServiceProbe `yaml:"services"`
}

// Timeout returns the per-probe timeout as a duration.
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// ServiceProbe describes one local liveness probe. Kind is "tcp" (Target is
// host:port), "http" (Target is a URL), or "unit" (Target is a supervisor
// unit label).
type ServiceProbe struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Target string `yaml:"target"`
}

// DisplayConfig controls which panels the status command renders.
// The zero value shows everything.
type DisplayConfig struct {
	HidePeers bool `yaml:"hide_peers"`
	HideTasks bool `yaml:"hide_tasks"`
}

// TaskBoardConfig points at the read-only task board. Driver "" disables the
// task summary entirely.
type TaskBoardConfig struct {
	Driver   string `yaml:"driver"` // "sqlite", "mysql", or "" (disabled)
	Path     string `yaml:"path"`   // sqlite database file
	Host     string `yaml:"host"`   // mysql host
	Port     int    `yaml:"port"`   // mysql port
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// Enabled reports whether a task board is configured.
func (t TaskBoardConfig) Enabled() bool { return t.Driver != "" }

// TunnelConfig lists per-team sub-dashboards republished through the overlay
// network on the public port.
type TunnelConfig struct {
	Teams []TeamRoute `yaml:"teams"`
}

// TeamRoute maps a team name to the local port of its sub-dashboard.
type TeamRoute struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

// NotifyConfig holds optional chat-platform credentials for stale/recovered
// announcements.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig configures the Slack notifier.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig configures the Discord notifier.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DefaultDir returns the default Roundhouse directory (~/.roundhouse).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	return filepath.Join(home, ".roundhouse"), nil
}

// Path returns the fleet config path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeStandalone
	}
	if c.LocalPort == 0 {
		c.LocalPort = 7420
	}
	if c.PublicPort == 0 {
		c.PublicPort = 8443
	}
	if c.ServerURL == "" && c.Mode != ModeClient {
		c.ServerURL = fmt.Sprintf("http://localhost:%d", c.LocalPort)
	}
	if c.Heartbeat.IntervalSeconds == 0 {
		c.Heartbeat.IntervalSeconds = 60
	}
	if c.Heartbeat.StaleMultiplier == 0 {
		c.Heartbeat.StaleMultiplier = 3
	}
	if c.Heartbeat.SendTimeoutSeconds == 0 {
		c.Heartbeat.SendTimeoutSeconds = 5
	}
	if c.Probes.TimeoutSeconds == 0 {
		c.Probes.TimeoutSeconds = 2
	}
	if c.TaskBoard.Enabled() {
		if c.TaskBoard.Table == "" {
			c.TaskBoard.Table = "cards"
		}
		if c.TaskBoard.Driver == "mysql" {
			if c.TaskBoard.Host == "" {
				c.TaskBoard.Host = "127.0.0.1"
			}
			if c.TaskBoard.Port == 0 {
				c.TaskBoard.Port = 3306
			}
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Mode {
	case ModeStandalone, ModeServer, ModeClient:
	default:
		errs = append(errs, fmt.Sprintf("mode must be one of %s, %s, %s", ModeStandalone, ModeServer, ModeClient))
	}
	if c.Mode == ModeClient {
		if c.ServerURL == "" {
			errs = append(errs, "server_url is required in client mode")
		} else if u, err := url.Parse(c.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("server_url %q is not a valid URL", c.ServerURL))
		}
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		errs = append(errs, "local_port out of range")
	}
	if c.PublicPort < 0 || c.PublicPort > 65535 {
		errs = append(errs, "public_port out of range")
	}
	for i, s := range c.Probes.Services {
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("probes.services[%d].name is required", i))
		}
		switch s.Kind {
		case "tcp", "http", "unit":
		default:
			errs = append(errs, fmt.Sprintf("probes.services[%d].kind must be tcp, http, or unit", i))
		}
		if s.Target == "" {
			errs = append(errs, fmt.Sprintf("probes.services[%d].target is required", i))
		}
	}
	switch c.TaskBoard.Driver {
	case "", "mysql":
	case "sqlite":
		if c.TaskBoard.Path == "" {
			errs = append(errs, "task_board.path is required for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("task_board.driver %q is not supported", c.TaskBoard.Driver))
	}
	for i, t := range c.Tunnel.Teams {
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("tunnel.teams[%d].name is required", i))
		}
		if t.Port <= 0 || t.Port > 65535 {
			errs = append(errs, fmt.Sprintf("tunnel.teams[%d].port out of range", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
