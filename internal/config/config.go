// Package config provides YAML-based configuration loading for Scriptyard.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no --config flag is given.
const DefaultPath = "scriptyard.yaml"

// DefaultStorageKey namespaces the persisted script collection.
const DefaultStorageKey = "scriptyard-scripts"

// Storage backends.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

// cronParser accepts standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Config is the top-level Scriptyard configuration, loaded from scriptyard.yaml.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Simulation SimulationConfig `yaml:"simulation"`
	Log        LogConfig        `yaml:"log"`
	Notify     NotifyConfig     `yaml:"notify"`
	Schedules  []ScheduleConfig `yaml:"schedules"`
}

// StorageConfig selects where the script collection is persisted.
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Key     string      `yaml:"key"`
	MySQL   MySQLConfig `yaml:"mysql"`
}

// MySQLConfig holds connection settings for the mysql backend.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// DashboardConfig holds HTTP dashboard settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
	// AllowedOrigins are extra websocket origin patterns, e.g. "localhost:*".
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SimulationConfig tunes the simulated run outcome and latency.
type SimulationConfig struct {
	SuccessRate *float64      `yaml:"success_rate"`
	MinLatency  time.Duration `yaml:"min_latency"`
	MaxLatency  time.Duration `yaml:"max_latency"`
}

// Rate returns the configured success probability.
func (s SimulationConfig) Rate() float64 {
	if s.SuccessRate == nil {
		return 0.8
	}
	return *s.SuccessRate
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifyConfig configures chat sinks for run and script notifications.
type NotifyConfig struct {
	Slack   ChatConfig `yaml:"slack"`
	Discord ChatConfig `yaml:"discord"`
}

// ChatConfig holds a bot token and default channel for one chat platform.
type ChatConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether both token and channel are set.
func (c ChatConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// ScheduleConfig triggers a quick run of Script on a cron expression.
type ScheduleConfig struct {
	Script string `yaml:"script"`
	Cron   string `yaml:"cron"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrDefault behaves like Load but falls back to Default when path does
// not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
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

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendBolt
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case BackendBolt:
			c.Storage.Path = "scriptyard.db"
		case BackendSQLite:
			c.Storage.Path = "scriptyard.sqlite"
		}
	}
	if c.Storage.Key == "" {
		c.Storage.Key = DefaultStorageKey
	}
	if c.Storage.MySQL.Host == "" {
		c.Storage.MySQL.Host = "127.0.0.1"
	}
	if c.Storage.MySQL.Port == 0 {
		c.Storage.MySQL.Port = 3306
	}
	if c.Storage.MySQL.Database == "" {
		c.Storage.MySQL.Database = "scriptyard"
	}
	if c.Storage.MySQL.User == "" {
		c.Storage.MySQL.User = "root"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Simulation.MinLatency == 0 && c.Simulation.MaxLatency == 0 {
		c.Simulation.MinLatency = 2 * time.Second
		c.Simulation.MaxLatency = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Storage.Backend {
	case BackendBolt, BackendSQLite, BackendMySQL, BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q is not one of bolt, sqlite, mysql, memory", c.Storage.Backend))
	}
	if rate := c.Simulation.Rate(); rate < 0 || rate > 1 {
		errs = append(errs, fmt.Sprintf("simulation.success_rate %v must be between 0 and 1", rate))
	}
	if c.Simulation.MinLatency < 0 || c.Simulation.MaxLatency < 0 {
		errs = append(errs, "simulation latencies must not be negative")
	}
	if c.Simulation.MinLatency > c.Simulation.MaxLatency {
		errs = append(errs, fmt.Sprintf("simulation.min_latency %v exceeds max_latency %v",
			c.Simulation.MinLatency, c.Simulation.MaxLatency))
	}
	for i, s := range c.Schedules {
		if s.Script == "" {
			errs = append(errs, fmt.Sprintf("schedules[%d].script is required", i))
		}
		if _, err := cronParser.Parse(s.Cron); err != nil {
			errs = append(errs, fmt.Sprintf("schedules[%d].cron %q: %v", i, s.Cron, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
