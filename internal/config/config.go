package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Session   SessionConfig   `yaml:"session"`
	AI        AIConfig        `yaml:"ai"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// SnapshotConfig locates the local database holding in-progress sessions.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

type SessionConfig struct {
	WarmupSeconds  int      `yaml:"warmup_seconds"`
	RestSeconds    int      `yaml:"rest_seconds"`
	EmptyBarWeight float64  `yaml:"empty_bar_weight"`
	WarmupReps     int      `yaml:"warmup_reps"`
	WarmupPool     []string `yaml:"warmup_pool"`
}

// AIConfig configures the plan generator. An empty endpoint disables it.
type AIConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	DailyLimit     int    `yaml:"daily_limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the generator request timeout.
func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. Env vars use the prefix LIFTCOACH_ and underscore-separated paths:
//
//	LIFTCOACH_SERVER_HOST, LIFTCOACH_SERVER_PORT,
//	LIFTCOACH_DB_HOST, LIFTCOACH_DB_PORT, LIFTCOACH_DB_NAME,
//	LIFTCOACH_DB_USER, LIFTCOACH_DB_PASSWORD, LIFTCOACH_DB_SSLMODE,
//	LIFTCOACH_AUTH_API_KEY, LIFTCOACH_TAILSCALE_ENABLED,
//	LIFTCOACH_SNAPSHOT_PATH, LIFTCOACH_AI_ENDPOINT, LIFTCOACH_AI_API_KEY,
//	LIFTCOACH_AI_DAILY_LIMIT, LIFTCOACH_LOG_LEVEL, LIFTCOACH_LOG_FILE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("LIFTCOACH_SERVER_HOST", &cfg.Server.Host)
	num("LIFTCOACH_SERVER_PORT", &cfg.Server.Port)
	str("LIFTCOACH_DB_HOST", &cfg.Database.Host)
	num("LIFTCOACH_DB_PORT", &cfg.Database.Port)
	str("LIFTCOACH_DB_NAME", &cfg.Database.Name)
	str("LIFTCOACH_DB_USER", &cfg.Database.User)
	str("LIFTCOACH_DB_PASSWORD", &cfg.Database.Password)
	str("LIFTCOACH_DB_SSLMODE", &cfg.Database.SSLMode)
	str("LIFTCOACH_AUTH_API_KEY", &cfg.Auth.APIKey)
	if v := os.Getenv("LIFTCOACH_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("LIFTCOACH_SNAPSHOT_PATH", &cfg.Snapshot.Path)
	str("LIFTCOACH_AI_ENDPOINT", &cfg.AI.Endpoint)
	str("LIFTCOACH_AI_API_KEY", &cfg.AI.APIKey)
	num("LIFTCOACH_AI_DAILY_LIMIT", &cfg.AI.DailyLimit)
	str("LIFTCOACH_LOG_LEVEL", &cfg.Log.Level)
	str("LIFTCOACH_LOG_FILE", &cfg.Log.File)
}

func (c *Config) applyDefaults() {
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "liftcoach"
	}
	if c.Tailscale.StateDir == "" {
		c.Tailscale.StateDir = "tsnet-state"
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = "data"
	}
	if c.Session.WarmupSeconds == 0 {
		c.Session.WarmupSeconds = 599
	}
	if c.Session.RestSeconds == 0 {
		c.Session.RestSeconds = 119
	}
	if c.Session.EmptyBarWeight == 0 {
		c.Session.EmptyBarWeight = 20
	}
	if c.Session.WarmupReps == 0 {
		c.Session.WarmupReps = 10
	}
	if c.AI.DailyLimit == 0 {
		c.AI.DailyLimit = 5
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Session.WarmupSeconds < 0 || c.Session.RestSeconds < 0 {
		return fmt.Errorf("session timers must not be negative")
	}
	if c.Session.WarmupReps < 0 || c.Session.EmptyBarWeight < 0 {
		return fmt.Errorf("session.warmup_reps and session.empty_bar_weight must not be negative")
	}
	if c.AI.DailyLimit < 0 {
		return fmt.Errorf("ai.daily_limit must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
