package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	coreagg "github.com/lia-lab/lia-sync/internal/core/aggregation"
	"github.com/lia-lab/lia-sync/internal/core/cipher"
)

// Storage backends selectable with storage.type.
const (
	StorageMemory   = "memory"
	StorageBlob     = "blob"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config represents the top-level application config.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Source   SourceConfig   `koanf:"source"`
	Upload   UploadConfig   `koanf:"upload"`
	Auth     AuthConfig     `koanf:"auth"`
	Cipher   CipherConfig   `koanf:"cipher"`
	Schedule ScheduleConfig `koanf:"schedule"`

	// Resolved is populated by Validate from the string-typed fields above.
	Resolved Resolved `koanf:"-"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type StorageConfig struct {
	Type     string         `koanf:"type"` // memory | blob | postgres | redis
	BlobURL  string         `koanf:"blob_url"`
	BlobKey  string         `koanf:"blob_key"`
	Postgres PostgresConfig `koanf:"postgres"`
	Redis    RedisConfig    `koanf:"redis"`
}

type PostgresConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

type SourceConfig struct {
	RequiredMetrics []string `koanf:"required_metrics"`
	GrantedMetrics  []string `koanf:"granted_metrics"`
	Lookback        string   `koanf:"lookback"`
}

type UploadConfig struct {
	BaseURL        string `koanf:"base_url"`
	Path           string `koanf:"path"`
	Timeout        string `koanf:"timeout"`
	AwaitScheduled bool   `koanf:"await_scheduled"`
	RecentSpan     string `koanf:"recent_span"`
}

type AuthConfig struct {
	LoginPath string `koanf:"login_path"`
}

type CipherConfig struct {
	Key string `koanf:"key"`
}

type ScheduleConfig struct {
	Enabled    bool   `koanf:"enabled"`
	RetryDelay string `koanf:"retry_delay"`
	Timezone   string `koanf:"timezone"` // IANA name; empty or "Local" uses the host zone
}

// Resolved holds parsed forms of duration, metric and zone settings.
type Resolved struct {
	Lookback        time.Duration
	UploadTimeout   time.Duration
	RecentSpan      time.Duration
	RetryDelay      time.Duration
	Location        *time.Location
	RequiredMetrics []v1.Metric
	GrantedMetrics  []v1.Metric
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageBlob:
		if strings.TrimSpace(c.Storage.BlobURL) == "" {
			return fmt.Errorf("storage.blob_url is required for storage.type %q", StorageBlob)
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
			return fmt.Errorf("storage.postgres.dsn is required")
		}
		if c.Storage.Postgres.MaxOpenConns <= 0 {
			return fmt.Errorf("storage.postgres.max_open_conns must be > 0")
		}
		if c.Storage.Postgres.MaxIdleConns <= 0 {
			return fmt.Errorf("storage.postgres.max_idle_conns must be > 0")
		}
	case StorageRedis:
		if strings.TrimSpace(c.Storage.Redis.Addr) == "" {
			return fmt.Errorf("storage.redis.addr is required")
		}
	default:
		return fmt.Errorf("unsupported storage.type %q", c.Storage.Type)
	}

	if strings.TrimSpace(c.Upload.BaseURL) == "" {
		return fmt.Errorf("upload.base_url is required")
	}
	if !strings.HasPrefix(c.Upload.Path, "/") {
		return fmt.Errorf("invalid upload.path %q (must start with /)", c.Upload.Path)
	}
	if !strings.HasPrefix(c.Auth.LoginPath, "/") {
		return fmt.Errorf("invalid auth.login_path %q (must start with /)", c.Auth.LoginPath)
	}
	if _, err := cipher.New(c.Cipher.Key); err != nil {
		return fmt.Errorf("invalid cipher.key: %w", err)
	}

	var err error
	var r Resolved
	if r.Lookback, err = parseSpan("source.lookback", c.Source.Lookback); err != nil {
		return err
	}
	if r.UploadTimeout, err = parseSpan("upload.timeout", c.Upload.Timeout); err != nil {
		return err
	}
	if r.RecentSpan, err = parseSpan("upload.recent_span", c.Upload.RecentSpan); err != nil {
		return err
	}
	if r.RetryDelay, err = parseSpan("schedule.retry_delay", c.Schedule.RetryDelay); err != nil {
		return err
	}
	if r.Location, err = loadLocation(c.Schedule.Timezone); err != nil {
		return err
	}
	if r.RequiredMetrics, err = parseMetrics("source.required_metrics", c.Source.RequiredMetrics); err != nil {
		return err
	}
	if r.GrantedMetrics, err = parseMetrics("source.granted_metrics", c.Source.GrantedMetrics); err != nil {
		return err
	}
	c.Resolved = r

	return nil
}

// Load parses config from defaults, an optional YAML file and LIA_ env vars, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	allMetrics := make([]string, 0, len(v1.AllMetrics))
	for _, m := range v1.AllMetrics {
		allMetrics = append(allMetrics, string(m))
	}

	defaults := map[string]interface{}{
		"server.port":                     8080,
		"server.host":                     "127.0.0.1",
		"server.max_body_size_mb":         4,
		"server.mode":                     "release",
		"storage.type":                    StorageMemory,
		"storage.blob_url":                "",
		"storage.blob_key":                "state.yaml",
		"storage.postgres.dsn":            "",
		"storage.postgres.max_open_conns": 10,
		"storage.postgres.max_idle_conns": 5,
		"storage.postgres.auto_migrate":   true,
		"storage.redis.addr":              "",
		"storage.redis.db":                0,
		"storage.redis.key_prefix":        "lia",
		"source.required_metrics":         allMetrics,
		"source.granted_metrics":          allMetrics,
		"source.lookback":                 "10d",
		"upload.base_url":                 "http://localhost:5000",
		"upload.path":                     "/data/receive",
		"upload.timeout":                  "30s",
		"upload.await_scheduled":          false,
		"upload.recent_span":              "2d",
		"auth.login_path":                 "/users/google",
		"cipher.key":                      cipher.DefaultKey,
		"schedule.enabled":                true,
		"schedule.retry_delay":            "15m",
		"schedule.timezone":               "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("LIA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "LIA_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseSpan(key, raw string) (time.Duration, error) {
	ws, err := coreagg.ParseWindowSize(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return ws.Size, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone %q: %w", name, err)
	}
	return loc, nil
}

func parseMetrics(key string, names []string) ([]v1.Metric, error) {
	out := make([]v1.Metric, 0, len(names))
	for _, n := range names {
		m, err := v1.ParseMetric(strings.TrimSpace(n))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		out = append(out, m)
	}
	return out, nil
}
