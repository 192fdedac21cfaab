package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Renderer  RendererConfig  `mapstructure:"renderer"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis connection settings (asynq queue + status pub/sub).
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

// AgentConfig contains dispatcher agent settings.
type AgentConfig struct {
	PollIntervalSeconds  int `mapstructure:"poll_interval_seconds"`
	SocketTimeoutSeconds int `mapstructure:"socket_timeout_seconds"`
	ProbeTimeoutSeconds  int `mapstructure:"probe_timeout_seconds"`
}

// PollInterval returns the dispatcher poll interval as a duration.
func (a AgentConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalSeconds) * time.Second
}

// SocketTimeout returns the printer dial/write timeout as a duration.
func (a AgentConfig) SocketTimeout() time.Duration {
	return time.Duration(a.SocketTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the liveness probe timeout as a duration.
func (a AgentConfig) ProbeTimeout() time.Duration {
	return time.Duration(a.ProbeTimeoutSeconds) * time.Second
}

// RendererConfig points at the external ZPL raster service used for previews.
type RendererConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Density is the print density path segment expected by the raster
	// service, e.g. "8dpmm" for 203dpi printers.
	Density string `mapstructure:"density"`
}

// RetentionConfig bounds how long finished jobs are kept.
type RetentionConfig struct {
	Days           int `mapstructure:"days"`
	TestPrintHours int `mapstructure:"test_print_hours"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr builds a host:port address string for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "etiqueta")
	v.SetDefault("database.user", "etiqueta")
	v.SetDefault("database.password", "etiqueta")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "label-previews")
	v.SetDefault("agent.poll_interval_seconds", 5)
	v.SetDefault("agent.socket_timeout_seconds", 10)
	v.SetDefault("agent.probe_timeout_seconds", 3)
	v.SetDefault("renderer.base_url", "http://api.labelary.com")
	v.SetDefault("renderer.density", "8dpmm")
	v.SetDefault("retention.days", 30)
	v.SetDefault("retention.test_print_hours", 24)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                     "API_PORT",
		"database.host":                "DATABASE_HOST",
		"database.port":                "DATABASE_PORT",
		"database.name":                "POSTGRES_DB",
		"database.user":                "POSTGRES_USER",
		"database.password":            "POSTGRES_PASSWORD",
		"database.sslmode":             "DATABASE_SSLMODE",
		"redis.host":                   "REDIS_HOST",
		"redis.port":                   "REDIS_PORT",
		"minio.endpoint":               "MINIO_ENDPOINT",
		"minio.access_key_id":          "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":      "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                "MINIO_USE_SSL",
		"minio.bucket":                 "MINIO_BUCKET",
		"agent.poll_interval_seconds":  "AGENT_POLL_INTERVAL_SECONDS",
		"agent.socket_timeout_seconds": "AGENT_SOCKET_TIMEOUT_SECONDS",
		"agent.probe_timeout_seconds":  "AGENT_PROBE_TIMEOUT_SECONDS",
		"renderer.base_url":            "RENDERER_BASE_URL",
		"renderer.density":             "RENDERER_DENSITY",
		"retention.days":               "RETENTION_DAYS",
		"retention.test_print_hours":   "RETENTION_TEST_PRINT_HOURS",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.Agent.PollIntervalSeconds <= 0 {
		return errors.New("agent poll interval must be positive")
	}
	if cfg.Agent.SocketTimeoutSeconds <= 0 {
		return errors.New("agent socket timeout must be positive")
	}
	if cfg.Agent.ProbeTimeoutSeconds <= 0 {
		return errors.New("agent probe timeout must be positive")
	}
	if cfg.Renderer.BaseURL == "" {
		return errors.New("renderer base url is required")
	}
	if cfg.Renderer.Density == "" {
		return errors.New("renderer density is required")
	}
	if cfg.Retention.Days <= 0 {
		return errors.New("retention days must be positive")
	}
	if cfg.Retention.TestPrintHours <= 0 {
		return errors.New("retention test print hours must be positive")
	}
	return nil
}
