package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	BodyLimitMB  int `mapstructure:"body_limit_mb"`
	// RegistryRPM caps registry lookups per client IP per minute.
	RegistryRPM    int `mapstructure:"registry_rpm"`
	MaxUploadFiles int `mapstructure:"max_upload_files"`
}

// RegistryConfig configures the SENASA RENSPA client.
type RegistryConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	PageSize       int    `mapstructure:"page_size"`
	RequestDelayMS int    `mapstructure:"request_delay_ms"`
	ListTimeoutS   int    `mapstructure:"list_timeout_s"`
	DetailTimeoutS int    `mapstructure:"detail_timeout_s"`
	MaxPages       int    `mapstructure:"max_pages"`
	ActiveOnly     bool   `mapstructure:"active_only"`
}

func (r RegistryConfig) RequestDelay() time.Duration {
	return time.Duration(r.RequestDelayMS) * time.Millisecond
}

func (r RegistryConfig) ListTimeout() time.Duration {
	return time.Duration(r.ListTimeoutS) * time.Second
}

func (r RegistryConfig) DetailTimeout() time.Duration {
	return time.Duration(r.DetailTimeoutS) * time.Second
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
	Enabled  bool   `mapstructure:"enabled"`
	TTLS     int    `mapstructure:"ttl_s"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	// .env only seeds variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: VISU_REGISTRY_BASE_URL → registry.base_url
	v.SetEnvPrefix("VISU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.body_limit_mb", 64)
	v.SetDefault("server.registry_rpm", 30)
	v.SetDefault("server.max_upload_files", 20)
	v.SetDefault("registry.base_url", "https://aps.senasa.gob.ar/restapiprod/servicios/renspa")
	v.SetDefault("registry.page_size", 10)
	v.SetDefault("registry.request_delay_ms", 500)
	v.SetDefault("registry.list_timeout_s", 15)
	v.SetDefault("registry.detail_timeout_s", 10)
	v.SetDefault("registry.max_pages", 200)
	v.SetDefault("registry.active_only", true)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("valkey.ttl_s", 3600)
	v.SetDefault("valkey.password", "")
	v.SetDefault("valkey.prefix", "visu:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "registry-sync")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.BodyLimitMB <= 0 {
		errs = append(errs, "server.body_limit_mb must be positive")
	}
	if c.Server.RegistryRPM <= 0 {
		errs = append(errs, "server.registry_rpm must be positive")
	}
	if c.Registry.BaseURL == "" {
		errs = append(errs, "registry.base_url is required")
	}
	if c.Registry.PageSize <= 0 {
		errs = append(errs, "registry.page_size must be positive")
	}
	if c.Registry.RequestDelayMS < 0 {
		errs = append(errs, "registry.request_delay_ms must not be negative")
	}
	if c.Registry.ListTimeoutS <= 0 {
		errs = append(errs, "registry.list_timeout_s must be positive")
	}
	if c.Registry.DetailTimeoutS <= 0 {
		errs = append(errs, "registry.detail_timeout_s must be positive")
	}
	if c.Registry.MaxPages <= 0 {
		errs = append(errs, "registry.max_pages must be positive")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.TTLS <= 0 {
		errs = append(errs, "valkey.ttl_s must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
