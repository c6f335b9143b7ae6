// Package config provides configuration management for the cell control plane.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, SERVER_PORT)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	River       RiverConfig       `mapstructure:"river"`
	Routing     RoutingConfig     `mapstructure:"routing"`
	Provisioner ProvisionerConfig `mapstructure:"provisioner"`
	Observer    ObserverConfig    `mapstructure:"observer"`
	Worker      WorkerConfig      `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// A single pgxpool is shared by the metadata store, the routing backing
// store and the River job queue: one database to operate, and an event
// enqueue is durable the moment it is acknowledged, before the
// corresponding row is written.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River Queue settings.
type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// RoutingConfig contains edge-router and routing-cache settings.
type RoutingConfig struct {
	// CacheThreshold is how long a routing snapshot is served before a
	// refresh is attempted. A stale snapshot keeps being served if the
	// refresh fails.
	CacheThreshold time.Duration `mapstructure:"cache_threshold"`

	// DefaultOrigin is where unresolvable requests are forwarded when the
	// router fails open. Empty disables the proxy passthrough (the decision
	// is still pass-through, but there is nowhere to send it).
	DefaultOrigin string `mapstructure:"default_origin"`
}

// ProvisionerConfig contains deployment-pipeline delivery settings.
type ProvisionerConfig struct {
	// Endpoint is the base URL of the external deployment pipeline that
	// consumes provisioning events.
	Endpoint string `mapstructure:"endpoint"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`

	// ImageVersionParam is the Configuration Store parameter name holding
	// the current workload image version.
	ImageVersionParam string `mapstructure:"image_version_param"`
}

// ObserverConfig contains capacity observer settings.
type ObserverConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize  int `mapstructure:"general_pool_size"`
	ObserverPoolSize int `mapstructure:"observer_pool_size"`
}

// Load reads configuration from file and environment variables.
// Standard environment variables without prefix (DATABASE_URL, SERVER_PORT,
// ROUTING_CACHE_THRESHOLD, ...).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cellmesh")

	// Maps nested config: database.max_conns -> DATABASE_MAX_CONNS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Routing.CacheThreshold <= 0 {
		return fmt.Errorf("routing.cache_threshold must be positive")
	}
	if c.Provisioner.MaxRetries < 0 {
		return fmt.Errorf("provisioner.max_retries must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database (shared pool)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cellmesh")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "cellmesh")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", false)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// River
	v.SetDefault("river.max_workers", 10)
	v.SetDefault("river.completed_job_retention_period", "24h")

	// Routing (reference deployment uses a 120s freshness threshold)
	v.SetDefault("routing.cache_threshold", "120s")
	v.SetDefault("routing.default_origin", "")

	// Provisioner
	v.SetDefault("provisioner.endpoint", "")
	v.SetDefault("provisioner.request_timeout", "10s")
	v.SetDefault("provisioner.max_retries", 4)
	v.SetDefault("provisioner.retry_base_delay", "500ms")
	v.SetDefault("provisioner.image_version_param", "product_image_version")

	// Observer
	v.SetDefault("observer.enabled", true)
	v.SetDefault("observer.interval", "5m")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 100)
	v.SetDefault("worker.observer_pool_size", 20)
}
