package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Scheduler configuration
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	// Retry configuration
	Retry RetryConfig `mapstructure:"retry"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig holds dispatch-worker configuration.
// Durations are in seconds except batch size and worker count.
type SchedulerConfig struct {
	PollInterval       int `mapstructure:"poll_interval"`
	BatchSize          int `mapstructure:"batch_size"`
	WorkerCount        int `mapstructure:"worker_count"`
	StuckClaimAfter    int `mapstructure:"stuck_claim_after"`
	ProviderTimeout    int `mapstructure:"provider_timeout"`
	RollupInterval     int `mapstructure:"rollup_interval"`
	RollupLookbackDays int `mapstructure:"rollup_lookback_days"`
}

// RetryConfig holds retry and backoff configuration
type RetryConfig struct {
	// Growth selects the backoff curve: "linear" or "exponential"
	Growth string `mapstructure:"growth"`
	// DefaultMaxRetries applies when a reminder is created without one
	DefaultMaxRetries int `mapstructure:"default_max_retries"`
	// DefaultInterval is the base backoff interval in seconds
	DefaultInterval int `mapstructure:"default_interval"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	MetricsPath    string `mapstructure:"metrics_path"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPath     string `mapstructure:"health_path"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/reminder-engine")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with environment variables
	overrideWithEnv(&config)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "reminders")
	viper.SetDefault("database.user", "reminders")
	viper.SetDefault("database.ssl_mode", "require")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Scheduler defaults
	viper.SetDefault("scheduler.poll_interval", 30)
	viper.SetDefault("scheduler.batch_size", 50)
	viper.SetDefault("scheduler.worker_count", 4)
	viper.SetDefault("scheduler.stuck_claim_after", 600)
	viper.SetDefault("scheduler.provider_timeout", 15)
	viper.SetDefault("scheduler.rollup_interval", 3600)
	viper.SetDefault("scheduler.rollup_lookback_days", 2)

	// Retry defaults
	viper.SetDefault("retry.growth", "linear")
	viper.SetDefault("retry.default_max_retries", 3)
	viper.SetDefault("retry.default_interval", 300)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.prometheus_port", 9090)
	viper.SetDefault("monitoring.health_path", "/health")
	viper.SetDefault("monitoring.tracing_enabled", false)
	viper.SetDefault("monitoring.jaeger_endpoint", "http://localhost:14268/api/traces")

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if dbPassword := os.Getenv("DATABASE_PASSWORD"); dbPassword != "" {
		config.Database.Password = dbPassword
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Database.Password == "" {
		return fmt.Errorf("database password is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("scheduler batch size must be positive")
	}

	if config.Scheduler.WorkerCount <= 0 {
		return fmt.Errorf("scheduler worker count must be positive")
	}

	if config.Retry.Growth != "linear" && config.Retry.Growth != "exponential" {
		return fmt.Errorf("unknown retry growth mode: %s", config.Retry.Growth)
	}

	if config.Retry.DefaultMaxRetries < 0 || config.Retry.DefaultMaxRetries > 10 {
		return fmt.Errorf("default max retries out of range: %d", config.Retry.DefaultMaxRetries)
	}

	if config.Retry.DefaultInterval <= 0 {
		return fmt.Errorf("default retry interval must be positive")
	}

	return nil
}
