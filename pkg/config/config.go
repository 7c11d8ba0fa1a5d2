// Package config loads application configuration from an optional YAML file
// overlaid with KEYGATE_* environment variables. Environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`

	// UserCacheSize is the in-process LRU size for user reads; 0 disables it
	UserCacheSize int `yaml:"user_cache_size"`
}

// RedisConfig holds Redis settings for the login rate limiter
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds token and credential settings
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	CodeTTL    time.Duration `yaml:"code_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`

	// DevMode returns verification codes in API responses instead of
	// dispatching them out of band. Never enable in production.
	DevMode bool `yaml:"dev_mode"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Default returns the baseline configuration before file and env overlays.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxConns:      20,
			MinConns:      2,
			UserCacheSize: 1024,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Auth: AuthConfig{
			Issuer:     "keygate",
			TokenTTL:   24 * time.Hour,
			CodeTTL:    30 * time.Minute,
			BcryptCost: 0, // library default
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "keygate",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// Load builds configuration from defaults, an optional YAML file named by
// KEYGATE_CONFIG_FILE, and KEYGATE_* environment variables, then validates.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("KEYGATE_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.Server.Host = getEnv("KEYGATE_HOST", c.Server.Host)
	c.Server.Port = getEnv("KEYGATE_PORT", c.Server.Port)
	c.Server.HealthPort = getEnv("KEYGATE_HEALTH_PORT", c.Server.HealthPort)
	c.Server.ReadTimeout = getEnvDuration("KEYGATE_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("KEYGATE_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("KEYGATE_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("KEYGATE_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.URL = getEnv("KEYGATE_POSTGRES_URL", c.Database.URL)
	c.Database.MaxConns = getEnvInt("KEYGATE_POSTGRES_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvInt("KEYGATE_POSTGRES_MIN_CONNS", c.Database.MinConns)
	c.Database.UserCacheSize = getEnvInt("KEYGATE_USER_CACHE_SIZE", c.Database.UserCacheSize)

	c.Redis.Addr = getEnv("KEYGATE_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("KEYGATE_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("KEYGATE_REDIS_DB", c.Redis.DB)

	c.Auth.JWTSecret = getEnv("KEYGATE_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = getEnv("KEYGATE_JWT_ISSUER", c.Auth.Issuer)
	c.Auth.TokenTTL = getEnvDuration("KEYGATE_TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.CodeTTL = getEnvDuration("KEYGATE_CODE_TTL", c.Auth.CodeTTL)
	c.Auth.BcryptCost = getEnvInt("KEYGATE_BCRYPT_COST", c.Auth.BcryptCost)
	c.Auth.DevMode = getEnvBool("KEYGATE_DEV_MODE", c.Auth.DevMode)

	c.Observability.LogLevel = getEnv("KEYGATE_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.MetricsEnabled = getEnvBool("KEYGATE_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("KEYGATE_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("KEYGATE_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("KEYGATE_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("KEYGATE_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("KEYGATE_OTEL_INSECURE", c.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 && !c.Auth.DevMode {
		return fmt.Errorf("JWT secret must be at least 32 bytes outside dev mode")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.CodeTTL <= 0 {
		return fmt.Errorf("code TTL must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
