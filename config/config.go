package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/Bos243/appointment-booking-app/pkg/messaging/redis"
)

type ServerConfig struct {
	Port           int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	MaxHeaderBytes int           `yaml:"max_header_bytes" envconfig:"SERVER_MAX_HEADER_BYTES"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE"`

	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"DB_CONN_MAX_LIFETIME"`
}

type JWTConfig struct {
	Secret             string        `yaml:"secret" envconfig:"JWT_SECRET"`
	RefreshSecret      string        `yaml:"refresh_secret" envconfig:"JWT_REFRESH_SECRET"`
	AccessTokenExpiry  time.Duration `yaml:"access_token_expiry" envconfig:"JWT_ACCESS_TOKEN_EXPIRY"`
	RefreshTokenExpiry time.Duration `yaml:"refresh_token_expiry" envconfig:"JWT_REFRESH_TOKEN_EXPIRY"`
}

type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" envconfig:"REDIS_ENABLED"`
	URL          string        `yaml:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"REDIS_MAX_RETRIES"`
	RetryBackoff time.Duration `yaml:"retry_backoff" envconfig:"REDIS_RETRY_BACKOFF"`
	PoolSize     int           `yaml:"pool_size" envconfig:"REDIS_POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" envconfig:"REDIS_MIN_IDLE_CONNS"`
}

type SMTPConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"SMTP_ENABLED"`
	Host      string `yaml:"host" envconfig:"SMTP_HOST"`
	Port      int    `yaml:"port" envconfig:"SMTP_PORT"`
	Username  string `yaml:"username" envconfig:"SMTP_USERNAME"`
	Password  string `yaml:"password" envconfig:"SMTP_PASSWORD"`
	From      string `yaml:"from" envconfig:"SMTP_FROM"`
	PublicURL string `yaml:"public_url" envconfig:"SMTP_PUBLIC_URL"`
}

// BookingConfig holds the policy knobs for appointment administration.
type BookingConfig struct {
	// AllowTerminalOverride lets admins reassign or delete appointments
	// that are already completed or canceled.
	AllowTerminalOverride bool `yaml:"allow_terminal_override" envconfig:"BOOKING_ALLOW_TERMINAL_OVERRIDE"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
}

type SecurityConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"SECURITY_ALLOWED_ORIGINS"`
}

type MonitoringConfig struct {
	MetricsNamespace string `yaml:"metrics_namespace" envconfig:"MONITORING_METRICS_NAMESPACE"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" envconfig:"LOG_PRETTY"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Redis      RedisConfig      `yaml:"redis"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Booking    BookingConfig    `yaml:"booking"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Security   SecurityConfig   `yaml:"security"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Log        LogConfig        `yaml:"log"`
}

// LoadConfig reads config.yml when one is present, then overlays
// environment variables. A missing file is fine; the environment alone can
// carry a full configuration.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	config := defaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if config.JWT.Secret == "" || config.JWT.RefreshSecret == "" {
		return nil, fmt.Errorf("jwt secrets are required")
	}
	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			ReadTimeout: 10 * time.Second,
			// No write timeout: the SSE endpoints hold their response
			// open until the client disconnects.
			WriteTimeout:   0,
			MaxHeaderBytes: 1 << 20,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "appointments",
			SSLMode: "disable",

			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		JWT: JWTConfig{
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			URL:          "redis://localhost:6379",
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Monitoring: MonitoringConfig{
			MetricsNamespace: "appointment_api",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
