package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	Version     string `mapstructure:"VERSION"`
	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`

	DB struct {
		Host         string        `mapstructure:"POSTGRES_HOST"`
		Port         string        `mapstructure:"POSTGRES_PORT"`
		User         string        `mapstructure:"POSTGRES_USER"`
		Password     string        `mapstructure:"POSTGRES_PASSWORD"`
		Name         string        `mapstructure:"POSTGRES_DB"`
		MaxOpenConns int           `mapstructure:"DB_MAX_OPEN_CONNS"`
		MaxIdleConns int           `mapstructure:"DB_MAX_IDLE_CONNS"`
		MaxIdleTime  time.Duration `mapstructure:"DB_MAX_IDLE_TIME"`
	} `mapstructure:",squash"`

	JWT struct {
		Secret          string        `mapstructure:"JWT_SECRET"`
		AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
		RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	} `mapstructure:",squash"`

	Media struct {
		Root string `mapstructure:"MEDIA_ROOT"`
		URL  string `mapstructure:"MEDIA_URL"`
	} `mapstructure:",squash"`

	Mail struct {
		Host     string `mapstructure:"MAIL_HOST"`
		Port     int    `mapstructure:"MAIL_PORT"`
		User     string `mapstructure:"MAIL_USER"`
		Password string `mapstructure:"MAIL_PASSWORD"`
		Sender   string `mapstructure:"MAIL_SENDER"`
	} `mapstructure:",squash"`

	RabbitMQ struct {
		Host     string `mapstructure:"RABBITMQ_HOST"`
		Port     string `mapstructure:"RABBITMQ_PORT"`
		User     string `mapstructure:"RABBITMQ_USER"`
		Password string `mapstructure:"RABBITMQ_PASSWORD"`
	} `mapstructure:",squash"`

	RateLimit struct {
		RPS     float64 `mapstructure:"RATE_LIMIT_RPS"`
		Burst   int     `mapstructure:"RATE_LIMIT_BURST"`
		Enabled bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	} `mapstructure:",squash"`

	UserCacheTTL time.Duration `mapstructure:"USER_CACHE_TTL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("VERSION", "1.0.0")
	v.SetDefault("TLS_CERT_FILE", "")
	v.SetDefault("TLS_KEY_FILE", "")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "blogcms")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_TIME", "15m")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("ACCESS_TOKEN_TTL", "5m")
	v.SetDefault("REFRESH_TOKEN_TTL", "24h")

	v.SetDefault("MEDIA_ROOT", "media")
	v.SetDefault("MEDIA_URL", "/media/")

	v.SetDefault("MAIL_HOST", "")
	v.SetDefault("MAIL_PORT", 587)
	v.SetDefault("MAIL_USER", "")
	v.SetDefault("MAIL_PASSWORD", "")
	v.SetDefault("MAIL_SENDER", "Blog <no-reply@example.com>")

	v.SetDefault("RABBITMQ_HOST", "")
	v.SetDefault("RABBITMQ_PORT", "5672")
	v.SetDefault("RABBITMQ_USER", "guest")
	v.SetDefault("RABBITMQ_PASSWORD", "guest")

	v.SetDefault("RATE_LIMIT_RPS", 2)
	v.SetDefault("RATE_LIMIT_BURST", 4)
	v.SetDefault("RATE_LIMIT_ENABLED", true)

	v.SetDefault("USER_CACHE_TTL", "1m")
}

// loadConfig reads path as a dotenv file when it exists. Environment variables override the file
// and defaults cover whatever neither sets.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) isProduction() bool {
	return c.Environment == "production"
}

// Validate checks required values. Production additionally needs a real secret and TLS files.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if !strings.HasPrefix(c.Media.URL, "/") && !strings.HasPrefix(c.Media.URL, "http") {
		return errors.New("MEDIA_URL must be an absolute path or URL")
	}

	if c.isProduction() {
		if c.JWT.Secret == defaultJWTSecret || len(c.JWT.Secret) < 32 {
			return errors.New("JWT_SECRET must be changed and at least 32 characters in production")
		}
		if c.TLSCertFile == "" || c.TLSKeyFile == "" {
			return errors.New("TLS_CERT_FILE and TLS_KEY_FILE are required in production")
		}
	}

	return nil
}

// brokerEnabled reports whether registration events should go through RabbitMQ.
func (c *Config) brokerEnabled() bool {
	return c.RabbitMQ.Host != ""
}

func (c *Config) mailEnabled() bool {
	return c.brokerEnabled() && c.Mail.Host != ""
}
