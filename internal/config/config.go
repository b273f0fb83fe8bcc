package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Bot     BotConfig
	DB      DBConfig
	Archive ArchiveConfig
	Server  ServerConfig
}

// BotConfig holds Telegram bot configuration
type BotConfig struct {
	Token string `envconfig:"BOT_TOKEN" required:"true"`
}

// DBConfig holds database configuration
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	Database string `envconfig:"DB_NAME" default:"archive_bot"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
}

// ArchiveConfig holds file archive configuration
type ArchiveConfig struct {
	// TargetDir is the root directory all channel archives live under.
	TargetDir string `envconfig:"ARCHIVE_TARGET_DIR" default:"./archive"`
	// ReplyRateLimit is the outbound Telegram message budget per second.
	ReplyRateLimit float64 `envconfig:"ARCHIVE_REPLY_RATE_LIMIT" default:"30"`
	// StatsInterval controls how often store-derived metrics refresh.
	StatsInterval time.Duration `envconfig:"ARCHIVE_STATS_INTERVAL" default:"1m"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// DSN returns the MySQL data source name
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg.Bot); err != nil {
		return nil, fmt.Errorf("failed to load bot config: %w", err)
	}

	if err := envconfig.Process("", &cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to load db config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Archive); err != nil {
		return nil, fmt.Errorf("failed to load archive config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.DB.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Archive.TargetDir == "" {
		return fmt.Errorf("ARCHIVE_TARGET_DIR must not be empty")
	}
	if c.Archive.ReplyRateLimit <= 0 {
		return fmt.Errorf("ARCHIVE_REPLY_RATE_LIMIT must be positive")
	}
	if c.Archive.StatsInterval <= 0 {
		return fmt.Errorf("ARCHIVE_STATS_INTERVAL must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	return nil
}
