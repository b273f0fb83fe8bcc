package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_WithRequiredEnvVars(t *testing.T) {
	os.Setenv("BOT_TOKEN", "test-token-123")
	os.Setenv("DB_PASSWORD", "test-password")
	defer func() {
		os.Unsetenv("BOT_TOKEN")
		os.Unsetenv("DB_PASSWORD")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bot.Token != "test-token-123" {
		t.Errorf("Bot.Token = %v, want %v", cfg.Bot.Token, "test-token-123")
	}
	if cfg.DB.Password != "test-password" {
		t.Errorf("DB.Password = %v, want %v", cfg.DB.Password, "test-password")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	os.Setenv("BOT_TOKEN", "test-token")
	os.Setenv("DB_PASSWORD", "test-pass")
	defer func() {
		os.Unsetenv("BOT_TOKEN")
		os.Unsetenv("DB_PASSWORD")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Test DB defaults
	if cfg.DB.Host != "localhost" {
		t.Errorf("DB.Host = %v, want %v", cfg.DB.Host, "localhost")
	}
	if cfg.DB.Port != 3306 {
		t.Errorf("DB.Port = %v, want %v", cfg.DB.Port, 3306)
	}
	if cfg.DB.User != "root" {
		t.Errorf("DB.User = %v, want %v", cfg.DB.User, "root")
	}
	if cfg.DB.Database != "archive_bot" {
		t.Errorf("DB.Database = %v, want %v", cfg.DB.Database, "archive_bot")
	}
	if cfg.DB.MaxConns != 10 {
		t.Errorf("DB.MaxConns = %v, want %v", cfg.DB.MaxConns, 10)
	}

	// Test Archive defaults
	if cfg.Archive.TargetDir != "./archive" {
		t.Errorf("Archive.TargetDir = %v, want %v", cfg.Archive.TargetDir, "./archive")
	}
	if cfg.Archive.ReplyRateLimit != 30 {
		t.Errorf("Archive.ReplyRateLimit = %v, want %v", cfg.Archive.ReplyRateLimit, 30.0)
	}
	if cfg.Archive.StatsInterval != time.Minute {
		t.Errorf("Archive.StatsInterval = %v, want %v", cfg.Archive.StatsInterval, time.Minute)
	}

	// Test Server defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, 8080)
	}
}

func TestLoad_MissingBotToken(t *testing.T) {
	os.Unsetenv("BOT_TOKEN")
	os.Setenv("DB_PASSWORD", "test-pass")
	defer os.Unsetenv("DB_PASSWORD")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing BOT_TOKEN, got nil")
	}
}

func TestLoad_MissingDBPassword(t *testing.T) {
	os.Setenv("BOT_TOKEN", "test-token")
	os.Unsetenv("DB_PASSWORD")
	defer os.Unsetenv("BOT_TOKEN")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing DB_PASSWORD, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Bot:     BotConfig{Token: "token"},
			DB:      DBConfig{Password: "pass"},
			Archive: ArchiveConfig{TargetDir: "./archive", ReplyRateLimit: 30, StatsInterval: time.Minute},
			Server:  ServerConfig{Port: 8080},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing bot token",
			mutate:  func(c *Config) { c.Bot.Token = "" },
			wantErr: true,
		},
		{
			name:    "missing db password",
			mutate:  func(c *Config) { c.DB.Password = "" },
			wantErr: true,
		},
		{
			name:    "empty target dir",
			mutate:  func(c *Config) { c.Archive.TargetDir = "" },
			wantErr: true,
		},
		{
			name:    "invalid reply rate limit",
			mutate:  func(c *Config) { c.Archive.ReplyRateLimit = 0 },
			wantErr: true,
		},
		{
			name:    "invalid stats interval",
			mutate:  func(c *Config) { c.Archive.StatsInterval = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDBConfig_DSN(t *testing.T) {
	cfg := DBConfig{
		Host:     "localhost",
		Port:     3306,
		User:     "root",
		Password: "secret",
		Database: "testdb",
	}

	expected := "root:secret@tcp(localhost:3306)/testdb?charset=utf8mb4&parseTime=True&loc=Local"
	if got := cfg.DSN(); got != expected {
		t.Errorf("DSN() = %v, want %v", got, expected)
	}
}
