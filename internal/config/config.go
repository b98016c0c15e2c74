// Package config loads the biblio service configuration.
//
// Sources, lowest precedence first: an optional YAML file named by
// BIBLIO_CONFIG, then the process environment (a .env file is loaded into it
// first, never overriding variables already set).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	BotToken        string        `env:"TG_BOT_TOKEN" yaml:"bot_token"`
	BookChatID      int64         `env:"TG_BOOK_CHAT_ID" yaml:"book_chat_id"`
	MaintChatID     int64         `env:"TG_MAINT_CHAT_ID" yaml:"maint_chat_id"`
	PollInterval    time.Duration `env:"TG_POLL_INTERVAL" yaml:"poll_interval"`
	PollTimeout     time.Duration `env:"TG_POLL_TIMEOUT" yaml:"poll_timeout"`
	CleanupInterval time.Duration `env:"TG_CLEANUP_INTERVAL" yaml:"cleanup_interval"`

	DBPath        string `env:"BIBLIO_DB_PATH" yaml:"db_path"`
	Port          int    `env:"BIBLIO_PORT" yaml:"port"`
	AdminKey      string `env:"BIBLIO_ADMIN_KEY" yaml:"admin_key"`
	CoverCacheDir string `env:"BIBLIO_COVER_CACHE_DIR" yaml:"cover_cache_dir"`
	FrontendDist  string `env:"FRONTEND_DIST" yaml:"frontend_dist"`
	LogLevel      string `env:"LOG_LEVEL" yaml:"log_level"`
	MCPTransport  string `env:"MCP_TRANSPORT" yaml:"mcp_transport"`

	Site SiteConfig `yaml:"site"`
}

// SiteConfig is the branding block served verbatim by GET /api/config.
type SiteConfig struct {
	SiteName     string `env:"BIBLIO_SITE_NAME" yaml:"site_name" json:"site_name"`
	HeaderName   string `env:"BIBLIO_HEADER_NAME" yaml:"header_name" json:"header_name"`
	AppIcon      string `env:"BIBLIO_APP_ICON" yaml:"app_icon" json:"app_icon"`
	AppleIcon    string `env:"BIBLIO_APPLE_ICON" yaml:"apple_icon" json:"apple_icon"`
	Logo         string `env:"BIBLIO_LOGO" yaml:"logo" json:"logo"`
	DefaultCover string `env:"BIBLIO_DEFAULT_COVER" yaml:"default_cover" json:"default_cover"`
	FooterText   string `env:"BIBLIO_FOOTER_TEXT" yaml:"footer_text" json:"footer_text"`
}

// Resolved returns the branding block with icon fallbacks applied:
// the apple icon falls back to the logo then the app icon, and the logo
// falls back to the app icon.
func (s SiteConfig) Resolved() SiteConfig {
	out := s
	if out.AppleIcon == "" {
		out.AppleIcon = out.Logo
	}
	if out.AppleIcon == "" {
		out.AppleIcon = out.AppIcon
	}
	if out.Logo == "" {
		out.Logo = out.AppIcon
	}
	return out
}

// Load builds the configuration from the YAML file (when BIBLIO_CONFIG is
// set) and the environment, then validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path := os.Getenv("BIBLIO_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults fills unset fields after both sources have been applied, so an
// absent env var never clobbers a file value.
func (c *Config) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 10 * time.Second
	}
	if c.DBPath == "" {
		c.DBPath = "./data/biblio.db"
	}
	if c.Port == 0 {
		c.Port = 8963
	}
	if c.CoverCacheDir == "" {
		c.CoverCacheDir = "./data/covers"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Site.SiteName == "" {
		c.Site.SiteName = "Biblio"
	}
}

// Validate checks hard constraints. Missing feed credentials are not an
// error: the service then runs in read-only mode (see PollerEnabled and
// CleanupEnabled).
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: BIBLIO_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("config: TG_CLEANUP_INTERVAL cannot be negative")
	}
	return nil
}

// PollerEnabled reports whether ingestion can run: both a bot token and a
// source channel are required.
func (c *Config) PollerEnabled() bool {
	return c.BotToken != "" && c.BookChatID != 0
}

// CleanupEnabled reports whether the sweeper can run: a positive interval, a
// bot token, and a maintenance chat are all required.
func (c *Config) CleanupEnabled() bool {
	return c.BotToken != "" && c.CleanupInterval > 0 && c.MaintChatID != 0
}
