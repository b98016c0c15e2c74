package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearBiblioEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TG_BOT_TOKEN", "TG_BOOK_CHAT_ID", "TG_MAINT_CHAT_ID",
		"TG_POLL_INTERVAL", "TG_POLL_TIMEOUT", "TG_CLEANUP_INTERVAL",
		"BIBLIO_DB_PATH", "BIBLIO_PORT", "BIBLIO_ADMIN_KEY",
		"BIBLIO_COVER_CACHE_DIR", "FRONTEND_DIST", "LOG_LEVEL",
		"MCP_TRANSPORT", "BIBLIO_CONFIG", "BIBLIO_SITE_NAME",
		"BIBLIO_HEADER_NAME", "BIBLIO_APP_ICON", "BIBLIO_APPLE_ICON",
		"BIBLIO_LOGO", "BIBLIO_DEFAULT_COVER", "BIBLIO_FOOTER_TEXT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// WHAT: Load with an empty environment yields the documented defaults.
	// WHY: The service must boot in read-only mode with zero configuration.
	clearBiblioEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8963 {
		t.Errorf("port: got %d, want 8963", cfg.Port)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("poll interval: got %v, want 2s", cfg.PollInterval)
	}
	if cfg.PollTimeout != 10*time.Second {
		t.Errorf("poll timeout: got %v, want 10s", cfg.PollTimeout)
	}
	if cfg.DBPath != "./data/biblio.db" {
		t.Errorf("db path: got %q", cfg.DBPath)
	}
	if cfg.PollerEnabled() {
		t.Error("poller should be disabled without token and chat")
	}
	if cfg.CleanupEnabled() {
		t.Error("cleanup should be disabled without interval and maint chat")
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	// WHAT: Environment values win over the YAML file.
	// WHY: Deployment overrides must not require editing the file.
	clearBiblioEnv(t)

	path := filepath.Join(t.TempDir(), "biblio.yaml")
	content := "port: 9000\nadmin_key: from-yaml\nsite:\n  site_name: YAML Library\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("BIBLIO_CONFIG", path)
	t.Setenv("BIBLIO_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("port: got %d, want env override 9100", cfg.Port)
	}
	if cfg.AdminKey != "from-yaml" {
		t.Errorf("admin key: got %q, want yaml value", cfg.AdminKey)
	}
	if cfg.Site.SiteName != "YAML Library" {
		t.Errorf("site name: got %q, want yaml value", cfg.Site.SiteName)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	// WHAT: An out-of-range port fails validation.
	// WHY: A bad port should be caught at startup, not at listen time.
	clearBiblioEnv(t)
	t.Setenv("BIBLIO_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for port 70000")
	}
}

func TestEnableFlags(t *testing.T) {
	// WHAT: PollerEnabled and CleanupEnabled require their full credential set.
	// WHY: Partial configuration degrades to read-only instead of crashing.
	cfg := &Config{BotToken: "t", BookChatID: -100}
	if !cfg.PollerEnabled() {
		t.Error("poller should be enabled with token and chat")
	}
	if cfg.CleanupEnabled() {
		t.Error("cleanup needs an interval and a maintenance chat")
	}
	cfg.CleanupInterval = time.Hour
	if cfg.CleanupEnabled() {
		t.Error("cleanup needs a maintenance chat")
	}
	cfg.MaintChatID = -200
	if !cfg.CleanupEnabled() {
		t.Error("cleanup should be enabled with interval, token, and maint chat")
	}
}

func TestSiteResolved(t *testing.T) {
	// WHAT: Icon fallback chain: apple icon <- logo <- app icon.
	// WHY: Frontends expect every icon slot populated when any icon is set.
	s := SiteConfig{AppIcon: "/icon.png"}.Resolved()
	if s.AppleIcon != "/icon.png" || s.Logo != "/icon.png" {
		t.Errorf("fallback to app icon: got apple=%q logo=%q", s.AppleIcon, s.Logo)
	}

	s = SiteConfig{AppIcon: "/icon.png", Logo: "/logo.png"}.Resolved()
	if s.AppleIcon != "/logo.png" {
		t.Errorf("apple icon should fall back to logo, got %q", s.AppleIcon)
	}

	s = SiteConfig{AppIcon: "/icon.png", Logo: "/logo.png", AppleIcon: "/apple.png"}.Resolved()
	if s.AppleIcon != "/apple.png" || s.Logo != "/logo.png" {
		t.Errorf("explicit values must survive: got apple=%q logo=%q", s.AppleIcon, s.Logo)
	}
}
