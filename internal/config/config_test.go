package config

import "testing"

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")
	t.Setenv("DISCORD_TOKEN", "token-123")
	t.Setenv("SPAM_THRESHOLD", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DiscordToken != "token-123" {
		t.Fatalf("token = %q", cfg.DiscordToken)
	}
	if cfg.AutoMod.SpamThreshold != 7 {
		t.Fatalf("spam threshold = %d", cfg.AutoMod.SpamThreshold)
	}
	if cfg.AutoMod.SpamWindowSeconds != 10 || cfg.Leveling.XPPerMessage != 10 || cfg.Scheduler.IntervalSeconds != 60 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestBuildLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger, err := BuildLogger(level)
		if err != nil {
			t.Fatalf("BuildLogger(%q): %v", level, err)
		}
		_ = logger.Sync()
	}
}
