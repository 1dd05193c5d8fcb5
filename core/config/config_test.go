package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 42
rate_limit:
  interval_ms: 500
  exclude_updates: [" Callback "]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.RateLimit.Burst != 1 || cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("rate limit = %+v", cfg.RateLimit)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: \"1:a\"\n")
	t.Setenv("BOT_TOKEN", "999:override")
	t.Setenv("TELEGRAM_ADMIN_ID", "7")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "999:override" || cfg.Telegram.AdminID != 7 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"missing token":   {},
		"malformed token": {Telegram: TelegramConfig{Token: "abc"}},
		"bad run mode":    {Telegram: TelegramConfig{Token: "1:a", RunMode: "carrier-pigeon"}},
		"webhook url":     {Telegram: TelegramConfig{Token: "1:a", RunMode: "webhook"}},
		"bad exclusion":   {Telegram: TelegramConfig{Token: "1:a"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}}},
	}
	for name, cfg := range cases {
		if err := Normalize(&cfg); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: err = %v, want ErrInvalid", name, err)
		}
	}
}
