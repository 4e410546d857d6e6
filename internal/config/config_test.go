package config

import (
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"DB_DSN": "postgres://localhost/skillswap"}))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.Timezone != "UTC" {
		t.Fatalf("expected UTC timezone, got %q", cfg.Timezone)
	}
	if cfg.MatchDefaultLimit != 20 || cfg.MatchMaxLimit != 100 {
		t.Fatalf("unexpected match limits %d/%d", cfg.MatchDefaultLimit, cfg.MatchMaxLimit)
	}
	if cfg.ContactLimit != 3 || cfg.ContactWindow != time.Hour {
		t.Fatalf("unexpected contact throttle %d per %v", cfg.ContactLimit, cfg.ContactWindow)
	}
	if cfg.SweepInterval != 0 {
		t.Fatalf("expected lazy sweep by default, got %v", cfg.SweepInterval)
	}
	if cfg.SMTP.Port != 587 {
		t.Fatalf("expected smtp port 587, got %d", cfg.SMTP.Port)
	}
	if cfg.SMTP.Enabled() || cfg.Redis.Enabled() {
		t.Fatal("expected smtp and redis to be disabled")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"DB_DSN":              "postgres://localhost/skillswap",
		"ENV":                 "production",
		"TIMEZONE":            "Europe/Moscow",
		"MATCH_DEFAULT_LIMIT": "10",
		"CONTACT_WINDOW":      "30m",
		"SWEEP_INTERVAL":      "5m",
		"SMTP_HOST":           "smtp.example.com",
		"SMTP_USERNAME":       "robot@example.com",
		"REDIS_ADDR":          "localhost:6379",
		"REDIS_DB":            "2",
	}))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Location().String() != "Europe/Moscow" {
		t.Fatalf("expected Europe/Moscow location, got %s", cfg.Location())
	}
	if cfg.MatchDefaultLimit != 10 {
		t.Fatalf("expected match limit 10, got %d", cfg.MatchDefaultLimit)
	}
	if cfg.ContactWindow != 30*time.Minute || cfg.SweepInterval != 5*time.Minute {
		t.Fatalf("unexpected durations %v/%v", cfg.ContactWindow, cfg.SweepInterval)
	}
	if cfg.SMTP.From != "robot@example.com" {
		t.Fatalf("expected smtp from to default to username, got %q", cfg.SMTP.From)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing dsn", env: map[string]string{}},
		{name: "bad timezone", env: map[string]string{"DB_DSN": "x", "TIMEZONE": "Mars/Olympus"}},
		{name: "bad int", env: map[string]string{"DB_DSN": "x", "CONTACT_LIMIT": "many"}},
		{name: "bad duration", env: map[string]string{"DB_DSN": "x", "CONTACT_WINDOW": "soon"}},
		{name: "limit above max", env: map[string]string{"DB_DSN": "x", "MATCH_DEFAULT_LIMIT": "500"}},
		{name: "zero contact limit", env: map[string]string{"DB_DSN": "x", "CONTACT_LIMIT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromEnv(envMap(tt.env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
