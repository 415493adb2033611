package config

import (
	"testing"
	"time"
)

func TestParseCSV(t *testing.T) {
	got := ParseCSV(" http://a.test, ,http://b.test,")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected result %v", got)
	}
	if ParseCSV("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TOKEN_TTL", "not-a-duration")
	t.Setenv("AI_RATE_PER_MINUTE", "-4")

	cfg := Load()
	if cfg.Port != ":9090" {
		t.Errorf("port: expected :9090, got %s", cfg.Port)
	}
	if cfg.JWTSecret != devJWTSecret {
		t.Errorf("expected development secret fallback")
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Errorf("expected default token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.AIRatePerMinute != 10 {
		t.Errorf("expected default rate, got %d", cfg.AIRatePerMinute)
	}
}
