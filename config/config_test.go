package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr default: got %q", cfg.ListenAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr default: got %q", cfg.MetricsAddr)
	}
	if cfg.EnrichTimeout != 20*time.Second {
		t.Errorf("EnrichTimeout default: got %v", cfg.EnrichTimeout)
	}
	if cfg.SessionIdleTTL != 2*time.Hour {
		t.Errorf("SessionIdleTTL default: got %v", cfg.SessionIdleTTL)
	}
	// Optional subsystems default to off.
	if cfg.RedisAddr != "" || cfg.JournalPath != "" {
		t.Errorf("optional stores must default to disabled: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("ENRICH_TIMEOUT", "5s")
	t.Setenv("ENRICH_RPS", "2.5")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_IDLE_TTL", "30m")

	cfg := Load()
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr: got %q", cfg.ListenAddr)
	}
	if cfg.EnrichTimeout != 5*time.Second {
		t.Errorf("EnrichTimeout: got %v", cfg.EnrichTimeout)
	}
	if cfg.EnrichRPS != 2.5 {
		t.Errorf("EnrichRPS: got %v", cfg.EnrichRPS)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB: got %d", cfg.RedisDB)
	}
	if cfg.SessionIdleTTL != 30*time.Minute {
		t.Errorf("SessionIdleTTL: got %v", cfg.SessionIdleTTL)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENRICH_TIMEOUT", "not-a-duration")
	t.Setenv("REDIS_DB", "xyz")
	t.Setenv("ENRICH_RPS", "fast")

	cfg := Load()
	if cfg.EnrichTimeout != 20*time.Second {
		t.Errorf("EnrichTimeout fallback: got %v", cfg.EnrichTimeout)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB fallback: got %d", cfg.RedisDB)
	}
	if cfg.EnrichRPS != 5 {
		t.Errorf("EnrichRPS fallback: got %v", cfg.EnrichRPS)
	}
}
