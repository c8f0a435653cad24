package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.AI.RateLimitRequests != 10 {
		t.Errorf("rate limit = %d, want 10", cfg.AI.RateLimitRequests)
	}
	if cfg.AI.RateLimitWindowS != 60 {
		t.Errorf("window = %d, want 60", cfg.AI.RateLimitWindowS)
	}
	if cfg.AI.CacheTTLSeconds != 300 {
		t.Errorf("cache ttl = %d, want 300", cfg.AI.CacheTTLSeconds)
	}
	if cfg.AI.DefaultTimeoutMS != 30000 {
		t.Errorf("timeout = %d, want 30000", cfg.AI.DefaultTimeoutMS)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should default to disabled")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NEWOMEN_SERVER_PORT", "9090")
	t.Setenv("NEWOMEN_AI_RATE_LIMIT_REQUESTS", "25")
	t.Setenv("NEWOMEN_CACHE_ENABLED", "true")
	t.Setenv("NEWOMEN_GREETING_OVERRIDES_PATH", "/etc/newomen/overrides.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.AI.RateLimitRequests != 25 {
		t.Errorf("rate limit = %d, want 25", cfg.AI.RateLimitRequests)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled")
	}
	if cfg.OverridesPath != "/etc/newomen/overrides.yaml" {
		t.Errorf("overrides path = %q", cfg.OverridesPath)
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("NEWOMEN_SERVER_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want fallback 8080", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with defaults error = %v", err)
	}

	cfg.Database.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should require a database URL")
	}

	cfg, _ = Load()
	cfg.AI.RateLimitRequests = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject a zero rate limit")
	}

	cfg, _ = Load()
	cfg.Cache.Enabled = true
	cfg.Cache.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should require a cache URL when enabled")
	}
}
