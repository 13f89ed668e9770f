package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsSectionsAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
  allowed_origins: ["https://quiz.example.com"]
questions:
  cache_ttl: 2m
  batch_size: 5
auth:
  jwt_secret: from-file
  admin_code: open-sesame
game:
  hint_cost: 25
mail:
  host: smtp.example.com
  port: 587
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if cfg.Questions.BatchSize != 5 || cfg.Game.HintCost != 25 || cfg.Mail.Port != 587 {
		t.Fatalf("unexpected sections %+v %+v %+v", cfg.Questions, cfg.Game, cfg.Mail)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Auth.JWTSecret)
	}
	if got := TTLDuration(cfg.Questions.CacheTTL, time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m, got %v", got)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Second); got != time.Second {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
