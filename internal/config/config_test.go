package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"quizrush-service/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
redis:
  addr: "localhost:6379"
  db: 2
postgres:
  url: "postgres://localhost/quizrush"
quiz:
  cacheTtl: "5m"
guard:
  attemptCooldown: "12h"
  quitCooldown: "10m"
scoring:
  pointsPerSecond: 20
  multipliers:
    expert: 3.0
anthropic:
  model: "claude-sonnet-4-20250514"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.DB != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Scoring.PointsPerSecond != 20 {
		t.Fatalf("PointsPerSecond = %d", cfg.Scoring.PointsPerSecond)
	}
	// Partial overrides keep the untouched defaults.
	if cfg.Scoring.StreakBonus != 60 {
		t.Fatalf("StreakBonus = %d", cfg.Scoring.StreakBonus)
	}
	if cfg.Scoring.Multiplier(domain.DifficultyExpert) != 3.0 {
		t.Fatalf("expert multiplier = %v", cfg.Scoring.Multiplier(domain.DifficultyExpert))
	}
	if cfg.Scoring.Multiplier(domain.DifficultyNovice) != 0.4 {
		t.Fatalf("novice multiplier = %v", cfg.Scoring.Multiplier(domain.DifficultyNovice))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty = %v", got)
	}
	if got := TTLDuration("30s", time.Minute); got != 30*time.Second {
		t.Fatalf("parsed = %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("bogus = %v", got)
	}
}
