package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quizrush-service/internal/scoring"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		CacheTTL string `yaml:"cacheTtl"`
	} `yaml:"quiz"`
	Scoring scoring.Rules `yaml:"scoring"`
	Guard   struct {
		AttemptCooldown string `yaml:"attemptCooldown"`
		QuitCooldown    string `yaml:"quitCooldown"`
	} `yaml:"guard"`
	Anthropic struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"anthropic"`
}

// Load reads YAML config from path. Scoring rules start from the defaults so
// a partial scoring block only overrides what it names.
func Load(path string) (Config, error) {
	cfg := Config{Scoring: scoring.DefaultRules()}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
