package config

import (
	"os"
)

// Config carries the process configuration, populated from environment
// variables with in-code defaults.
type Config struct {
	Port            string
	ProjectID       string
	ExportBucket    string
	GeminiModel     string
	DefaultUserID   string
	AdviceQueueSize int
}

// FromEnvironment reads the environment and fills in defaults.
func FromEnvironment() *Config {
	cfg := Config{
		Port:            "8080",
		GeminiModel:     "gemini-2.5-flash",
		AdviceQueueSize: 16,
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		cfg.ProjectID = v
	}
	if v := os.Getenv("MONEYBOOK_EXPORT_BUCKET"); v != "" {
		cfg.ExportBucket = v
	}
	if v := os.Getenv("MONEYBOOK_GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("MONEYBOOK_USER_ID"); v != "" {
		cfg.DefaultUserID = v
	}

	return &cfg
}
