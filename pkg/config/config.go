package config

import "os"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port    string
	AppName string

	// Databases (analysis sink + LLM cache live under this directory)
	DBDir string

	// Analyzed repository
	RepoPath string

	// OpenAI-compatible scoring endpoint
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envOrDefault("PORT", "8081"),
		AppName: envOrDefault("APP_NAME", "eng-ctx"),

		DBDir: envOrDefault("ENGCTX_DB_DIR", "db"),

		RepoPath: os.Getenv("REPO_PATH"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: envOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:   envOrDefault("OPENAI_MODEL", "gpt-4"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
