package main

import (
	"os"
	"strconv"
	"time"
)

// Config is read once from the environment at startup. API keys are checked
// lazily by the engines so the service can boot (and tests can run) without
// them.
type Config struct {
	Port   string
	Engine string // default provider: "gemini" or "openai"

	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	OpenAIAPIKey     string
	OpenAIModel      string

	PromptDir      string
	MaxUploadBytes int64
	SessionTTL     time.Duration
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func loadConfig() *Config {
	return &Config{
		Port:   getEnv("PORT", "8081"),
		Engine: getEnv("ENGINE", "gemini"),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-preview-image-generation"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		PromptDir: os.Getenv("PROMPT_DIR"),
		// uploads are fully buffered in memory, so the ceiling is explicit
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 8*1024*1024),
		SessionTTL:     getEnvDuration("SESSION_TTL", 30*time.Minute),
	}
}
