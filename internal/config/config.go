package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env  string
	Port string

	DatabaseURL string
	RedisURL    string

	LogLevel  string
	LogFormat string

	SessionSecret      string
	TokenEncryptionKey string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	OpenAITimeoutSeconds int

	// CronSecret guards the external trigger endpoints used when the
	// in-process scheduler is disabled in favor of an external scheduler.
	CronSecret       string
	SchedulerEnabled bool
	// ScheduleTickCron is the cron spec for the evaluator tick.
	ScheduleTickCron string

	PlatformDir string
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Env:  getEnvWithDefault("ENV", "development"),
		Port: getEnvWithDefault("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		SessionSecret:      os.Getenv("SESSION_SECRET"),
		TokenEncryptionKey: os.Getenv("TOKEN_ENCRYPTION_KEY"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),

		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        getEnvWithDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:          getEnvWithDefault("OPENAI_MODEL", "gpt-4o"),
		OpenAITimeoutSeconds: getEnvIntWithDefault("OPENAI_TIMEOUT_SECONDS", 60),

		CronSecret:       os.Getenv("CRON_SECRET"),
		SchedulerEnabled: getEnvBoolWithDefault("SCHEDULER_ENABLED", true),
		ScheduleTickCron: getEnvWithDefault("SCHEDULE_TICK_CRON", "*/15 * * * *"),

		PlatformDir: getEnvWithDefault("PLATFORM_DIR", "./platforms"),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	if cfg.CronSecret == "" {
		log.Println("WARNING: CRON_SECRET not set. External trigger endpoints will reject all requests.")
	}

	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
		log.Printf("WARNING: invalid value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		log.Printf("WARNING: invalid value for %s, using default %v", key, defaultValue)
	}
	return defaultValue
}
