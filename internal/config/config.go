package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Directory (empty: in-memory demo study)
	DatabaseURL string

	// Redis (empty: in-process event fan-out)
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini AI (empty key: reader questions are logged but not answered)
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Sessions
	SessionIdleTimeout time.Duration

	// Stats
	StatsTimezone string

	// Rate limiting
	ActivityPerMinute int

	// Frontend
	FrontendURL string
}

// Load reads the process environment. envFile, when set, is loaded first;
// otherwise a .env in the working directory is used if present.
func Load(envFile string) *Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(fmt.Sprintf("failed to load env file %s: %v", envFile, err))
		}
	} else {
		godotenv.Load()
	}

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		SessionIdleTimeout:   time.Duration(getEnvAsIntOrDefault("SESSION_IDLE_TIMEOUT_MINUTES", 30)) * time.Minute,
		StatsTimezone:        getEnvOrDefault("STATS_TIMEZONE", "Local"),
		ActivityPerMinute:    getEnvAsIntOrDefault("ACTIVITY_RATE_LIMIT_PER_MINUTE", 600),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// Location resolves StatsTimezone for the hourly histogram.
func (c *Config) Location() (*time.Location, error) {
	if c.StatsTimezone == "" || c.StatsTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.StatsTimezone)
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
