package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabaseURL     string
	DatabasePath    string
	MigrationsPath  string
	TemplatesPath   string
	StaticFilesPath string

	SessionSecret   string
	SessionDuration time.Duration

	MaxAttempts      int
	Segments         string
	DailyClipSeconds int
	CountdownSeconds int
	RecordTimeout    time.Duration

	GuessRatePerSecond float64
	GuessRateBurst     int
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:     getEnv("DB_URL", ""),
		DatabasePath:    getEnv("DB_PATH", "./bollywoodle.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		TemplatesPath:   getEnv("TEMPLATES_PATH", "./internal/templates"),
		StaticFilesPath: getEnv("STATIC_PATH", "./static"),

		SessionSecret:   getEnv("SESSION_SECRET", "change-me-in-production"),
		SessionDuration: getEnvDuration("SESSION_DURATION", 24*time.Hour),

		MaxAttempts:      getEnvInt("MAX_ATTEMPTS", 6),
		Segments:         getEnv("SEGMENTS", "1,1,3,4,5,2"),
		DailyClipSeconds: getEnvInt("DAILY_CLIP_SECONDS", 30),
		CountdownSeconds: getEnvInt("COUNTDOWN_SECONDS", 30),
		RecordTimeout:    getEnvDuration("RECORD_TIMEOUT", 10*time.Second),

		GuessRatePerSecond: getEnvFloat("GUESS_RATE_PER_SECOND", 2),
		GuessRateBurst:     getEnvInt("GUESS_RATE_BURST", 5),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
