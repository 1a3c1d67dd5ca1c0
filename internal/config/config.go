// Package config reads process configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database is a SQLite path or a postgres:// URL.
	Database string
	// RedisURL enables the cross-process list lock when set.
	RedisURL string
	LockTTL  time.Duration
	// LockWait bounds how long a command waits for a held list lock.
	LockWait       time.Duration
	PartialSuccess bool
	LogLevel       slog.Level
}

// Load reads the environment, after merging a .env file from the working
// directory if one exists. Variables already set take precedence over .env.
func Load() Config {
	_ = godotenv.Load() // loads .env if present
	return FromEnv()
}

// FromEnv reads the environment without touching .env.
func FromEnv() Config {
	return Config{
		Database:       getenv("REORDER_DATABASE", "./reorder.db"),
		RedisURL:       getenv("REORDER_REDIS_URL", ""),
		LockTTL:        time.Duration(getenvInt("REORDER_LOCK_TTL_SECONDS", 30)) * time.Second,
		LockWait:       time.Duration(getenvInt("REORDER_LOCK_WAIT_SECONDS", 10)) * time.Second,
		PartialSuccess: getenvBool("REORDER_PARTIAL_SUCCESS", false),
		LogLevel:       getenvLevel("REORDER_LOG_LEVEL", slog.LevelInfo),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvLevel(key string, fallback slog.Level) slog.Level {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return fallback
	}
	return level
}
