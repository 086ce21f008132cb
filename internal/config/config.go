// Package config loads application settings from environment variables with
// defaults suitable for local development.
//
// Variables:
//   - PORT: HTTP port (default 8080)
//   - DATABASE_URL: Postgres connection string (required)
//   - BOOKING_HORIZON_DAYS: advance-booking window; also bounds the
//     alternative-slot search (default 30)
//   - MAX_ALTERNATIVES: suggestions returned per conflicted request (default 3)
//   - WAITLIST_TTL_HOURS: lifetime of a waiting-list entry (default 72)
//   - COMPLETION_CRON: schedule for the completion job (default "@every 10m")
//   - EXPIRY_CRON: schedule for the waitlist expiry job (default "@every 15m")
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	DatabaseURL     string
	HorizonDays     int
	MaxAlternatives int
	WaitlistTTL     time.Duration
	CompletionCron  string
	ExpiryCron      string
}

func Load() Config {
	return Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HorizonDays:     getEnvInt("BOOKING_HORIZON_DAYS", 30),
		MaxAlternatives: getEnvInt("MAX_ALTERNATIVES", 3),
		WaitlistTTL:     time.Duration(getEnvInt("WAITLIST_TTL_HOURS", 72)) * time.Hour,
		CompletionCron:  getEnv("COMPLETION_CRON", "@every 10m"),
		ExpiryCron:      getEnv("EXPIRY_CRON", "@every 15m"),
	}
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	if c.HorizonDays < 1 {
		return fmt.Errorf("BOOKING_HORIZON_DAYS must be at least 1, got %d", c.HorizonDays)
	}
	if c.MaxAlternatives < 1 {
		return fmt.Errorf("MAX_ALTERNATIVES must be at least 1, got %d", c.MaxAlternatives)
	}
	return nil
}

// Horizon is the advance-booking window as a duration.
func (c Config) Horizon() time.Duration {
	return time.Duration(c.HorizonDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
