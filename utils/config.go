// utils/config.go
package utils

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// Config holds everything main needs, read from the environment (and a
// .env file when present).
type Config struct {
	Port            string
	DatabaseDriver  string // "postgres" or "sqlite"
	DatabaseURL     string
	SQLitePath      string
	AllowedOrigins  []string
	RepairInterval  time.Duration
	ArchiveInterval time.Duration
	ArchivePrefix   string
	R2              R2Config
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether every credential needed for uploads is set.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// LoadConfig reads the environment and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "5200"),
		DatabaseDriver:  strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      getEnv("SQLITE_PATH", "badges.db"),
		AllowedOrigins:  splitOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RepairInterval:  getEnvDuration("REPAIR_INTERVAL", 10*time.Minute),
		ArchiveInterval: getEnvDuration("ARCHIVE_INTERVAL", 24*time.Hour),
		ArchivePrefix:   getEnv("ARCHIVE_PREFIX", "whizbee badges"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or sqlite)", cfg.DatabaseDriver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("⚠️  Invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
