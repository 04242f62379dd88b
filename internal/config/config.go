package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs, loaded once in main and passed
// down explicitly.
type Config struct {
	ServerAddress string
	PostgresConn  string
	JWTSecret     string
	JWTExpire     time.Duration
	UploadDir     string
	LogLevel      string
	CORSOrigins   []string

	// Bootstrap admin, created at startup if no admin account exists.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress: envOr("SERVER_ADDRESS", "0.0.0.0:8080"),
		PostgresConn:  os.Getenv("POSTGRES_CONN"),
		JWTSecret:     envOr("JWT_SECRET", ""),
		JWTExpire:     time.Duration(envIntOr("JWT_EXPIRE_HOURS", 24)) * time.Hour,
		UploadDir:     envOr("UPLOAD_DIR", "./uploads"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		CORSOrigins:   splitList(envOr("CORS_ORIGINS", "*")),
		AdminUsername: envOr("ADMIN_USERNAME", "admin"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.PostgresConn == "" {
		return nil, fmt.Errorf("POSTGRES_CONN env variable is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET env variable is not set")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
