package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port          int
	JWTSecret     string
	DatabaseURL   string
	EncryptionKey string
	CORSOrigins   []string
	AdminEmail    string
	AdminPassword string

	// RegistrarAPIURL is the base URL of the DNS registrar API; the token
	// authenticates zone updates for the operator's base domains.
	RegistrarAPIURL string
	RegistrarToken  string

	// PlatformAPIURL is the base URL of the deployment platform API.
	// Authentication is per-connection, not operator-wide.
	PlatformAPIURL string

	// UpstreamTimeout bounds each registrar/platform call.
	UpstreamTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, _ := strconv.Atoi(getEnv("PORT", "4001"))

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	encKey := getEnv("ENCRYPTION_KEY", "")
	if encKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required (must be exactly 32 bytes)")
	}
	if len(encKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(encKey))
	}

	registrarURL := getEnv("REGISTRAR_API_URL", "")
	if registrarURL == "" {
		return nil, fmt.Errorf("REGISTRAR_API_URL is required")
	}
	registrarToken := getEnv("REGISTRAR_TOKEN", "")
	if registrarToken == "" {
		return nil, fmt.Errorf("REGISTRAR_TOKEN is required")
	}

	timeoutSecs, _ := strconv.Atoi(getEnv("UPSTREAM_TIMEOUT_SECONDS", "10"))
	if timeoutSecs <= 0 {
		timeoutSecs = 10
	}

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Port:            port,
		JWTSecret:       jwtSecret,
		DatabaseURL:     dbURL,
		EncryptionKey:   encKey,
		CORSOrigins:     origins,
		AdminEmail:      getEnv("ADMIN_EMAIL", "admin@subslot.dev"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", "admin123"),
		RegistrarAPIURL: strings.TrimRight(registrarURL, "/"),
		RegistrarToken:  registrarToken,
		PlatformAPIURL:  strings.TrimRight(getEnv("PLATFORM_API_URL", "https://api.vercel.com"), "/"),
		UpstreamTimeout: time.Duration(timeoutSecs) * time.Second,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
