package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the service reads from the environment.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	PublicURL    string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	// BracketSweepInterval is how often tournaments past their signup
	// deadline are checked for a missing round 1. Zero disables the sweep.
	BracketSweepInterval time.Duration
	TournamentsPerPage   int
	CORSAllowedOrigins   []string
}

// R2Enabled reports whether logo uploads can be served.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

// Load reads the configuration from environment variables, loading a .env
// file first when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	smtpPort, err := intEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}

	perPage, err := intEnv("TOURNAMENTS_PER_PAGE", 10)
	if err != nil {
		return nil, err
	}
	if perPage <= 0 {
		return nil, fmt.Errorf("TOURNAMENTS_PER_PAGE must be positive, got %d", perPage)
	}

	sweep := time.Minute
	if raw := os.Getenv("BRACKET_SWEEP_INTERVAL"); raw != "" {
		if raw == "0" {
			sweep = 0
		} else if sweep, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("invalid BRACKET_SWEEP_INTERVAL environment variable: %w", err)
		}
		if sweep < 0 {
			return nil, fmt.Errorf("BRACKET_SWEEP_INTERVAL must not be negative, got %s", sweep)
		}
	}

	publicURL := strings.TrimRight(os.Getenv("PUBLIC_URL"), "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://localhost:%d", port)
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,
		PublicURL:    publicURL,

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: smtpPort,
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		BracketSweepInterval: sweep,
		TournamentsPerPage:   perPage,
		CORSAllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS"), []string{"*"}),
	}

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func splitList(raw string, def []string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
