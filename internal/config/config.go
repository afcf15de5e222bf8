package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env        string
	Addr       string
	DBDSN      string
	DBMaxConns int32
	LogLevel   string

	JWTSecret string
	TokenTTL  time.Duration

	GoogleClientID string
	AppleServiceID string

	FCMProjectID       string
	FCMCredentialsFile string
}

// Load reads the optional dotenv file named by APP_ENV_FILE (default .env)
// and then the process environment.
func Load() (Config, error) {
	path := os.Getenv("APP_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := loadDotEnvFile(path, os.Setenv, os.Getenv); err != nil {
		return Config{}, err
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:                getenv("APP_ENV"),
		Addr:               getenv("APP_ADDR"),
		DBDSN:              getenv("APP_DB_DSN"),
		LogLevel:           getenv("APP_LOG_LEVEL"),
		JWTSecret:          getenv("APP_JWT_SECRET"),
		GoogleClientID:     strings.TrimSpace(getenv("APP_GOOGLE_CLIENT_ID")),
		AppleServiceID:     strings.TrimSpace(getenv("APP_APPLE_SERVICE_ID")),
		FCMProjectID:       strings.TrimSpace(getenv("APP_FCM_PROJECT_ID")),
		FCMCredentialsFile: strings.TrimSpace(getenv("APP_FCM_CREDENTIALS_FILE")),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	ttlRaw := getenv("APP_TOKEN_TTL")
	if ttlRaw == "" {
		cfg.TokenTTL = 7 * 24 * time.Hour
	} else {
		ttl, err := time.ParseDuration(ttlRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_TOKEN_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, errors.New("APP_TOKEN_TTL: must be > 0")
		}
		cfg.TokenTTL = ttl
	}

	if raw := getenv("APP_DB_MAX_CONNS"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n <= 0 {
			return Config{}, errors.New("APP_DB_MAX_CONNS: must be a positive integer")
		}
		cfg.DBMaxConns = int32(n)
	}

	if (cfg.FCMProjectID == "") != (cfg.FCMCredentialsFile == "") {
		return Config{}, errors.New("APP_FCM_PROJECT_ID and APP_FCM_CREDENTIALS_FILE must be set together")
	}

	if cfg.IsProd() {
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.JWTSecret) < 32 {
			return Config{}, errors.New("APP_JWT_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) PushEnabled() bool { return c.FCMProjectID != "" }
