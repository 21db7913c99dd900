package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order when present. Variables already set in the
// process environment are never overridden.
var envFiles = []string{".env.local", ".env"}

// parseEnv overlays Config with environment variables:
//
//	HTTP_ADDR, DATABASE_DSN, JWT_SECRET, JWT_EXPIRY, SESSION_TTL,
//	REAP_INTERVAL, DB_POOL_LIMIT, DB_ACQUIRE_TIMEOUT, SHUTDOWN_TIMEOUT,
//	CORS_ALLOWED_ORIGINS, TRUSTED_PROXIES, LOG_BACKEND, LOG_LEVEL, REDIS_URL, GIN_MODE,
//	BCRYPT_COST
//
// Unset or empty variables leave the current value. Malformed numbers and
// durations panic, as a malformed JSON file does.
func parseEnv(config *Config) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				panic(err)
			}
		}
	}

	envString("HTTP_ADDR", &config.HTTPAddr)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("JWT_SECRET", &config.SecretKey)
	envDuration("JWT_EXPIRY", &config.TokenTTL)
	envDuration("SESSION_TTL", &config.SessionTTL)
	envDuration("REAP_INTERVAL", &config.ReapInterval)
	envInt("DB_POOL_LIMIT", &config.DBMaxConns)
	envDuration("DB_ACQUIRE_TIMEOUT", &config.DBAcquireTimeout)
	envDuration("SHUTDOWN_TIMEOUT", &config.ShutdownTimeout)
	envString("CORS_ALLOWED_ORIGINS", &config.CORSAllowedOrigins)
	envString("TRUSTED_PROXIES", &config.TrustedProxies)
	envString("LOG_BACKEND", &config.LogBackend)
	envString("LOG_LEVEL", &config.LogLevel)
	envString("REDIS_URL", &config.RedisURL)
	envString("GIN_MODE", &config.GinMode)
	envInt("BCRYPT_COST", &config.BcryptCost)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
