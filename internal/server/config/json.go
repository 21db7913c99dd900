package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/loginsys/authd/internal/flagx"
	"github.com/loginsys/authd/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. Fields left out of the file keep their current value.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	TokenTTL           timex.Duration `json:"token_ttl"`
	SessionTTL         timex.Duration `json:"session_ttl"`
	ReapInterval       timex.Duration `json:"reap_interval"`
	DBMaxConns         int            `json:"db_max_conns"`
	DBAcquireTimeout   timex.Duration `json:"db_acquire_timeout"`
	ShutdownTimeout    timex.Duration `json:"shutdown_timeout"`
	CORSAllowedOrigins string         `json:"cors_allowed_origins"`
	TrustedProxies     string         `json:"trusted_proxies"`
	LogBackend         string         `json:"log_backend"`
	LogLevel           string         `json:"log_level"`
	RedisURL           string         `json:"redis_url"`
	GinMode            string         `json:"gin_mode"`
	BcryptCost         int            `json:"bcrypt_cost"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config flag into config. Without the flag nothing is loaded.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenTTL, c.TokenTTL)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setDuration(&config.ReapInterval, c.ReapInterval)
	setInt(&config.DBMaxConns, c.DBMaxConns)
	setDuration(&config.DBAcquireTimeout, c.DBAcquireTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.CORSAllowedOrigins, c.CORSAllowedOrigins)
	setString(&config.TrustedProxies, c.TrustedProxies)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.GinMode, c.GinMode)
	setInt(&config.BcryptCost, c.BcryptCost)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
