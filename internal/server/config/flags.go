package config

import (
	"flag"
	"os"

	"github.com/loginsys/authd/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s",
	"-token-ttl", "-session-ttl", "-reap-interval",
	"-db-max-conns", "-db-acquire-timeout", "-shutdown-timeout",
	"-cors-origins", "-trusted-proxies", "-log-backend", "-log-level",
	"-redis-url", "-gin-mode", "-bcrypt-cost",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string                  HTTP bind address (e.g., ":3000")
//	-d string                  PostgreSQL DSN
//	-s string                  JWT HMAC secret key
//	-token-ttl duration        signed token lifetime
//	-session-ttl duration      server-side session lifetime
//	-reap-interval duration    expired-session sweep period
//	-db-max-conns int          connection pool size
//	-db-acquire-timeout dur    per-operation storage deadline
//	-shutdown-timeout dur      HTTP drain deadline
//	-cors-origins string       comma-separated allowed origins
//	-trusted-proxies string    comma-separated proxy IPs or CIDRs allowed to set X-Forwarded-For
//	-log-backend string        slog or zerolog
//	-log-level string          debug, info, warn, error
//	-redis-url string          enables the reaper lease when set
//	-gin-mode string           debug, release, test
//	-bcrypt-cost int           cost for new password digests
//
// os.Args is first filtered to the flags above with flagx.FilterArgs so the
// -c/-config flag handled by the JSON layer does not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	fs.DurationVar(&config.TokenTTL, "token-ttl", config.TokenTTL, "signed token lifetime")
	fs.DurationVar(&config.SessionTTL, "session-ttl", config.SessionTTL, "session lifetime")
	fs.DurationVar(&config.ReapInterval, "reap-interval", config.ReapInterval, "expired session sweep period")

	fs.IntVar(&config.DBMaxConns, "db-max-conns", config.DBMaxConns, "connection pool size")
	fs.DurationVar(&config.DBAcquireTimeout, "db-acquire-timeout", config.DBAcquireTimeout, "storage operation deadline")
	fs.DurationVar(&config.ShutdownTimeout, "shutdown-timeout", config.ShutdownTimeout, "graceful shutdown deadline")

	fs.StringVar(&config.CORSAllowedOrigins, "cors-origins", config.CORSAllowedOrigins, "comma-separated CORS origins")
	fs.StringVar(&config.TrustedProxies, "trusted-proxies", config.TrustedProxies, "comma-separated trusted proxy IPs or CIDRs")
	fs.StringVar(&config.LogBackend, "log-backend", config.LogBackend, "log backend: slog or zerolog")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.RedisURL, "redis-url", config.RedisURL, "redis URL for the reaper lease")
	fs.StringVar(&config.GinMode, "gin-mode", config.GinMode, "gin mode")
	fs.IntVar(&config.BcryptCost, "bcrypt-cost", config.BcryptCost, "bcrypt cost")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
