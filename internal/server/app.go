// Package server assembles the authd application: it opens the connection
// pool, applies migrations, wires repositories into services, and runs the
// HTTP server and the session reaper until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/loginsys/authd/internal/logging"
	"github.com/loginsys/authd/internal/server/auth"
	"github.com/loginsys/authd/internal/server/config"
	"github.com/loginsys/authd/internal/server/httpapi"
	"github.com/loginsys/authd/internal/server/reaper"
	"github.com/loginsys/authd/internal/server/repositories/repomanager"
	"github.com/loginsys/authd/internal/server/services"
	"github.com/loginsys/authd/internal/server/shared/db"
)

type App struct {
	config *config.Config
	logger logging.Logger
	pool   *db.Pool
	redis  *redis.Client
	http   *httpapi.Server
	reaper *reaper.Reaper
}

// logOutput is where the application logger writes.
var logOutput io.Writer = os.Stdout

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, logOutput)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	if c.UsesDefaultSecret() {
		logger.Warn(ctx, "using the built-in development secret key; set JWT_SECRET before exposing this server")
	}

	gin.SetMode(c.GinMode)

	pool, err := db.Open(ctx, db.Options{DSN: c.DatabaseDSN, MaxConns: c.DBMaxConns})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, pool: pool}

	rm := repomanager.NewPostgresRepositoryManager(c.SessionTTL)
	if err := rm.RunMigrations(ctx, pool.DB()); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("migration error: %w", err)
	}

	signer := auth.NewSigner([]byte(c.SecretKey))
	hasher := auth.NewPasswordHasher(c.BcryptCost)

	audit := services.NewAuditLog(pool.DB(), rm, logger, c.DBAcquireTimeout)
	authn := services.NewAuthenticator(pool.DB(), rm, signer, hasher, audit, logger, c)
	validator := services.NewValidator(pool.DB(), rm, signer, logger, c.DBAcquireTimeout)
	profiles := services.NewProfileService(pool.DB(), rm, logger, c.DBAcquireTimeout)

	proxies, err := config.ParseProxies(c.TrustedProxies)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	app.http = httpapi.NewServer(c.HTTPAddr, logger, authn, validator, profiles, pool, httpapi.Options{
		CORSAllowedOrigins: c.CORSAllowedOrigins,
		TrustedProxies:     proxies,
		ShutdownTimeout:    c.ShutdownTimeout,
		HealthTimeout:      c.DBAcquireTimeout,
	})

	reaperOpts := []reaper.Option{reaper.WithTimeout(c.DBAcquireTimeout)}
	if c.RedisURL != "" {
		client, err := reaper.OpenRedis(ctx, c.RedisURL)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = client

		lease, err := reaper.NewRedisLease(client, reaper.DefaultLeaseKey)
		if err != nil {
			app.close(ctx)
			return nil, err
		}
		reaperOpts = append(reaperOpts, reaper.WithLease(lease))
	}
	app.reaper = reaper.New(rm.Sessions(pool.DB()), c.ReapInterval, logger, reaperOpts...)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server error", "error", err)
		cancelFunc()
	}
}

// Run blocks until a signal arrives, ctx is cancelled, or the HTTP server
// fails. The pool is closed only after the server and the reaper stopped.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.reaper.Run(ctx)
	}()

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err)
		}
	}
	if app.pool != nil {
		if err := app.pool.Close(); err != nil {
			app.logger.Warn(ctx, "db close error", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
