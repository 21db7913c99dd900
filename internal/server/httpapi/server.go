// Package httpapi is the HTTP transport: gin routes for login, logout,
// profile, and token verification, plus the session guard and health checks.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/loginsys/authd/internal/logging"
	"github.com/loginsys/authd/internal/server/auth"
	"github.com/loginsys/authd/internal/server/models"
	"github.com/loginsys/authd/internal/server/services"
)

// Authenticator turns credentials into sessions and ends them.
type Authenticator interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	Logout(ctx context.Context, token, ip string) (int64, error)
}

// TokenValidator resolves bearer tokens.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*models.User, error)
	Claims(token string) (*auth.Claims, error)
}

// ProfileReader loads a user's current record.
type ProfileReader interface {
	Get(ctx context.Context, id int64) (*models.User, error)
}

// Pinger checks the storage connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server.
type Options struct {
	// CORSAllowedOrigins is a comma-separated origin list; "*" allows any.
	CORSAllowedOrigins string

	// TrustedProxies may set X-Forwarded-For; when empty the client address
	// is always the connection's remote address.
	TrustedProxies []string

	ShutdownTimeout time.Duration
	HealthTimeout   time.Duration
}

type Server struct {
	address   string
	logger    logging.Logger
	authn     Authenticator
	validator TokenValidator
	profiles  ProfileReader
	db        Pinger
	opts      Options
	engine    *gin.Engine
	now       func() time.Time
}

func NewServer(addr string, l logging.Logger, authn Authenticator, validator TokenValidator,
	profiles ProfileReader, db Pinger, opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 2 * time.Second
	}
	s := &Server{
		address:   addr,
		logger:    l.With("module", "http_server"),
		authn:     authn,
		validator: validator,
		profiles:  profiles,
		db:        db,
		opts:      opts,
		now:       time.Now,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.opts.TrustedProxies); err != nil {
		s.logger.Error(context.Background(), "invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), requestID(), s.accessLog())
	if c, ok := corsConfig(s.opts.CORSAllowedOrigins); ok {
		r.Use(cors.New(c))
	}

	r.GET("/health", s.health)
	r.GET("/health/db", s.healthDB)

	for _, prefix := range []string{"", "/api/auth"} {
		r.POST(prefix+"/login", s.login)
		r.POST(prefix+"/logout", s.logout)
	}

	guarded := r.Group("/", s.requireSession())
	guarded.GET("/perfil", s.profile)
	guarded.POST("/api/auth/verify", s.verify)

	return r
}

func corsConfig(origins string) (cors.Config, bool) {
	var list []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 0 {
		return cors.Config{}, false
	}

	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range list {
		if o == "*" {
			c.AllowAllOrigins = true
			return c, true
		}
	}
	c.AllowOrigins = list
	return c, true
}

// Run serves until ctx is cancelled, then stops accepting connections and
// waits up to ShutdownTimeout for in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(context.WithoutCancel(ctx), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}
