package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loginsys/authd/internal/common"
	"github.com/loginsys/authd/internal/logging"
	"github.com/loginsys/authd/internal/server/models"
)

const (
	requestIDHeader = "X-Request-ID"

	userKey  = "authd.user"
	tokenKey = "authd.token"
)

// requestID propagates or assigns X-Request-ID and stores it in the request
// context for logging.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. Anything else yields "".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireSession admits a request only when its bearer token maps to a
// live session of an active user: 401 without a token, 403 for a token the
// session store rejects.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader(common.AuthorizationHeaderName))

		user, err := s.validator.Validate(context.WithoutCancel(c.Request.Context()), token)
		if err != nil {
			s.abortWithError(c, err)
			return
		}

		c.Set(userKey, user)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// CurrentUser returns the user the session guard admitted.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

func currentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
