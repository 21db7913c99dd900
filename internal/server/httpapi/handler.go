package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loginsys/authd/internal/common"
	"github.com/loginsys/authd/internal/server/auth"
	"github.com/loginsys/authd/internal/server/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type userSummary struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"nome"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}

type logoutResponse struct {
	Deleted int64 `json:"deleted"`
}

type verifyResponse struct {
	Valid  bool         `json:"valid"`
	Claims *auth.Claims `json:"claims"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database,omitempty"`
}

// login runs detached from the client connection so an abandoned request
// still completes its audit entry. A body that does not parse is treated
// as empty credentials.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	_ = c.ShouldBindJSON(&req)

	ctx := context.WithoutCancel(c.Request.Context())
	res, err := s.authn.Login(ctx, services.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token: res.Token,
		User: userSummary{
			ID:          res.User.ID,
			Email:       res.User.Email,
			DisplayName: res.User.DisplayName,
		},
	})
}

func (s *Server) logout(c *gin.Context) {
	token := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
	if token == "" {
		s.abortWithError(c, common.ErrorUnauthenticated)
		return
	}

	deleted, err := s.authn.Logout(context.WithoutCancel(c.Request.Context()), token, c.ClientIP())
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, logoutResponse{Deleted: deleted})
}

func (s *Server) profile(c *gin.Context) {
	current, ok := CurrentUser(c)
	if !ok {
		s.abortWithError(c, common.ErrorUnauthenticated)
		return
	}

	user, err := s.profiles.Get(context.WithoutCancel(c.Request.Context()), current.ID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) verify(c *gin.Context) {
	claims, err := s.validator.Claims(currentToken(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyResponse{Valid: true, Claims: claims})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) healthDB(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.HealthTimeout)
	defer cancel()

	resp := healthResponse{Timestamp: s.now().UTC().Format(time.RFC3339)}
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error(ctx, "database ping failed", "error", err)
		resp.Status = "ERROR"
		resp.Database = "disconnected"
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	resp.Status = "OK"
	resp.Database = "connected"
	c.JSON(http.StatusOK, resp)
}
