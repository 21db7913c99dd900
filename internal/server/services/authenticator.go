// Package services contains server-side business logic: the authenticator
// that turns credentials into sessions, the validator that resolves bearer
// tokens, the profile lookup, and the audit log they all report to.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/loginsys/authd/internal/common"
	"github.com/loginsys/authd/internal/dbx"
	"github.com/loginsys/authd/internal/logging"
	"github.com/loginsys/authd/internal/server/auth"
	"github.com/loginsys/authd/internal/server/config"
	"github.com/loginsys/authd/internal/server/models"
	"github.com/loginsys/authd/internal/server/repositories/repomanager"
)

// Audit messages. They are stored, never returned to clients.
const (
	msgEmptyCredential = "empty credential"
	msgUserNotFound    = "user not found"
	msgBadPassword     = "bad password"
	msgInternal        = "internal error"
	msgSuccess         = "success"
	msgLogout          = "logout"
	msgNoSession       = "session not found"
	msgExpiredSession  = "expired session removed"
)

// TokenSigner issues and checks signed tokens.
type TokenSigner interface {
	Sign(userID int64, email string, ttl time.Duration) (string, error)
	VerifySignature(token string) (*auth.Claims, error)
}

// PasswordVerifier checks a plaintext password against a stored digest.
type PasswordVerifier interface {
	Verify(password, digest string) bool
}

// LoginRequest is one login attempt as received from a client.
type LoginRequest struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is what a successful login hands back: the bearer token and
// the authenticated user.
type LoginResult struct {
	Token string
	User  *models.User
}

// Authenticator verifies credentials, issues tokens, records sessions, and
// audits every attempt.
type Authenticator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	signer      TokenSigner
	hasher      PasswordVerifier
	audit       *AuditLog
	logger      logging.Logger
	tokenTTL    time.Duration
	opTimeout   time.Duration
	now         func() time.Time
}

// NewAuthenticator constructs an Authenticator. Session lifetime is owned by
// the session repository the manager vends; cfg supplies the token lifetime
// and the per-operation storage deadline.
func NewAuthenticator(db *sql.DB, m repomanager.RepositoryManager, signer TokenSigner, hasher PasswordVerifier,
	audit *AuditLog, logger logging.Logger, cfg *config.Config) *Authenticator {
	return &Authenticator{
		db:          db,
		repomanager: m,
		signer:      signer,
		hasher:      hasher,
		audit:       audit,
		logger:      logger.With("component", "authenticator"),
		tokenTTL:    cfg.TokenTTL,
		opTimeout:   cfg.DBAcquireTimeout,
		now:         time.Now,
	}
}

// Login checks the credentials in req and, when they match an active user,
// issues a token and stores a session for it. Exactly one audit entry is
// recorded per call whatever the outcome.
//
// Errors: common.ErrorInvalidRequest for an empty email or password,
// common.ErrorUnauthorized for an unknown email or a wrong password (the two
// are indistinguishable to the caller), common.ErrorInternal otherwise.
func (s *Authenticator) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	entry := models.AccessLogEntry{
		Email:     req.Email,
		EventType: models.EventLogin,
		IPAddress: req.IPAddress,
	}

	res, err := s.login(ctx, req, &entry)
	s.audit.Record(ctx, entry)
	return res, err
}

func (s *Authenticator) login(ctx context.Context, req LoginRequest, entry *models.AccessLogEntry) (*LoginResult, error) {
	if req.Email == "" || req.Password == "" {
		if entry.Email == "" {
			entry.Email = common.UnknownEmail
		}
		entry.Message = msgEmptyCredential
		return nil, common.ErrorInvalidRequest
	}

	user, err := s.findUser(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			entry.Message = msgUserNotFound
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		entry.Message = msgInternal
		return nil, common.ErrorInternal
	}
	entry.UserID = &user.ID

	if !s.hasher.Verify(req.Password, user.PasswordDigest) {
		entry.Message = msgBadPassword
		return nil, common.ErrorUnauthorized
	}

	token, err := s.signer.Sign(user.ID, user.Email, s.tokenTTL)
	if err != nil {
		s.logger.Error(ctx, "token signing failed", "error", err, "user_id", user.ID)
		entry.Message = msgInternal
		return nil, common.ErrorInternal
	}

	if err := s.openSession(ctx, user.ID, token, req); err != nil {
		s.logger.Error(ctx, "session creation failed", "error", err, "user_id", user.ID)
		entry.Message = msgInternal
		return nil, common.ErrorInternal
	}

	entry.Success = true
	entry.Message = msgSuccess
	return &LoginResult{Token: token, User: user}, nil
}

func (s *Authenticator) findUser(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.repomanager.Users(s.db).FindActiveByEmail(ctx, email)
}

// openSession stores the session and bumps the user's last access in one
// transaction.
func (s *Authenticator) openSession(ctx context.Context, userID int64, token string, req LoginRequest) error {
	ctx, cancel := dbx.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Sessions(tx).Create(ctx, userID, token, req.IPAddress, req.UserAgent); err != nil {
			return err
		}
		return s.repomanager.Users(tx).UpdateLastAccess(ctx, userID, s.now())
	})
}

// Logout deletes the session for token and returns how many sessions were
// removed. Unknown or already-deleted tokens return 0 and no error. The
// attempt is audited with the owning user when it can still be resolved.
func (s *Authenticator) Logout(ctx context.Context, token, ip string) (int64, error) {
	if token == "" {
		return 0, common.ErrorUnauthenticated
	}

	entry := models.AccessLogEntry{
		Email:     common.UnknownEmail,
		EventType: models.EventLogout,
		IPAddress: ip,
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	sessions := s.repomanager.Sessions(s.db)

	// live is false only when the store found no valid owner. Deleting such a
	// row (expired, or owned by a deactivated user) is cleanup, not a logout.
	live := false
	user, err := sessions.FindValidUserByToken(ctx, token)
	switch {
	case err == nil:
		live = true
		entry.UserID = &user.ID
		entry.Email = user.Email
	case !errors.Is(err, common.ErrorNotFound):
		live = true
		s.logger.Warn(ctx, "logout owner lookup failed", "error", err)
	}

	deleted, err := sessions.DeleteByToken(ctx, token)
	if err != nil {
		s.logger.Error(ctx, "session delete failed", "error", err)
		entry.Message = msgInternal
		s.audit.Record(context.WithoutCancel(ctx), entry)
		return 0, common.ErrorInternal
	}

	switch {
	case deleted == 0:
		entry.Message = msgNoSession
	case !live:
		entry.Message = msgExpiredSession
	default:
		entry.Success = true
		entry.Message = msgLogout
	}
	s.audit.Record(context.WithoutCancel(ctx), entry)

	return deleted, nil
}
