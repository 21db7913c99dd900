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
	"github.com/loginsys/authd/internal/server/models"
	"github.com/loginsys/authd/internal/server/repositories/repomanager"
)

// Validator resolves bearer tokens to users through the session store. A
// token is accepted only while its session exists, has not expired, and
// belongs to an active user; every check goes to storage.
type Validator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	signer      TokenSigner
	logger      logging.Logger
	opTimeout   time.Duration
}

func NewValidator(db *sql.DB, m repomanager.RepositoryManager, signer TokenSigner, logger logging.Logger, opTimeout time.Duration) *Validator {
	return &Validator{
		db:          db,
		repomanager: m,
		signer:      signer,
		logger:      logger.With("component", "validator"),
		opTimeout:   opTimeout,
	}
}

// Validate returns the user owning token.
//
// Errors: common.ErrorUnauthenticated when token is empty,
// common.ErrorForbidden when the session is missing, expired, or belongs to
// an inactive user, common.ErrorInternal when storage fails.
func (v *Validator) Validate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrorUnauthenticated
	}

	ctx, cancel := dbx.WithTimeout(ctx, v.opTimeout)
	defer cancel()

	user, err := v.repomanager.Sessions(v.db).FindValidUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorForbidden
		}
		v.logger.Error(ctx, "token validation failed", "error", err)
		return nil, common.ErrorInternal
	}
	return user, nil
}

// Claims checks token's signature and expiry and returns its payload. It
// does not consult the session store; callers pair it with Validate.
func (v *Validator) Claims(token string) (*auth.Claims, error) {
	claims, err := v.signer.VerifySignature(token)
	if err != nil {
		return nil, common.ErrorForbidden
	}
	return claims, nil
}
