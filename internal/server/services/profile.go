package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/loginsys/authd/internal/common"
	"github.com/loginsys/authd/internal/dbx"
	"github.com/loginsys/authd/internal/logging"
	"github.com/loginsys/authd/internal/server/models"
	"github.com/loginsys/authd/internal/server/repositories/repomanager"
)

// ProfileService reads the current state of an authenticated user.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	opTimeout   time.Duration
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, opTimeout time.Duration) *ProfileService {
	return &ProfileService{
		db:          db,
		repomanager: m,
		logger:      logger.With("component", "profile"),
		opTimeout:   opTimeout,
	}
}

// Get returns the active user with id. A user deactivated since the guard
// ran is reported as common.ErrorForbidden.
func (p *ProfileService) Get(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := dbx.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	user, err := p.repomanager.Users(p.db).FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorForbidden
		}
		p.logger.Error(ctx, "profile lookup failed", "error", err, "user_id", id)
		return nil, common.ErrorInternal
	}
	return user, nil
}
