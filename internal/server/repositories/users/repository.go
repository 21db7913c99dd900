// Package users is the credential store accessor: read access to user
// records plus the two writes the service performs on them.
package users

import (
	"context"
	"time"

	"github.com/loginsys/authd/internal/server/models"
)

// Repository reads and updates user records. Lookups only ever see active
// users and report a missing row as common.ErrorNotFound.
type Repository interface {
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	FindActiveByID(ctx context.Context, id int64) (*models.User, error)
	UpdateLastAccess(ctx context.Context, id int64, at time.Time) error
	Create(ctx context.Context, user *models.User) (*models.User, error)
}
