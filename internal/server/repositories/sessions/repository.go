// Package sessions declares the server-side session store: the record that
// binds an issued token to a user until it expires, is logged out, or is
// reaped.
package sessions

import (
	"context"
	"time"

	"github.com/loginsys/authd/internal/server/models"
)

// DefaultTTL is how long a session stays valid after login.
const DefaultTTL = 24 * time.Hour

// Repository defines operations for issuing, resolving, and revoking sessions.
type Repository interface {
	// Create stores a session for userID that expires one TTL from now and
	// returns its id.
	Create(ctx context.Context, userID int64, token, ip, userAgent string) (int64, error)

	// FindValidUserByToken returns the owner of token if the session exists,
	// has not expired, and the user is active. Every other case is reported
	// as common.ErrorNotFound.
	FindValidUserByToken(ctx context.Context, token string) (*models.User, error)

	// DeleteByToken removes the session for token and returns how many rows
	// went away. Deleting an unknown token returns 0 and no error.
	DeleteByToken(ctx context.Context, token string) (int64, error)

	// DeleteExpired removes every session whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
