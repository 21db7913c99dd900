// Package accesslogs is the append-only audit trail of login and logout
// attempts.
package accesslogs

import (
	"context"

	"github.com/loginsys/authd/internal/server/models"
)

// Repository appends audit entries. Entries are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, entry *models.AccessLogEntry) error
}
