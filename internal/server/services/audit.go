package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/loginsys/authd/internal/dbx"
	"github.com/loginsys/authd/internal/logging"
	"github.com/loginsys/authd/internal/server/models"
	"github.com/loginsys/authd/internal/server/repositories/repomanager"
)

// AuditLog records access attempts. Recording is best effort: a failed
// append is logged and never changes the outcome of the audited operation.
type AuditLog struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	timeout     time.Duration
	now         func() time.Time
}

func NewAuditLog(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, timeout time.Duration) *AuditLog {
	return &AuditLog{
		db:          db,
		repomanager: m,
		logger:      logger.With("component", "audit"),
		timeout:     timeout,
		now:         time.Now,
	}
}

// Record appends entry, stamping OccurredAt when it is unset.
func (a *AuditLog) Record(ctx context.Context, entry models.AccessLogEntry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = a.now()
	}

	ctx, cancel := dbx.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.repomanager.AccessLogs(a.db).Append(ctx, &entry); err != nil {
		a.logger.Error(ctx, "access log append failed",
			"error", err,
			"event", string(entry.EventType),
			"email", entry.Email,
			"success", entry.Success,
		)
	}
}
