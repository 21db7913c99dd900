package accesslogs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/loginsys/authd/internal/dbx"
	"github.com/loginsys/authd/internal/server/models"
)

type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// WithClock replaces the time source used when an entry has no OccurredAt.
func (r *PostgresRepository) WithClock(now func() time.Time) *PostgresRepository {
	r.now = now
	return r
}

func (r *PostgresRepository) Append(ctx context.Context, entry *models.AccessLogEntry) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = r.now()
	}

	var userID sql.NullInt64
	if entry.UserID != nil {
		userID = sql.NullInt64{Int64: *entry.UserID, Valid: true}
	}

	query :=
		`INSERT INTO logs_acesso (usuario_id, email, tipo_evento, ip_address, sucesso, mensagem, occurred_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `
	err := r.db.QueryRowContext(ctx, query,
		userID, entry.Email, string(entry.EventType), entry.IPAddress,
		entry.Success, entry.Message, entry.OccurredAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
