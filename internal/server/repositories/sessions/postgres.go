package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loginsys/authd/internal/common"
	"github.com/loginsys/authd/internal/dbx"
	"github.com/loginsys/authd/internal/server/models"
	"github.com/loginsys/authd/internal/server/repositories/users"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db  dbx.DBTX
	ttl time.Duration
	now func() time.Time
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
// A non-positive ttl falls back to DefaultTTL.
func NewPostgresRepository(db dbx.DBTX, ttl time.Duration) *PostgresRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresRepository{db: db, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for expiry computation and checks.
func (r *PostgresRepository) WithClock(now func() time.Time) *PostgresRepository {
	r.now = now
	return r
}

func (r *PostgresRepository) Create(ctx context.Context, userID int64, token, ip, userAgent string) (int64, error) {
	query := `
		INSERT INTO sessoes (usuario_id, token, ip_address, user_agent, criado_em, expirado_em)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	createdAt := r.now()
	var id int64
	err := r.db.QueryRowContext(ctx, query, userID, token, ip, userAgent, createdAt, createdAt.Add(r.ttl)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) FindValidUserByToken(ctx context.Context, token string) (*models.User, error) {
	query := `
		SELECT u.id, u.email, u.senha, u.nome, u.criado_em, u.ultimo_acesso, u.ativo
		FROM usuarios u
		INNER JOIN sessoes s ON u.id = s.usuario_id
		WHERE s.token = $1 AND s.expirado_em > $2 AND u.ativo = TRUE
	`
	user, err := users.ScanUser(r.db.QueryRowContext(ctx, query, token, r.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) DeleteByToken(ctx context.Context, token string) (int64, error) {
	query := `
		DELETE FROM sessoes
		WHERE token = $1
	`
	return r.exec(ctx, query, token)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM sessoes
		WHERE expirado_em < $1
	`
	return r.exec(ctx, query, now)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
