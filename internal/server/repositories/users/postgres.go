package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loginsys/authd/internal/common"
	"github.com/loginsys/authd/internal/dbx"
	"github.com/loginsys/authd/internal/server/models"
)

const userColumns = `id, email, senha, nome, criado_em, ultimo_acesso, ativo`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ScanUser reads one usuarios row selected in userColumns order.
func ScanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	user := &models.User{}
	var lastAccess sql.NullTime
	err := row.Scan(&user.ID, &user.Email, &user.PasswordDigest, &user.DisplayName,
		&user.CreatedAt, &lastAccess, &user.Active)
	if err != nil {
		return nil, err
	}
	if lastAccess.Valid {
		t := lastAccess.Time
		user.LastAccessAt = &t
	}
	return user, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := ScanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM usuarios
		 WHERE email = $1 AND ativo = TRUE
		 `
	return r.findOne(ctx, query, email)
}

func (r *PostgresRepository) FindActiveByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM usuarios
		 WHERE id = $1 AND ativo = TRUE
		 `
	return r.findOne(ctx, query, id)
}

func (r *PostgresRepository) UpdateLastAccess(ctx context.Context, id int64, at time.Time) error {
	query :=
		`UPDATE usuarios SET ultimo_acesso = $1
		 WHERE id = $2
		 `
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO usuarios (email, senha, nome, ativo)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, criado_em
		 `
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordDigest, user.DisplayName, user.Active).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
