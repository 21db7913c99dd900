package cli

import (
	"context"
	"fmt"

	"github.com/loginsys/authd/internal/server/config"
	"github.com/loginsys/authd/internal/server/repositories/repomanager"
	"github.com/loginsys/authd/internal/server/repositories/sessions"
	"github.com/loginsys/authd/internal/server/repositories/users"
	"github.com/loginsys/authd/internal/server/shared/db"
)

type postgresBackend struct {
	pool *db.Pool
	rm   repomanager.RepositoryManager
}

func (b *postgresBackend) Users() users.Repository {
	return b.rm.Users(b.pool.DB())
}

func (b *postgresBackend) Sessions() sessions.Repository {
	return b.rm.Sessions(b.pool.DB())
}

func (b *postgresBackend) Close() error {
	return b.pool.Close()
}

// PostgresOpener opens the server's database with cfg and brings the schema
// up to date before handing it out.
func PostgresOpener(cfg *config.Config) Opener {
	return func(ctx context.Context) (Backend, error) {
		pool, err := db.Open(ctx, db.Options{DSN: cfg.DatabaseDSN, MaxConns: 2})
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm := repomanager.NewPostgresRepositoryManager(cfg.SessionTTL)
		if err := rm.RunMigrations(ctx, pool.DB()); err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		return &postgresBackend{pool: pool, rm: rm}, nil
	}
}
