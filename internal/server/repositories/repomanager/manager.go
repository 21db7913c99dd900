package repomanager

import (
	"context"
	"database/sql"

	"github.com/loginsys/authd/internal/dbx"
	"github.com/loginsys/authd/internal/server/repositories/accesslogs"
	"github.com/loginsys/authd/internal/server/repositories/sessions"
	"github.com/loginsys/authd/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	AccessLogs(db dbx.DBTX) accesslogs.Repository
}
