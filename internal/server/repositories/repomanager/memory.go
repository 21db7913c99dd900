package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/loginsys/authd/internal/dbx"
	"github.com/loginsys/authd/internal/server/repositories/accesslogs"
	"github.com/loginsys/authd/internal/server/repositories/sessions"
	"github.com/loginsys/authd/internal/server/repositories/users"
)

// MemoryRepositoryManager hands out the same in-memory repositories no matter
// which DBTX it is given, so service code can run its transactions against a
// mock connection while state lives in process.
type MemoryRepositoryManager struct {
	UserRepo      *users.MemoryRepository
	SessionRepo   *sessions.MemoryRepository
	AccessLogRepo *accesslogs.MemoryRepository
}

func NewMemoryRepositoryManager(sessionTTL time.Duration) *MemoryRepositoryManager {
	u := users.NewMemoryRepository()
	return &MemoryRepositoryManager{
		UserRepo:      u,
		SessionRepo:   sessions.NewMemoryRepository(u, sessionTTL),
		AccessLogRepo: accesslogs.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.UserRepo }

func (m *MemoryRepositoryManager) Sessions(dbx.DBTX) sessions.Repository { return m.SessionRepo }

func (m *MemoryRepositoryManager) AccessLogs(dbx.DBTX) accesslogs.Repository {
	return m.AccessLogRepo
}
