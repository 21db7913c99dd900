package sessions

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/loginsys/authd/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	qCreate     = `(?s)^INSERT\s+INTO\s+sessoes\s*\(usuario_id,\s*token,\s*ip_address,\s*user_agent,\s*criado_em,\s*expirado_em\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id\s*$`
	qFindValid  = `(?s)^SELECT\s+u\.id,.*FROM\s+usuarios\s+u\s+INNER\s+JOIN\s+sessoes\s+s\s+ON\s+u\.id\s*=\s*s\.usuario_id\s+WHERE\s+s\.token\s*=\s*\$1\s+AND\s+s\.expirado_em\s*>\s*\$2\s+AND\s+u\.ativo\s*=\s*TRUE\s*$`
	qDelete     = `(?s)^DELETE\s+FROM\s+sessoes\s+WHERE\s+token\s*=\s*\$1\s*$`
	qDelExpired = `(?s)^DELETE\s+FROM\s+sessoes\s+WHERE\s+expirado_em\s*<\s*\$1\s*$`
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T, ttl time.Duration) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	repo := NewPostgresRepository(db, ttl).WithClock(func() time.Time { return fixedNow })
	return repo, mock, db
}

func TestCreate_ComputesExpiryFromTTL(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, 24*time.Hour)
	defer db.Close()

	mock.ExpectQuery(qCreate).
		WithArgs(int64(7), "tok123", "10.0.0.1", "curl/8", fixedNow, fixedNow.Add(24*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(99)))

	id, err := repo.Create(context.Background(), 7, "tok123", "10.0.0.1", "curl/8")
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_CustomTTL(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, 90*time.Minute)
	defer db.Close()

	mock.ExpectQuery(qCreate).
		WithArgs(int64(7), "tok", "", "", fixedNow, fixedNow.Add(90*time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err := repo.Create(context.Background(), 7, "tok", "", "")
	require.NoError(t, err)
}

func TestNewPostgresRepository_DefaultTTL(t *testing.T) {
	repo := NewPostgresRepository(nil, 0)
	assert.Equal(t, DefaultTTL, repo.ttl)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, time.Hour)
	defer db.Close()

	mock.ExpectQuery(qCreate).
		WithArgs(int64(7), "tok123", "ip", "ua", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), 7, "tok123", "ip", "ua")
	if err == nil || !regexp.MustCompile(`error performing sql request: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindValidUserByToken_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, time.Hour)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "email", "senha", "nome", "criado_em", "ultimo_acesso", "ativo"}).
		AddRow(int64(7), "a@x.com", "digest", "Alice", fixedNow, nil, true)
	mock.ExpectQuery(qFindValid).
		WithArgs("tok123", fixedNow).
		WillReturnRows(rows)

	u, err := repo.FindValidUserByToken(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "a@x.com", u.Email)
}

func TestFindValidUserByToken_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, time.Hour)
	defer db.Close()

	mock.ExpectQuery(qFindValid).
		WithArgs("missing", fixedNow).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindValidUserByToken(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindValidUserByToken_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, time.Hour)
	defer db.Close()

	mock.ExpectQuery(qFindValid).
		WithArgs("tok123", fixedNow).
		WillReturnError(errors.New("db err"))

	_, err := repo.FindValidUserByToken(context.Background(), "tok123")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestDeleteByToken_ReturnsCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, time.Hour)
	defer db.Close()

	mock.ExpectExec(qDelete).
		WithArgs("tok123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qDelete).
		WithArgs("tok123").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.DeleteByToken(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteByToken(context.Background(), "tok123")
	require.NoError(t, err, "deleting twice is not an error")
	assert.Equal(t, int64(0), n)
}

func TestDeleteByToken_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, time.Hour)
	defer db.Close()

	mock.ExpectExec(qDelete).
		WithArgs("tok123").
		WillReturnError(errors.New("db err"))

	_, err := repo.DeleteByToken(context.Background(), "tok123")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestDeleteExpired_PassesCutoff(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, time.Hour)
	defer db.Close()

	cutoff := fixedNow.Add(-time.Minute)
	mock.ExpectExec(qDelExpired).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestDeleteExpired_RowsAffectedError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, time.Hour)
	defer db.Close()

	mock.ExpectExec(qDelExpired).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))

	_, err := repo.DeleteExpired(context.Background(), fixedNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no count")
}
