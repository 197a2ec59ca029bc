package pins

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestSet(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+pins.*ON\s+CONFLICT\s+\(user_id,\s*conversation_id\)`).
		WithArgs("u1", "veh-42", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+pins`).
		WithArgs("u1", "veh-42", false).
		WillReturnError(errors.New("db down"))

	require.NoError(t, repo.Set(context.Background(), "u1", "veh-42", true))
	assert.ErrorContains(t, repo.Set(context.Background(), "u1", "veh-42", false), "db error")
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `SELECT\s+pinned\s+FROM\s+pins\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+conversation_id\s*=\s*\$2`
	mock.ExpectQuery(q).WithArgs("u1", "veh-42").
		WillReturnRows(sqlmock.NewRows([]string{"pinned"}).AddRow(true))
	mock.ExpectQuery(q).WithArgs("u1", "veh-7").WillReturnError(sql.ErrNoRows)

	pinned, err := repo.Get(context.Background(), "u1", "veh-42")
	require.NoError(t, err)
	assert.True(t, pinned)

	pinned, err = repo.Get(context.Background(), "u1", "veh-7")
	require.NoError(t, err)
	assert.False(t, pinned)
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	pinned, _ := repo.Get(ctx, "u1", "veh-42")
	assert.False(t, pinned)

	require.NoError(t, repo.Set(ctx, "u1", "veh-42", true))
	pinned, _ = repo.Get(ctx, "u1", "veh-42")
	assert.True(t, pinned)

	pinned, _ = repo.Get(ctx, "u2", "veh-42")
	assert.False(t, pinned)
}
