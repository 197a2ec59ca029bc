package messages

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "conversation_id", "client_id", "sender_id", "body", "file_url", "file_name", "file_type", "file_size", "created_at", "is_read", "is_deleted"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func sample(ts time.Time) *models.Message {
	return &models.Message{
		ID: "m1", ConversationID: "veh-42", ClientID: "local-1", SenderID: "u1",
		Body: "Hello", CreatedAt: ts,
	}
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Now()
	m := sample(ts)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+messages\s*\(id,.*created_at\)\s*VALUES\s*\(\$1,.*\$10\)$`).
		WithArgs("m1", "veh-42", "local-1", "u1", "Hello", "", "", "", int64(0), ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), m))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+messages`).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), sample(time.Now()))
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ts := time.Now()

	mock.ExpectQuery(`SELECT\s+id,.*FROM\s+messages\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m1", "veh-42", "local-1", "u1", "Hello", "", "", "", int64(0), ts, true, false))

	m, err := repo.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", m.Body)
	assert.True(t, m.Read)
	assert.False(t, m.Deleted)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+messages\s+WHERE\s+id`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByClientID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE\s+sender_id\s*=\s*\$1\s+AND\s+client_id\s*=\s*\$2`).
		WithArgs("u1", "local-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m1", "veh-42", "local-1", "u1", "Hello", "", "", "", int64(0), time.Now(), false, false))

	m, err := repo.GetByClientID(context.Background(), "u1", "local-1")
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
}

func TestMarkDeleted(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)UPDATE\s+messages\s+SET\s+is_deleted\s*=\s*TRUE.*WHERE\s+id\s*=\s*\$1`).
		WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE\s+messages\s+SET\s+is_deleted`).
		WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkDeleted(context.Background(), "m1"))
	assert.ErrorIs(t, repo.MarkDeleted(context.Background(), "nope"), common.ErrNotFound)
}

func TestMarkRead(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `UPDATE\s+messages\s+SET\s+is_read\s*=\s*TRUE\s+WHERE\s+id\s*=\s*\$1\s+AND\s+NOT\s+is_read`
	mock.ExpectExec(q).WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("m2").WillReturnError(errors.New("db down"))

	changed, err := repo.MarkRead(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkRead(context.Background(), "m1")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.MarkRead(context.Background(), "m2")
	assert.ErrorContains(t, err, "db error")
}

func TestListRecent(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	t0 := time.Now()

	mock.ExpectQuery(`(?s)FROM\s+messages\s+WHERE\s+conversation_id\s*=\s*\$1.*LIMIT\s+\$2.*ORDER\s+BY\s+created_at,\s*id$`).
		WithArgs("veh-42", 2).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m1", "veh-42", "", "u1", "a", "", "", "", int64(0), t0, false, false).
			AddRow("m2", "veh-42", "", "u2", "", "https://cdn/x.jpg", "x.jpg", "image/jpeg", int64(10), t0.Add(time.Second), false, false))

	got, err := repo.ListRecent(context.Background(), "veh-42", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "image/jpeg", got[1].FileType)
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	t0 := time.Now()

	require.NoError(t, repo.Create(ctx, &models.Message{ID: "m2", ConversationID: "c", SenderID: "u1", ClientID: "local-2", Body: "two", CreatedAt: t0.Add(time.Second)}))
	require.NoError(t, repo.Create(ctx, &models.Message{ID: "m1", ConversationID: "c", SenderID: "u1", ClientID: "local-1", Body: "one", CreatedAt: t0}))
	require.NoError(t, repo.Create(ctx, &models.Message{ID: "m3", ConversationID: "other", SenderID: "u1", CreatedAt: t0}))

	err := repo.Create(ctx, &models.Message{ID: "m4", ConversationID: "c", SenderID: "u1", ClientID: "local-1"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	byClient, err := repo.GetByClientID(ctx, "u1", "local-2")
	require.NoError(t, err)
	assert.Equal(t, "m2", byClient.ID)

	list, err := repo.ListRecent(ctx, "c", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "m1", list[0].ID)

	list, err = repo.ListRecent(ctx, "c", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "m2", list[0].ID)

	changed, err := repo.MarkRead(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, _ = repo.MarkRead(ctx, "m1")
	assert.False(t, changed)

	require.NoError(t, repo.MarkDeleted(ctx, "m2"))
	m, err := repo.Get(ctx, "m2")
	require.NoError(t, err)
	assert.True(t, m.Deleted)
	assert.Empty(t, m.Body)
	assert.ErrorIs(t, repo.MarkDeleted(ctx, "nope"), common.ErrNotFound)
}
