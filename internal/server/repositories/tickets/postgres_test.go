package tickets

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertQ = `(?s)^INSERT\s+INTO\s+tickets\s*\(user_id,.*attachment_name\).*RETURNING\s+id,\s*status,\s*created_at$`

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs(sql.NullString{}, "Payment", "help", "a@b.c", "billing", "veh-42", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "created_at"}).AddRow("t1", "open", now))
	mock.ExpectQuery(insertQ).
		WithArgs(sql.NullString{String: "u1", Valid: true}, "x", "y", "", "", "", "", "").
		WillReturnError(errors.New("db down"))

	got, err := repo.Create(context.Background(), &models.Ticket{
		Subject: "Payment", Message: "help", Email: "a@b.c", Category: "billing", VehicleID: "veh-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, models.TicketStatusOpen, got.Status)

	_, err = repo.Create(context.Background(), &models.Ticket{UserID: "u1", Subject: "x", Message: "y"})
	assert.ErrorContains(t, err, "db error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	got, err := repo.Create(context.Background(), &models.Ticket{Subject: "s", Message: "m"})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, models.TicketStatusOpen, got.Status)
	assert.Equal(t, 1, repo.Len())
}
