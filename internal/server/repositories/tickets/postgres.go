package tickets

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/auctionchat/internal/dbx"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	query :=
		`INSERT INTO tickets (user_id, subject, message, email, category, vehicle_id, attachment_url, attachment_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, status, created_at`

	var userID sql.NullString
	if t.UserID != "" {
		userID = sql.NullString{String: t.UserID, Valid: true}
	}

	err := dbx.From(ctx, r.db).QueryRowContext(ctx, query,
		userID, t.Subject, t.Message, t.Email, t.Category, t.VehicleID, t.AttachmentURL, t.AttachmentName).
		Scan(&t.ID, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
