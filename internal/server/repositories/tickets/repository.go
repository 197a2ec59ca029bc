// Package tickets stores support tickets.
package tickets

import (
	"context"

	"github.com/dmitrijs2005/auctionchat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error)
}
