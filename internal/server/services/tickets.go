package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/repomanager"
)

// TicketAttachment is an optional file sent with a ticket.
type TicketAttachment struct {
	Name     string
	MIMEType string
	Body     io.Reader
}

type TicketService struct {
	repomanager repomanager.RepositoryManager
	media       *MediaService
	validate    *validator.Validate
}

// NewTicketService creates the service. media may be nil, in which case
// attachments are rejected.
func NewTicketService(m repomanager.RepositoryManager, media *MediaService) *TicketService {
	v := validator.New()
	// report fields by their form names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	return &TicketService{repomanager: m, media: media, validate: v}
}

func (s *TicketService) validateTicket(t *models.Ticket) error {
	err := s.validate.Struct(t)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	msgs := make([]string, len(ves))
	for i, fe := range ves {
		switch fe.Tag() {
		case "required":
			msgs[i] = fe.Field() + " is required"
		case "max":
			msgs[i] = fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
		case "email":
			msgs[i] = fe.Field() + " must be a valid email address"
		case "oneof":
			msgs[i] = fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		default:
			msgs[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
}

// Submit stores t, uploading the attachment first when present.
func (s *TicketService) Submit(ctx context.Context, t *models.Ticket, att *TicketAttachment) (*models.Ticket, error) {
	t.Subject = strings.TrimSpace(t.Subject)
	t.Message = strings.TrimSpace(t.Message)
	t.Email = strings.TrimSpace(t.Email)
	if err := s.validateTicket(t); err != nil {
		return nil, err
	}

	if att != nil {
		if s.media == nil {
			return nil, ErrMediaDisabled
		}
		url, err := s.media.Upload(ctx, t.UserID, att.Name, att.MIMEType, att.Body)
		if err != nil {
			return nil, err
		}
		t.AttachmentURL = url
		t.AttachmentName = att.Name
	}

	return s.repomanager.Tickets(s.repomanager.DB()).Create(ctx, t)
}
