package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/auctionchat/internal/common"
)

// Attachment is an optional file sent with a ticket.
type Attachment struct {
	Name     string
	MIMEType string
	Body     io.Reader
}

// Ticket is a support request. Validation runs before any request is made.
type Ticket struct {
	Subject    string `validate:"required,max=120"`
	Message    string `validate:"required,min=10,max=5000"`
	Email      string `validate:"omitempty,email"`
	Category   string `validate:"omitempty,oneof=general payment vehicle account"`
	VehicleID  string `validate:"omitempty,max=64"`
	Attachment *Attachment
}

type TicketReceipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// FieldIssue describes one failed constraint.
type FieldIssue struct {
	Field   string
	Tag     string
	Message string
}

// ValidationError lists every failed constraint of a request. It matches
// common.ErrValidation.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.Message
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == common.ErrValidation }

func (c *Client) validateStruct(v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &ValidationError{Issues: make([]FieldIssue, len(ves))}
	for i, fe := range ves {
		is := FieldIssue{Field: fe.Field(), Tag: fe.Tag()}
		switch fe.Tag() {
		case "required":
			is.Message = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			is.Message = fmt.Sprintf("%s must be a valid email address", fe.Field())
		case "min":
			is.Message = fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
		case "max":
			is.Message = fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
		case "oneof":
			is.Message = fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		default:
			is.Message = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
		out.Issues[i] = is
	}
	return out
}

// SubmitTicket validates t and posts it as multipart form data.
func (c *Client) SubmitTicket(ctx context.Context, t Ticket) (TicketReceipt, error) {
	t.Subject = strings.TrimSpace(t.Subject)
	t.Message = strings.TrimSpace(t.Message)
	if err := c.validateStruct(t); err != nil {
		return TicketReceipt{}, err
	}

	fields := map[string]string{
		"subject":   t.Subject,
		"message":   t.Message,
		"email":     t.Email,
		"category":  t.Category,
		"vehicleId": t.VehicleID,
	}
	var file *Attachment
	if t.Attachment != nil && t.Attachment.Body != nil {
		file = t.Attachment
	}

	var out TicketReceipt
	if err := c.postMultipart(ctx, "/support/tickets", fields, "attachment", file, &out); err != nil {
		return TicketReceipt{}, err
	}
	return out, nil
}

// postMultipart streams the form through a pipe so large files are never
// held in memory.
func (c *Client) postMultipart(ctx context.Context, path string, fields map[string]string, fileField string, file *Attachment, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeForm(mw, fields, fileField, file)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, path, pr, mw.FormDataContentType())
	if err != nil {
		_ = pr.Close()
		return err
	}
	err = c.do(req, out)
	_ = pr.Close()
	return err
}

func writeForm(mw *multipart.Writer, fields map[string]string, fileField string, file *Attachment) error {
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if file == nil {
		return nil
	}
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, file.Name)}
	ct := file.MIMEType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h["Content-Type"] = []string{ct}
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file.Body)
	return err
}
