package httpapi

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/dmitrijs2005/auctionchat/internal/server/services"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type credentialsResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

func (s *HTTPServer) register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	creds, err := s.svc.Users.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(credentialsResponse{UserID: creds.UserID, Token: creds.Token})
}

func (s *HTTPServer) login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	creds, err := s.svc.Users.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(credentialsResponse{UserID: creds.UserID, Token: creds.Token})
}

func (s *HTTPServer) listFAQ(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"faqs": s.svc.FAQ.List()})
}

func (s *HTTPServer) submitTicket(c *fiber.Ctx) error {
	t := &models.Ticket{
		UserID:    userID(c),
		Subject:   c.FormValue("subject"),
		Message:   c.FormValue("message"),
		Email:     c.FormValue("email"),
		Category:  c.FormValue("category"),
		VehicleID: c.FormValue("vehicleId"),
	}

	var att *services.TicketAttachment
	if fh, err := c.FormFile("attachment"); err == nil {
		if err := s.checkSize(fh); err != nil {
			return err
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("open attachment: %w", err)
		}
		defer f.Close()
		att = &services.TicketAttachment{Name: fh.Filename, MIMEType: contentType(fh), Body: f}
	}

	out, err := s.svc.Tickets.Submit(c.UserContext(), t, att)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": out.ID, "status": out.Status})
}

func (s *HTTPServer) upload(c *fiber.Ctx) error {
	if s.svc.Media == nil {
		return services.ErrMediaDisabled
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file missing")
	}
	if err := s.checkSize(fh); err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	url, err := s.svc.Media.Upload(c.UserContext(), userID(c), fh.Filename, contentType(fh), f)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}

type presignRequest struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

func (s *HTTPServer) presign(c *fiber.Ctx) error {
	if s.svc.Media == nil {
		return services.ErrMediaDisabled
	}
	var req presignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if req.Size < 0 || req.Size > s.maxUploadSize {
		return fmt.Errorf("%w: size must be between 0 and %d bytes", common.ErrValidation, s.maxUploadSize)
	}
	putURL, fileURL, err := s.svc.Media.PresignUpload(c.UserContext(), userID(c), req.Name, req.MIMEType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"uploadUrl": putURL, "fileUrl": fileURL})
}

// download redirects a stored file URL to a short-lived presigned GET.
func (s *HTTPServer) download(c *fiber.Ctx) error {
	if s.svc.Media == nil {
		return services.ErrMediaDisabled
	}
	url, err := s.svc.Media.DownloadURL(c.UserContext(), c.Params("*"))
	if err != nil {
		return err
	}
	return c.Redirect(url, fiber.StatusFound)
}

func (s *HTTPServer) checkSize(fh *multipart.FileHeader) error {
	if fh.Size > s.maxUploadSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d bytes", s.maxUploadSize))
	}
	return nil
}

// contentType prefers the part's declared type and falls back to the
// file extension.
func contentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get(fiber.HeaderContentType)
	if ct != "" && ct != fiber.MIMEOctetStream {
		return ct
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(fh.Filename))); byExt != "" {
		return byExt
	}
	return fiber.MIMEOctetStream
}
