package api

import (
	"context"
	"errors"
	"io"
)

type uploadResponse struct {
	URL string `json:"url"`
}

// UploadFile posts r as multipart form data to /uploads and returns the
// durable URL of the stored file.
func (c *Client) UploadFile(ctx context.Context, name, mimeType string, r io.Reader) (string, error) {
	var out uploadResponse
	err := c.postMultipart(ctx, "/uploads", nil, "file", &Attachment{Name: name, MIMEType: mimeType, Body: r}, &out)
	if err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("api: upload response carries no url")
	}
	return out.URL, nil
}

type presignRequest struct {
	Name     string `json:"name" validate:"required"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size" validate:"gte=0"`
}

type presignResponse struct {
	UploadURL string `json:"uploadUrl"`
	FileURL   string `json:"fileUrl"`
}

// Presign asks the relay for a presigned PUT URL.
func (c *Client) Presign(ctx context.Context, name, mimeType string, size int64) (string, string, error) {
	in := presignRequest{Name: name, MIMEType: mimeType, Size: size}
	if err := c.validateStruct(in); err != nil {
		return "", "", err
	}
	var out presignResponse
	if err := c.postJSON(ctx, "/uploads/presign", in, &out); err != nil {
		return "", "", err
	}
	if out.UploadURL == "" || out.FileURL == "" {
		return "", "", errors.New("api: incomplete presign response")
	}
	return out.UploadURL, out.FileURL, nil
}
