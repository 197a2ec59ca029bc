package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/netx"
)

func openHandle(fh models.FileHandle) (*os.File, error) {
	f, err := os.Open(fh.URI)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Name, err)
	}
	return f, nil
}

// MultipartAPI is the relay's POST /uploads endpoint.
type MultipartAPI interface {
	UploadFile(ctx context.Context, name, mimeType string, r io.Reader) (string, error)
}

// MultipartUploader posts the file as multipart form data.
type MultipartUploader struct {
	API MultipartAPI
}

func (u MultipartUploader) Upload(ctx context.Context, fh models.FileHandle) (*models.FileRef, error) {
	f, err := openHandle(fh)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	url, err := u.API.UploadFile(ctx, fh.Name, fh.MIMEType, f)
	if err != nil {
		return nil, err
	}
	return models.NewFileRef(url, fh.Name, fh.MIMEType, fh.Size), nil
}

// PresignAPI is the relay's POST /uploads/presign endpoint. It returns the
// URL to PUT to and the URL the file will be served from.
type PresignAPI interface {
	Presign(ctx context.Context, name, mimeType string, size int64) (putURL, fileURL string, err error)
}

// PresignedUploader asks for a presigned URL and PUTs the file to it.
type PresignedUploader struct {
	API  PresignAPI
	HTTP *http.Client
}

func (u PresignedUploader) Upload(ctx context.Context, fh models.FileHandle) (*models.FileRef, error) {
	putURL, fileURL, err := u.API.Presign(ctx, fh.Name, fh.MIMEType, fh.Size)
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}
	f, err := openHandle(fh)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := netx.UploadToPresignedURL(ctx, u.HTTP, putURL, fh.MIMEType, f, fh.Size); err != nil {
		return nil, err
	}
	return models.NewFileRef(fileURL, fh.Name, fh.MIMEType, fh.Size), nil
}

// ObjectUploader is satisfied by *manager.Uploader.
type ObjectUploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Uploader writes straight to a bucket with the multipart-aware manager.
type S3Uploader struct {
	Uploader ObjectUploader
	Bucket   string
	Prefix   string
	// PublicBaseURL, when set, is joined with the object key to form the
	// file URL. Otherwise the manager's reported location is used.
	PublicBaseURL string
}

func NewS3Uploader(client *s3.Client, bucket, prefix, publicBaseURL string) *S3Uploader {
	return &S3Uploader{
		Uploader:      manager.NewUploader(client),
		Bucket:        bucket,
		Prefix:        prefix,
		PublicBaseURL: publicBaseURL,
	}
}

func (u *S3Uploader) Upload(ctx context.Context, fh models.FileHandle) (*models.FileRef, error) {
	f, err := openHandle(fh)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	key := path.Join(u.Prefix, uuid.NewString()+strings.ToLower(path.Ext(fh.Name)))
	in := &s3.PutObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if fh.MIMEType != "" {
		in.ContentType = aws.String(fh.MIMEType)
	}
	out, err := u.Uploader.Upload(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", key, err)
	}

	url := out.Location
	if u.PublicBaseURL != "" {
		url = strings.TrimRight(u.PublicBaseURL, "/") + "/" + key
	}
	return models.NewFileRef(url, fh.Name, fh.MIMEType, fh.Size), nil
}
