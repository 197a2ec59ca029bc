package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/auctionchat/internal/common"
	sc "github.com/dmitrijs2005/auctionchat/internal/server/config"
)

// FilesRoute is the relay path that redirects to a presigned GET URL.
const FilesRoute = "/files/"

const presignExpiry = 15 * time.Minute

// ErrMediaDisabled is returned when no bucket is configured.
var ErrMediaDisabled = errors.New("media storage is not configured")

// Presigner is satisfied by *s3.PresignClient.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectUploader is satisfied by *manager.Uploader.
type ObjectUploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// MediaService stores chat attachments in an S3-compatible bucket. File
// URLs point at the relay's FilesRoute, which redirects to a short-lived
// presigned GET.
type MediaService struct {
	presigner Presigner
	uploader  ObjectUploader
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewMediaService(p Presigner, u ObjectUploader, bucket, publicURL string) *MediaService {
	return &MediaService{
		presigner: p,
		uploader:  u,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// NewS3Client builds an S3 client for the configured endpoint. Path-style
// addressing keeps MinIO endpoints working.
func NewS3Client(ctx context.Context, cfg *sc.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// NewS3MediaService wires the presign client and the multipart uploader
// over one S3 client.
func NewS3MediaService(client *s3.Client, cfg *sc.Config) *MediaService {
	return NewMediaService(s3.NewPresignClient(client), manager.NewUploader(client), cfg.S3Bucket, cfg.PublicURL)
}

// StorageKey returns a fresh object key for a file uploaded by userID.
func (s *MediaService) StorageKey(userID, name string) string {
	d := s.now().UTC()
	ext := strings.ToLower(path.Ext(name))
	return fmt.Sprintf("uploads/%s/%d/%02d/%02d/%s%s", userID, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

// FileURL is the durable URL clients store in messages.
func (s *MediaService) FileURL(key string) string {
	return s.publicURL + FilesRoute + key
}

// PresignUpload returns a presigned PUT URL and the file URL the object
// will be reachable at once uploaded.
func (s *MediaService) PresignUpload(ctx context.Context, userID, name, mimeType string) (putURL, fileURL string, err error) {
	if strings.TrimSpace(name) == "" {
		return "", "", fmt.Errorf("%w: file name is required", common.ErrValidation)
	}

	key := s.StorageKey(userID, name)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if mimeType != "" {
		in.ContentType = aws.String(mimeType)
	}

	req, err := s.presigner.PresignPutObject(ctx, in, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, s.FileURL(key), nil
}

// Upload streams r into the bucket and returns the file URL.
func (s *MediaService) Upload(ctx context.Context, userID, name, mimeType string, r io.Reader) (string, error) {
	key := s.StorageKey(userID, name)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if mimeType != "" {
		in.ContentType = aws.String(mimeType)
	}

	if _, err := s.uploader.Upload(ctx, in); err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return s.FileURL(key), nil
}

// DownloadURL presigns a GET for key.
func (s *MediaService) DownloadURL(ctx context.Context, key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if !strings.HasPrefix(key, "uploads/") || strings.Contains(key, "..") {
		return "", common.ErrNotFound
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
