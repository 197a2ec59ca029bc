package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
)

func tempFile(t *testing.T, name, content string) models.FileHandle {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return models.FileHandle{URI: p, Name: name, MIMEType: models.MIMEFromName(name), Size: int64(len(content))}
}

type fakeMultipart struct {
	name, mime, body string
	url              string
	err              error
}

func (f *fakeMultipart) UploadFile(_ context.Context, name, mimeType string, r io.Reader) (string, error) {
	b, _ := io.ReadAll(r)
	f.name, f.mime, f.body = name, mimeType, string(b)
	return f.url, f.err
}

func TestMultipartUploader(t *testing.T) {
	fh := tempFile(t, "car.jpg", "jpegbytes")
	api := &fakeMultipart{url: "https://cdn/car.jpg"}

	ref, err := MultipartUploader{API: api}.Upload(context.Background(), fh)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/car.jpg", ref.URL)
	assert.Equal(t, models.FileKindImage, ref.Kind)
	assert.Equal(t, "jpegbytes", api.body)
	assert.Equal(t, "image/jpeg", api.mime)

	api.err = errors.New("413")
	_, err = MultipartUploader{API: api}.Upload(context.Background(), fh)
	assert.Error(t, err)

	_, err = MultipartUploader{API: api}.Upload(context.Background(), models.FileHandle{URI: "/nope", Name: "nope"})
	assert.Error(t, err)
}

type fakePresign struct {
	put, file string
	err       error
}

func (f fakePresign) Presign(context.Context, string, string, int64) (string, string, error) {
	return f.put, f.file, f.err
}

func TestPresignedUploader(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
	}))
	defer ts.Close()

	fh := tempFile(t, "invoice.pdf", "%PDF")
	u := PresignedUploader{API: fakePresign{put: ts.URL + "/put", file: "https://cdn/invoice.pdf"}, HTTP: ts.Client()}
	ref, err := u.Upload(context.Background(), fh)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/invoice.pdf", ref.URL)
	assert.Equal(t, models.FileKindDocument, ref.Kind)
	assert.Equal(t, "%PDF", got)

	u.API = fakePresign{err: errors.New("denied")}
	_, err = u.Upload(context.Background(), fh)
	assert.ErrorContains(t, err, "presign")
}

type fakeObjectUploader struct {
	in  *s3.PutObjectInput
	out *manager.UploadOutput
	err error
}

func (f *fakeObjectUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestS3Uploader(t *testing.T) {
	fh := tempFile(t, "clip.MP4", "mp4")
	fh.MIMEType = "video/mp4"
	fake := &fakeObjectUploader{out: &manager.UploadOutput{Location: "https://bucket.s3/chat/x.mp4"}}
	u := &S3Uploader{Uploader: fake, Bucket: "media", Prefix: "chat"}

	ref, err := u.Upload(context.Background(), fh)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3/chat/x.mp4", ref.URL)
	assert.Equal(t, "media", aws.ToString(fake.in.Bucket))
	assert.Regexp(t, `^chat/[0-9a-f-]{36}\.mp4$`, aws.ToString(fake.in.Key))
	assert.Equal(t, "video/mp4", aws.ToString(fake.in.ContentType))

	u.PublicBaseURL = "https://cdn.example/"
	ref, err = u.Upload(context.Background(), fh)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/"+aws.ToString(fake.in.Key), ref.URL)

	fake.err = errors.New("access denied")
	_, err = u.Upload(context.Background(), fh)
	assert.ErrorContains(t, err, "s3 put")
}

func TestPathPicker(t *testing.T) {
	fh := tempFile(t, "a.png", "png")
	p := PathPicker{Prompt: func(context.Context, Source) (string, error) { return "  " + fh.URI + "\n", nil }}
	got, err := p.Pick(context.Background(), SourceMedia)
	require.NoError(t, err)
	assert.Equal(t, "a.png", got.Name)
	assert.Equal(t, "image/png", got.MIMEType)
	assert.EqualValues(t, 3, got.Size)

	p.Prompt = func(context.Context, Source) (string, error) { return "", nil }
	_, err = p.Pick(context.Background(), SourceMedia)
	assert.ErrorIs(t, err, ErrCancelled)

	ok, err := StaticPermissions{AllowMedia: true}.RequestMedia(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
