// Package upload turns a user's file choice into a durable file reference:
// permission, picker and transfer, one at a time per conversation.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/logging"
)

// Source is where the user picks a file from.
type Source string

const (
	SourceMedia    Source = "media"
	SourceDocument Source = "document"
)

var (
	ErrPermissionDenied = errors.New("media library access denied")
	ErrCancelled        = errors.New("selection cancelled")
	ErrBusy             = errors.New("another upload is in progress")
	ErrUploadFailed     = errors.New("upload failed")
	ErrUnsupportedFile  = errors.New("file type not allowed for this source")
	ErrClosed           = errors.New("upload coordinator closed")
)

// Permissions asks the platform for media library access.
type Permissions interface {
	RequestMedia(ctx context.Context) (bool, error)
}

// Picker lets the user choose a file. It returns ErrCancelled when the user
// backs out.
type Picker interface {
	Pick(ctx context.Context, source Source) (models.FileHandle, error)
}

// Uploader stores a picked file and returns its durable reference.
type Uploader interface {
	Upload(ctx context.Context, file models.FileHandle) (*models.FileRef, error)
}

// Coordinator runs at most one selection or transfer at a time.
type Coordinator struct {
	perms    Permissions
	picker   Picker
	uploader Uploader
	log      logging.Logger

	mu     sync.Mutex
	busy   bool
	closed bool
	cancel context.CancelFunc
}

func NewCoordinator(perms Permissions, picker Picker, uploader Uploader, log logging.Logger) *Coordinator {
	return &Coordinator{perms: perms, picker: picker, uploader: uploader, log: logging.OrNop(log)}
}

func (c *Coordinator) acquire(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.busy {
		return nil, ErrBusy
	}
	c.busy = true
	ctx, c.cancel = context.WithCancel(ctx)
	return ctx, nil
}

// release reports whether the coordinator is still open.
func (c *Coordinator) release() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return !c.closed
}

// Busy reports whether a selection or transfer is running.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Select runs permission (media only) and the picker. A denied permission
// never reaches the picker.
func (c *Coordinator) Select(ctx context.Context, source Source) (*models.PendingUpload, error) {
	ctx, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.release()

	if source == SourceMedia {
		ok, err := c.perms.RequestMedia(ctx)
		if err != nil {
			return nil, fmt.Errorf("request media permission: %w", err)
		}
		if !ok {
			return nil, ErrPermissionDenied
		}
	}

	fh, err := c.picker.Pick(ctx, source)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("pick file: %w", err)
	}
	if source == SourceMedia {
		switch models.KindFromMIME(fh.MIMEType) {
		case models.FileKindImage, models.FileKindVideo:
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, fh.MIMEType)
		}
	}
	return &models.PendingUpload{File: fh, State: models.UploadSelected}, nil
}

// Upload transfers a selected file. On failure the pending upload is marked
// failed and nothing else changes. A result arriving after Close is
// discarded.
func (c *Coordinator) Upload(ctx context.Context, pu *models.PendingUpload) (*models.FileRef, error) {
	if pu == nil || pu.State != models.UploadSelected {
		return nil, fmt.Errorf("%w: nothing selected", ErrUploadFailed)
	}
	ctx, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}

	pu.State = models.UploadUploading
	c.log.Info(ctx, "upload started", "name", pu.File.Name, "size", pu.File.Size)
	ref, err := c.uploader.Upload(ctx, pu.File)

	if open := c.release(); !open {
		c.log.Warn(ctx, "upload finished after close, result discarded", "name", pu.File.Name)
		pu.State = models.UploadFailed
		pu.Err = ErrClosed
		return nil, ErrClosed
	}
	if err != nil {
		pu.State = models.UploadFailed
		pu.Err = err
		c.log.Error(ctx, "upload failed", "name", pu.File.Name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	pu.State = models.UploadUploaded
	return ref, nil
}

// Close cancels any running transfer. It is idempotent.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
}
