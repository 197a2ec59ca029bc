package upload

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/filex"
)

// StaticPermissions answers media requests from configuration.
type StaticPermissions struct {
	AllowMedia bool
}

func (p StaticPermissions) RequestMedia(context.Context) (bool, error) {
	return p.AllowMedia, nil
}

// PathPicker asks for a local path and normalizes it into a FileHandle.
// An empty answer cancels.
type PathPicker struct {
	Prompt func(ctx context.Context, source Source) (string, error)
}

func (p PathPicker) Pick(ctx context.Context, source Source) (models.FileHandle, error) {
	path, err := p.Prompt(ctx, source)
	if err != nil {
		return models.FileHandle{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return models.FileHandle{}, ErrCancelled
	}
	info, err := filex.Describe(path)
	if err != nil {
		return models.FileHandle{}, err
	}
	return models.FileHandle{URI: info.Path, Name: info.Name, MIMEType: info.MIMEType, Size: info.Size}, nil
}
