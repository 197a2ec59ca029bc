package models

import (
	"mime"
	"path/filepath"
	"strings"
)

// FileKind is the attachment category derived from its MIME type.
type FileKind string

const (
	FileKindImage    FileKind = "image"
	FileKindVideo    FileKind = "video"
	FileKindAudio    FileKind = "audio"
	FileKindDocument FileKind = "document"
)

// KindFromMIME maps a MIME type to a FileKind. Unknown types are documents.
func KindFromMIME(mimeType string) FileKind {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return FileKindImage
	case strings.HasPrefix(mt, "video/"):
		return FileKindVideo
	case strings.HasPrefix(mt, "audio/"):
		return FileKindAudio
	default:
		return FileKindDocument
	}
}

// FileRef is a durable reference to an uploaded attachment.
type FileRef struct {
	URL      string
	Name     string
	MIMEType string
	Kind     FileKind
	Size     int64
}

// NewFileRef builds a FileRef, deriving Kind from the MIME type.
func NewFileRef(url, name, mimeType string, size int64) *FileRef {
	return &FileRef{URL: url, Name: name, MIMEType: mimeType, Kind: KindFromMIME(mimeType), Size: size}
}

// FileHandle is a local file chosen by a picker, normalised for upload.
type FileHandle struct {
	URI      string
	Name     string
	MIMEType string
	Size     int64
}

// MIMEFromName guesses a MIME type from the file extension.
func MIMEFromName(name string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
}
