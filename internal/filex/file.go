// Package filex holds local filesystem helpers for the client.
package filex

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// Info describes a regular file chosen for upload.
type Info struct {
	Path     string
	Name     string
	MIMEType string
	Size     int64
}

// Describe stats path and resolves its MIME type from the extension,
// falling back to content sniffing.
func Describe(path string) (Info, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return Info{}, err
	}
	if !fi.Mode().IsRegular() {
		return Info{}, fmt.Errorf("%s: not a regular file", abs)
	}

	info := Info{Path: abs, Name: fi.Name(), Size: fi.Size()}
	info.MIMEType = mime.TypeByExtension(strings.ToLower(filepath.Ext(abs)))
	if info.MIMEType == "" {
		info.MIMEType, err = sniff(abs)
		if err != nil {
			return Info{}, err
		}
	}
	return info, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
