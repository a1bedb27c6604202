// Package imagestore holds uploaded and processed image bytes behind a small
// interface so the local disk, Supabase Storage and GCS are interchangeable.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// URLPrefix is the route under which stored images are served.
const URLPrefix = "/images/"

var (
	ErrNotFound    = errors.New("image not found")
	ErrInvalidName = errors.New("invalid image name")
)

type ImageStore interface {
	// Save stores data under name, replacing any existing object, and returns
	// the URL path the image is served from.
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Open returns the stored bytes or ErrNotFound.
	Open(ctx context.Context, name string) ([]byte, error)
}

// URLPath returns the served path for a stored object name.
func URLPath(name string) string {
	return URLPrefix + name
}

// NameFromURLPath extracts the object name from a served path such as
// "/images/processed_abc.png". It reports false for anything else.
func NameFromURLPath(p string) (string, bool) {
	if !strings.HasPrefix(p, URLPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(p, URLPrefix)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if ValidateName(name) != nil {
		return "", false
	}
	return name, true
}

// ValidateName rejects empty names and anything that could escape the store root.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ContentType guesses the MIME type from the extension, then from the bytes.
func ContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

// ExtensionFor maps an image MIME type to a file extension.
func ExtensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

func cleanExt(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}
