// Package assets defines the interface for the archive's asset store.
// This abstraction allows the ingestor to be independent of a specific
// backend (local filesystem hard links, Amazon S3, or Google Cloud Storage).
package assets

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Digest when no object exists under the key.
// The ingestor treats it as "never uploaded" and performs the upload.
var ErrNotFound = errors.New("asset not found")

// Store defines the capability set the ingestor needs from a backend.
type Store interface {
	// Digest returns the integrity tag of the object stored under key:
	// the object's MD5 digest, hex-encoded and double-quoted. Returns
	// ErrNotFound when the object does not exist; any other error means
	// the backend could not be consulted and must propagate.
	Digest(ctx context.Context, key string) (string, error)

	// Put stores the file at srcPath under key, replacing any existing
	// object.
	Put(ctx context.Context, key string, contentType string, srcPath string) error
}

// Object keys follow a fixed slug-derived layout shared by every backend.

// AudioKey returns the object key for an episode's audio file.
func AudioKey(slug string) string {
	return fmt.Sprintf("audio/%s.mp3", slug)
}

// ImageKey returns the object key for an episode's image.
func ImageKey(slug string) string {
	return fmt.Sprintf("images/%s.jpg", slug)
}

// ThumbnailKey returns the object key for an episode's image thumbnail.
func ThumbnailKey(slug string) string {
	return fmt.Sprintf("images/thumbnails/%s.jpg", slug)
}

// LogKey returns the object key for an uploaded run log.
func LogKey(basename string) string {
	return fmt.Sprintf("logs/%s", basename)
}
