// Package gcs implements the asset store on Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"

	"github.com/wmdrthr/bragge/internal/assets"
	"github.com/wmdrthr/bragge/internal/hash/md5"
)

// Config captures the parameters required to reach the bucket.
type Config struct {
	Bucket string `mapstructure:"bucket"`
}

// Store reads and writes archive assets in a GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed asset store. Authentication is handled via
// Google's Application Default Credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	// Fail fast on startup if the bucket is missing or inaccessible.
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bucket %q attributes: %w", cfg.Bucket, err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Digest returns the stored object's MD5 in the shared quoted-hex form,
// or assets.ErrNotFound when the object does not exist.
func (s *Store) Digest(ctx context.Context, key string) (string, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", assets.ErrNotFound
		}
		return "", fmt.Errorf("attrs gs://%s/%s: %w", s.bucket, key, err)
	}
	return md5.ETag(hex.EncodeToString(attrs.MD5)), nil
}

// Put uploads the file at srcPath, declaring the MD5 so GCS rejects a
// corrupted transfer.
func (s *Store) Put(ctx context.Context, key string, contentType string, srcPath string) error {
	f, err := os.Open(srcPath) // #nosec G304 -- path comes from our own downloads store
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer f.Close()

	digest, err := md5.SumFile(srcPath)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("decode digest: %w", err)
	}

	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.MD5 = raw
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, f); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
