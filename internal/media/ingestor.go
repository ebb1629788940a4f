package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wmdrthr/bragge/internal/archive"
	"github.com/wmdrthr/bragge/internal/assets"
	"github.com/wmdrthr/bragge/internal/hash/md5"
	"github.com/wmdrthr/bragge/internal/metrics"
)

// Ingestor tags and relocates the audio and image assets of one
// validated record. Every ingestion re-runs the digest check, so a rerun
// after a crash or duplicate invocation never re-transfers unchanged
// bytes and never leaves a stale object behind.
type Ingestor struct {
	store        assets.Store
	downloadsDir string
	resourcesDir string
	logger       *zap.Logger
}

// NewIngestor constructs an Ingestor. Record asset paths are resolved
// relative to downloadsDir; cover art is loaded from resourcesDir.
func NewIngestor(store assets.Store, downloadsDir, resourcesDir string, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		store:        store,
		downloadsDir: downloadsDir,
		resourcesDir: resourcesDir,
		logger:       logger,
	}
}

// Ingest rewrites the audio tags and uploads audio, image and thumbnail
// to their slug-derived keys. Any error aborts ingestion of this record.
func (i *Ingestor) Ingest(ctx context.Context, rec archive.EpisodeRecord) error {
	audioPath := filepath.Join(i.downloadsDir, filepath.FromSlash(rec.Audio[0].Path))
	if err := RewriteTags(audioPath, rec, i.resourcesDir); err != nil {
		return fmt.Errorf("rewrite audio tags: %w", err)
	}
	if err := i.ingestFile(ctx, "audio", assets.AudioKey(rec.Slug), "audio/mpeg", audioPath); err != nil {
		return err
	}

	imagePath := filepath.Join(i.downloadsDir, filepath.FromSlash(rec.Images[0].Path))
	if err := i.ingestFile(ctx, "image", assets.ImageKey(rec.Slug), "image/jpeg", imagePath); err != nil {
		return err
	}

	thumbPath := filepath.Join(i.downloadsDir, ThumbnailPath(filepath.FromSlash(rec.Images[0].Path)))
	if err := EnsureThumbnail(imagePath, thumbPath); err != nil {
		return fmt.Errorf("generate thumbnail: %w", err)
	}
	return i.ingestFile(ctx, "thumbnail", assets.ThumbnailKey(rec.Slug), "image/jpeg", thumbPath)
}

// ingestFile is the content-addressed upload: compare the local digest
// against the stored integrity tag, and transfer only when the object is
// absent or stale.
func (i *Ingestor) ingestFile(ctx context.Context, kind, key, contentType, path string) error {
	localTag, err := md5.FileETag(path)
	if err != nil {
		return err
	}

	storedTag, err := i.store.Digest(ctx, key)
	switch {
	case errors.Is(err, assets.ErrNotFound):
		// Never uploaded; fall through to the upload.
	case err != nil:
		return fmt.Errorf("check %s: %w", key, err)
	case storedTag == localTag:
		i.logger.Debug("asset already ingested",
			zap.String("key", key),
			zap.String("etag", storedTag))
		metrics.AssetSkipped(kind)
		return nil
	default:
		i.logger.Warn("stale asset, re-uploading",
			zap.String("key", key),
			zap.String("stored_etag", storedTag),
			zap.String("local_etag", localTag))
	}

	if err := i.store.Put(ctx, key, contentType, path); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	metrics.AssetUploaded(kind)
	i.logger.Info("asset ingested", zap.String("key", key), zap.String("etag", localTag))
	return nil
}
