package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	thumbnailWidth = 160
	jpegQuality    = 85
)

// ThumbnailPath maps an image's downloads-store path onto its thumbnail
// side-store path: thumbs/<same relative path with "full" replaced by
// "small">.
func ThumbnailPath(imagePath string) string {
	return filepath.Join("thumbs", strings.Replace(imagePath, "full", "small", 1))
}

// EnsureThumbnail generates the thumbnail variant of the image at
// srcPath into dstPath unless one already exists.
func EnsureThumbnail(srcPath, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat thumbnail %s: %w", dstPath, err)
	}

	img, err := imaging.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open image %s: %w", srcPath, err)
	}
	resized := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o750); err != nil {
		return fmt.Errorf("create thumbnail directory: %w", err)
	}
	if err := imaging.Save(resized, dstPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("save thumbnail %s: %w", dstPath, err)
	}
	return nil
}
