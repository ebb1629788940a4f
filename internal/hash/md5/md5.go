// Package md5 computes the content digests used for upload deduplication.
package md5

import (
	"crypto/md5" // #nosec G501 -- matches the remote store's integrity tag, not used for security
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Sum returns the hex digest of data.
func Sum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SumFile returns the hex digest of the file at path.
func SumFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from our own downloads store
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New() // #nosec G401
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ETag wraps a hex digest in double quotes, the form object stores use
// for their integrity tags.
func ETag(hexDigest string) string {
	return `"` + hexDigest + `"`
}

// FileETag is SumFile followed by ETag.
func FileETag(path string) (string, error) {
	digest, err := SumFile(path)
	if err != nil {
		return "", err
	}
	return ETag(digest), nil
}
