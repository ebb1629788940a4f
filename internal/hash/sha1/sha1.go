// Package sha1 provides the URL hashing used for download paths.
package sha1

import (
	"crypto/sha1" // #nosec G505 -- content addressing, not security
	"encoding/hex"
)

// HexSum hashes the input and returns a hex digest. Downloaded assets
// are stored under the digest of their source URL, so the same URL
// always lands on the same path.
func HexSum(data string) string {
	sum := sha1.Sum([]byte(data)) // #nosec G401
	return hex.EncodeToString(sum[:])
}
