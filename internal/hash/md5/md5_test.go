package md5

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumMatchesKnownDigest(t *testing.T) {
	t.Parallel()

	// md5("hello") is a fixed vector.
	require.Equal(t, "5d41402abc4b2a76b9719d911017c592", Sum([]byte("hello")))
}

func TestSumFileMatchesSum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	digest, err := SumFile(path)
	require.NoError(t, err)
	require.Equal(t, Sum([]byte("hello")), digest)
}

func TestSumFileMissing(t *testing.T) {
	t.Parallel()

	_, err := SumFile(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestETagQuoting(t *testing.T) {
	t.Parallel()

	require.Equal(t, `"5d41402abc4b2a76b9719d911017c592"`, ETag(Sum([]byte("hello"))))

	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))
	etag, err := FileETag(path)
	require.NoError(t, err)
	require.Equal(t, `"5d41402abc4b2a76b9719d911017c592"`, etag)
}
