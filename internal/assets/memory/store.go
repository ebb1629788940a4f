// Package memory stores assets in-memory for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/wmdrthr/bragge/internal/assets"
	"github.com/wmdrthr/bragge/internal/hash/md5"
)

// Store keeps object bytes in a map and counts uploads so tests can
// assert on deduplication behavior.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
	puts map[string]int
}

// New creates an in-memory asset store.
func New() *Store {
	return &Store{
		data: make(map[string][]byte),
		puts: make(map[string]int),
	}
}

// Digest returns the quoted hex MD5 of the stored object.
func (s *Store) Digest(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return "", assets.ErrNotFound
	}
	return md5.ETag(md5.Sum(data)), nil
}

// Put reads srcPath and stores its bytes under key.
func (s *Store) Put(_ context.Context, key string, _ string, srcPath string) error {
	data, err := os.ReadFile(srcPath) // #nosec G304 -- test helper
	if err != nil {
		return fmt.Errorf("read %s: %w", srcPath, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	s.puts[key]++
	return nil
}

// PutCount reports how many times key has been uploaded.
func (s *Store) PutCount(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts[key]
}

// Object returns the stored bytes for key.
func (s *Store) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	return data, ok
}

// Seed stores raw bytes directly, without counting an upload.
func (s *Store) Seed(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
}
