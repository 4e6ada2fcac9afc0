// Package store persists drafting sessions as whole JSON documents over a
// capacity-limited storage medium, maintains the multi-project index, and
// mirrors transcripts into SQLite for querying. Documents are always written
// whole; there is no sub-document write path, so a failed write never leaves
// a partially updated project.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrQuotaExceeded is returned when a document write would exceed the
// medium's capacity ceiling.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrNotFound is returned when a document key does not exist.
var ErrNotFound = errors.New("document not found")

// DocumentBackend is the storage medium: opaque keys mapped to whole
// documents, with a hard per-write capacity ceiling that can reject a write.
type DocumentBackend interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Delete(key string) error
	List() ([]string, error)
}

// =============================================================================
// FILE BACKEND
// =============================================================================

// FileBackend stores one JSON file per key under a directory.
type FileBackend struct {
	dir   string
	quota int
}

// NewFileBackend creates the directory if needed. quota is the maximum
// document size in bytes; writes above it fail with ErrQuotaExceeded.
func NewFileBackend(dir string, quota int) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &FileBackend{dir: dir, quota: quota}, nil
}

// keyPath maps a document key to a filename. Keys use ':' as a namespace
// separator, which is not filename-safe everywhere.
func (b *FileBackend) keyPath(key string) string {
	return filepath.Join(b.dir, strings.ReplaceAll(key, ":", "_")+".json")
}

func (b *FileBackend) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(b.keyPath(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *FileBackend) Write(key string, data []byte) error {
	if b.quota > 0 && len(data) > b.quota {
		return fmt.Errorf("writing %d bytes to %q: %w", len(data), key, ErrQuotaExceeded)
	}
	return os.WriteFile(b.keyPath(key), data, 0644)
}

func (b *FileBackend) Delete(key string) error {
	err := os.Remove(b.keyPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (b *FileBackend) List() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.ReplaceAll(strings.TrimSuffix(name, ".json"), "_", ":"))
	}
	return keys, nil
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryBackend is an in-memory medium with the same quota behavior,
// used by tests and per-test engine construction.
type MemoryBackend struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	quota int
}

// NewMemoryBackend creates a backend with the given per-write byte ceiling
// (0 = unlimited).
func NewMemoryBackend(quota int) *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte), quota: quota}
}

func (b *MemoryBackend) Read(key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *MemoryBackend) Write(key string, data []byte) error {
	if b.quota > 0 && len(data) > b.quota {
		return fmt.Errorf("writing %d bytes to %q: %w", len(data), key, ErrQuotaExceeded)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	b.docs[key] = stored
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, key)
	return nil
}

func (b *MemoryBackend) List() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.docs))
	for k := range b.docs {
		keys = append(keys, k)
	}
	return keys, nil
}
