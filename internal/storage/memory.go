package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memBlob struct {
	data    []byte
	modTime time.Time
}

// MemoryBackend is an in-memory Backend used by tests and local tooling.
// It honors the same contract as the durable backends.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string]memBlob)}
}

// Store implements Backend.
func (b *MemoryBackend) Store(ctx context.Context, userID uuid.UUID, key string, doc json.RawMessage) (string, error) {
	data, err := canonicalJSON(doc)
	if err != nil {
		return "", err
	}
	storagePath := fmt.Sprintf("%s/%s.json", userID, key)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[storagePath] = memBlob{data: data, modTime: time.Now()}
	return storagePath, nil
}

// Retrieve implements Backend.
func (b *MemoryBackend) Retrieve(ctx context.Context, storagePath string) (json.RawMessage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	blob, ok := b.blobs[storagePath]
	if !ok {
		return nil, errBlobNotFound()
	}
	out := make([]byte, len(blob.data))
	copy(out, blob.data)
	return out, nil
}

// Update implements Backend.
func (b *MemoryBackend) Update(ctx context.Context, storagePath string, doc json.RawMessage) error {
	data, err := canonicalJSON(doc)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[storagePath]; !ok {
		return errBlobNotFound()
	}
	b.blobs[storagePath] = memBlob{data: data, modTime: time.Now()}
	return nil
}

// Delete implements Backend. Idempotent.
func (b *MemoryBackend) Delete(ctx context.Context, storagePath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, storagePath)
	return nil
}

// Exists implements Backend.
func (b *MemoryBackend) Exists(ctx context.Context, storagePath string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.blobs[storagePath]
	return ok, nil
}

// ListPaths implements PathLister.
func (b *MemoryBackend) ListPaths(ctx context.Context) ([]BlobInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	blobs := make([]BlobInfo, 0, len(b.blobs))
	for p, blob := range b.blobs {
		blobs = append(blobs, BlobInfo{Path: p, ModTime: blob.modTime})
	}
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Path < blobs[j].Path })
	return blobs, nil
}

// Drop removes a blob without going through Delete. Tests use it to
// simulate ledger/blob divergence.
func (b *MemoryBackend) Drop(storagePath string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, storagePath)
}

// SetModTime backdates a blob. Tests use it to age blobs past the
// sweep's grace period.
func (b *MemoryBackend) SetModTime(storagePath string, t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if blob, ok := b.blobs[storagePath]; ok {
		blob.modTime = t
		b.blobs[storagePath] = blob
	}
}
