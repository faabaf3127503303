package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varhold/varhold/internal/storage"
)

type staticPathSource struct {
	paths []string
	err   error
}

func (s *staticPathSource) ListStoragePaths(ctx context.Context) ([]string, error) {
	return s.paths, s.err
}

type countingRecorder struct {
	deleted int
}

func (c *countingRecorder) AddOrphansDeleted(n int) {
	c.deleted += n
}

func TestSweepDeletesOnlyOrphans(t *testing.T) {
	blobs := storage.NewMemoryBackend()
	userID := uuid.New()

	livePath, err := blobs.Store(context.Background(), userID, "live", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	orphanPath, err := blobs.Store(context.Background(), userID, "orphan", json.RawMessage(`{"b":2}`))
	require.NoError(t, err)

	rec := &countingRecorder{}
	r := NewReconciler(&staticPathSource{paths: []string{livePath}}, blobs, zerolog.Nop()).
		WithGracePeriod(0).
		WithMetrics(rec)
	result, err := r.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Orphans)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, rec.deleted)

	exists, err := blobs.Exists(context.Background(), livePath)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = blobs.Exists(context.Background(), orphanPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSweepSkipsDeletionWhenLedgerUnreadable(t *testing.T) {
	blobs := storage.NewMemoryBackend()
	path, err := blobs.Store(context.Background(), uuid.New(), "keep", json.RawMessage(`{}`))
	require.NoError(t, err)

	r := NewReconciler(&staticPathSource{err: errors.New("connection refused")}, blobs, zerolog.Nop())
	_, err = r.Sweep(context.Background())
	require.Error(t, err)

	exists, err := blobs.Exists(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSweepNoOrphans(t *testing.T) {
	blobs := storage.NewMemoryBackend()
	path, err := blobs.Store(context.Background(), uuid.New(), "only", json.RawMessage(`{}`))
	require.NoError(t, err)

	r := NewReconciler(&staticPathSource{paths: []string{path}}, blobs, zerolog.Nop()).WithGracePeriod(0)
	result, err := r.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 0, result.Orphans)
}

func TestSweepSparesRecentUnreferencedBlobs(t *testing.T) {
	blobs := storage.NewMemoryBackend()
	userID := uuid.New()

	freshPath, err := blobs.Store(context.Background(), userID, "in-flight", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	stalePath, err := blobs.Store(context.Background(), userID, "stale", json.RawMessage(`{"b":2}`))
	require.NoError(t, err)
	blobs.SetModTime(stalePath, time.Now().Add(-2*time.Hour))

	r := NewReconciler(&staticPathSource{}, blobs, zerolog.Nop())
	result, err := r.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Orphans)
	assert.Equal(t, 1, result.Deleted)

	exists, err := blobs.Exists(context.Background(), freshPath)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = blobs.Exists(context.Background(), stalePath)
	require.NoError(t, err)
	assert.False(t, exists)
}
