package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varhold/varhold/internal/apperr"
)

func newLocal(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	return b
}

func TestLocalStoreRetrieveRoundTrip(t *testing.T) {
	b := newLocal(t)
	userID := uuid.New()

	path, err := b.Store(context.Background(), userID, "app.settings", json.RawMessage(`{ "b": 2,  "a": 1 }`))
	require.NoError(t, err)
	assert.Equal(t, userID.String()+"/app.settings.json", path)

	data, err := b.Retrieve(context.Background(), path)
	require.NoError(t, err)
	// Stored documents are compacted but otherwise kept as written.
	assert.Equal(t, `{"b":2,"a":1}`, string(data))
}

func TestLocalPreservesLargeIntegers(t *testing.T) {
	b := newLocal(t)

	// 2^53+1 is not representable as a float64.
	doc := `{"id":9007199254740993}`
	path, err := b.Store(context.Background(), uuid.New(), "counter", json.RawMessage(doc))
	require.NoError(t, err)

	data, err := b.Retrieve(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
}

func TestLocalStoreRejectsInvalidJSON(t *testing.T) {
	b := newLocal(t)

	_, err := b.Store(context.Background(), uuid.New(), "bad", json.RawMessage(`{"x":`))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestLocalRetrieveMissing(t *testing.T) {
	b := newLocal(t)

	_, err := b.Retrieve(context.Background(), uuid.New().String()+"/missing.json")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestLocalUpdate(t *testing.T) {
	b := newLocal(t)
	userID := uuid.New()

	path, err := b.Store(context.Background(), userID, "cfg", json.RawMessage(`{"v":1}`))
	require.NoError(t, err)

	require.NoError(t, b.Update(context.Background(), path, json.RawMessage(`{"v":2}`)))

	data, err := b.Retrieve(context.Background(), path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(data))

	// Updates only overwrite existing blobs.
	err = b.Update(context.Background(), uuid.New().String()+"/nothere.json", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestLocalDeleteIdempotent(t *testing.T) {
	b := newLocal(t)
	userID := uuid.New()

	path, err := b.Store(context.Background(), userID, "gone", json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, b.Delete(context.Background(), path))
	require.NoError(t, b.Delete(context.Background(), path))

	exists, err := b.Exists(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalRejectsEscapingPaths(t *testing.T) {
	b := newLocal(t)

	for _, path := range []string{"../outside.json", "a/../../etc/passwd", ".."} {
		_, err := b.Retrieve(context.Background(), path)
		require.Error(t, err, "path %q should be rejected", path)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "path %q", path)
	}
}

func TestLocalListPaths(t *testing.T) {
	b := newLocal(t)
	alice := uuid.New()
	bob := uuid.New()

	p1, err := b.Store(context.Background(), alice, "one", json.RawMessage(`{}`))
	require.NoError(t, err)
	p2, err := b.Store(context.Background(), bob, "two", json.RawMessage(`{}`))
	require.NoError(t, err)

	blobs, err := b.ListPaths(context.Background())
	require.NoError(t, err)
	paths := make([]string, 0, len(blobs))
	for _, blob := range blobs {
		assert.False(t, blob.ModTime.IsZero())
		paths = append(paths, blob.Path)
	}
	assert.ElementsMatch(t, []string{p1, p2}, paths)
}
