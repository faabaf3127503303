// Package storage provides blob storage backends for variable documents.
// A backend stores one JSON document per (user, key) under an opaque
// storage path; metadata about the documents lives in the ledger, not here.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/apperr"
)

// Backend is the capability set every blob storage backend implements.
type Backend interface {
	// Store writes the document for (userID, key) and returns its storage
	// path. The path is derived deterministically but callers must treat
	// it as opaque. The user's namespace is created if absent.
	Store(ctx context.Context, userID uuid.UUID, key string, doc json.RawMessage) (string, error)

	// Retrieve reads the document at the path. Returns a NotFound error
	// if no blob exists there.
	Retrieve(ctx context.Context, storagePath string) (json.RawMessage, error)

	// Update overwrites the document at an existing path. Unlike Store it
	// is not an upsert: a missing path is a NotFound error.
	Update(ctx context.Context, storagePath string, doc json.RawMessage) error

	// Delete removes the blob at the path. Deleting a missing path is not
	// an error.
	Delete(ctx context.Context, storagePath string) error

	// Exists reports whether a blob exists at the path.
	Exists(ctx context.Context, storagePath string) (bool, error)
}

// BlobInfo describes one stored blob for the reconciliation sweep.
type BlobInfo struct {
	Path    string
	ModTime time.Time
}

// PathLister is an optional capability used by the reconciliation sweep
// to find orphaned blobs. Backends that cannot enumerate stored paths
// simply don't implement it.
type PathLister interface {
	ListPaths(ctx context.Context) ([]BlobInfo, error)
}

// canonicalJSON validates doc and strips insignificant whitespace. The
// document bytes are otherwise stored as given, so numbers and key order
// round-trip exactly.
func canonicalJSON(doc json.RawMessage) ([]byte, error) {
	if !json.Valid(doc) {
		return nil, apperr.New(apperr.KindValidation, "document is not valid JSON")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "document is not valid JSON", err)
	}
	return buf.Bytes(), nil
}

// errBlobNotFound is the uniform missing-blob error across backends.
func errBlobNotFound() error {
	return apperr.New(apperr.KindNotFound, "variable data not found")
}
