package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/varhold/varhold/internal/apperr"
)

// LocalBackend stores blobs on the local filesystem, one directory per
// user containing one <key>.json file per variable.
type LocalBackend struct {
	basePath string
}

// NewLocalBackend creates a filesystem backend rooted at basePath,
// creating the directory if needed.
func NewLocalBackend(basePath string) (*LocalBackend, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local backend: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("local backend: create base directory: %w", err)
	}
	return &LocalBackend{basePath: basePath}, nil
}

// resolve maps a storage path to an absolute filesystem path, rejecting
// anything that would escape the base directory.
func (b *LocalBackend) resolve(storagePath string) (string, error) {
	full := filepath.Join(b.basePath, filepath.FromSlash(storagePath))
	base, err := filepath.Abs(b.basePath)
	if err != nil {
		return "", fmt.Errorf("local backend: resolve base: %w", err)
	}
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("local backend: resolve path: %w", err)
	}
	if abs != base && !strings.HasPrefix(abs, base+string(os.PathSeparator)) {
		return "", apperr.New(apperr.KindValidation, "invalid storage path")
	}
	return abs, nil
}

// Store implements Backend.
func (b *LocalBackend) Store(ctx context.Context, userID uuid.UUID, key string, doc json.RawMessage) (string, error) {
	data, err := canonicalJSON(doc)
	if err != nil {
		return "", err
	}

	userDir := filepath.Join(b.basePath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}

	storagePath := fmt.Sprintf("%s/%s.json", userID, key)
	full, err := b.resolve(storagePath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return storagePath, nil
}

// Retrieve implements Backend.
func (b *LocalBackend) Retrieve(ctx context.Context, storagePath string) (json.RawMessage, error) {
	full, err := b.resolve(storagePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errBlobNotFound()
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return json.RawMessage(data), nil
}

// Update implements Backend. The path must already exist.
func (b *LocalBackend) Update(ctx context.Context, storagePath string, doc json.RawMessage) error {
	data, err := canonicalJSON(doc)
	if err != nil {
		return err
	}
	full, err := b.resolve(storagePath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return errBlobNotFound()
		}
		return apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return nil
}

// Delete implements Backend. Idempotent.
func (b *LocalBackend) Delete(ctx context.Context, storagePath string) error {
	full, err := b.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return nil
}

// Exists implements Backend.
func (b *LocalBackend) Exists(ctx context.Context, storagePath string) (bool, error) {
	full, err := b.resolve(storagePath)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return true, nil
}

// ListPaths implements PathLister for the reconciliation sweep.
func (b *LocalBackend) ListPaths(ctx context.Context) ([]BlobInfo, error) {
	var blobs []BlobInfo
	err := filepath.WalkDir(b.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		rel, err := filepath.Rel(b.basePath, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		blobs = append(blobs, BlobInfo{Path: filepath.ToSlash(rel), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "blob store unavailable", err)
	}
	return blobs, nil
}
