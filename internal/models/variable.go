package models

import (
	"time"

	"github.com/google/uuid"
)

// Variable is the metadata ledger entry for a tenant-owned JSON document.
// The document bytes themselves live in the blob store at StoragePath;
// for as long as this row exists the path must resolve to a readable blob.
type Variable struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	Version     int       `json:"version"`
	StoragePath string    `json:"storage_path"`
	IsEncrypted bool      `json:"is_encrypted"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SizeInMB returns the variable size rounded down to whole megabytes.
func (v *Variable) SizeInMB() int {
	return int(v.SizeBytes / (1024 * 1024))
}
