// Package storage defines the file store interface the skill reads documents
// from and writes skill cards back to.
package storage

import (
	"context"
	"fmt"

	"github.com/okian/boxskill/internal/domain/model"
)

// BackendBox is the only supported backend.
const BackendBox = "box"

// UpsertOutcome describes how a metadata write ended.
type UpsertOutcome string

// Upsert outcomes.
const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
	OutcomeFailed  UpsertOutcome = "failed"
)

// Storage provides access to files and their metadata in a user's account.
type Storage interface {
	// Download saves the file's content under dir and returns the local path.
	Download(ctx context.Context, file model.FileRef, token, dir string) (string, error)

	// UpsertMetadata writes payload as the file's skill-card metadata, creating
	// the instance or overwriting its top-level keys when it already exists.
	// A failed overwrite is logged and reported as OutcomeFailed, not as an error.
	UpsertMetadata(ctx context.Context, fileID, token string, payload any) (UpsertOutcome, error)
}

// New returns the Storage for backend.
func New(backend string, opts ...Option) (Storage, error) {
	switch backend {
	case BackendBox:
		return NewBox(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}
