// Package store is the remote document store used for user profiles:
// point reads, whole-document writes, and a live subscription per document.
package store

import (
	"context"
	"errors"

	"github.com/growme/backend/internal/models"
)

var ErrNotFound = errors.New("profile not found")

// ProfileStore is the storage surface the synchronization cache runs on.
// Writes are document-granularity with last-writer-wins semantics; there is
// no per-field merge.
type ProfileStore interface {
	// Get performs a point read by UID. Returns ErrNotFound when absent.
	Get(ctx context.Context, uid string) (*models.Profile, error)

	// Create inserts a new profile document.
	Create(ctx context.Context, p *models.Profile) error

	// Replace overwrites the stored document with p.
	Replace(ctx context.Context, p *models.Profile) error

	// PatchGoals sets only the goals field, leaving the rest untouched.
	// Used by the login bootstrap to heal documents missing the structure.
	PatchGoals(ctx context.Context, uid string, goals map[string][]models.Goal) error

	// Watch returns a channel of profile snapshots pushed on every change
	// to the document. The channel closes when ctx is cancelled or the
	// underlying stream ends.
	Watch(ctx context.Context, uid string) (<-chan *models.Profile, error)
}
