// Package documents declares the document repository contract the token store
// persists into, and provides its backends: in-memory, PostgreSQL, SQLite,
// S3-compatible object storage and Redis.
package documents

import (
	"context"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/models"
	"github.com/google/uuid"
)

// Repository is a by-key document store with optimistic concurrency.
type Repository interface {
	// Get returns the document stored under id, or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Document, error)

	// Put writes doc conditionally and returns the new revision. An empty
	// doc.Revision requires that id is not stored yet; otherwise the stored
	// revision must equal doc.Revision. Mismatches return
	// common.ErrVersionConflict.
	Put(ctx context.Context, doc *models.Document) (string, error)

	// Remove deletes the document stored under id. It returns
	// common.ErrorNotFound when there is nothing to delete.
	Remove(ctx context.Context, id string) error

	// Destroy removes every document.
	Destroy(ctx context.Context) error

	// Info reports the backend name and the number of stored documents.
	Info(ctx context.Context) (*models.Info, error)

	// Close releases the underlying connection.
	Close() error
}

// newRevision returns the revision following prev, in the "<generation>-<id>"
// form. Unparseable or empty revisions restart at generation 1.
func newRevision(prev string) string {
	gen := 0
	if head, _, ok := strings.Cut(prev, "-"); ok {
		if n, err := strconv.Atoi(head); err == nil {
			gen = n
		}
	}
	return strconv.Itoa(gen+1) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
