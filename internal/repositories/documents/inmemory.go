package documents

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/models"
)

var _ Repository = (*InMemoryRepository)(nil)

// InMemoryRepository keeps documents in a map. It is safe for concurrent use.
type InMemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{docs: make(map[string]models.Document)}
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	doc.Body = append([]byte(nil), doc.Body...)
	return &doc, nil
}

func (r *InMemoryRepository) Put(ctx context.Context, doc *models.Document) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.docs[doc.ID]
	if (ok && cur.Revision != doc.Revision) || (!ok && doc.Revision != "") {
		return "", common.ErrVersionConflict
	}

	rev := newRevision(doc.Revision)
	r.docs[doc.ID] = models.Document{
		ID:       doc.ID,
		Body:     append([]byte(nil), doc.Body...),
		Revision: rev,
	}
	return rev, nil
}

func (r *InMemoryRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *InMemoryRepository) Destroy(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs = make(map[string]models.Document)
	return nil
}

func (r *InMemoryRepository) Info(ctx context.Context) (*models.Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &models.Info{Backend: "memory", DocCount: len(r.docs)}, nil
}

func (r *InMemoryRepository) Close() error { return nil }
