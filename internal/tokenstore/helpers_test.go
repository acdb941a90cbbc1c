package tokenstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tokenkeeper/internal/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/repositories/documents"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// plainHasher is a cheap reversible stand-in for bcrypt.
type plainHasher struct {
	hashErr    error
	compareErr error
}

func (h *plainHasher) Hash(p string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "plain:" + p, nil
}

func (h *plainHasher) Compare(p, hashed string) (bool, error) {
	if h.compareErr != nil {
		return false, h.compareErr
	}
	if !strings.HasPrefix(hashed, "plain:") {
		return false, errors.New("malformed hash")
	}
	return hashed == "plain:"+p, nil
}

// countingOpener hands out the same repository and counts connects.
type countingOpener struct {
	repo  documents.Repository
	opens atomic.Int32
	err   error
}

func (o *countingOpener) Open(ctx context.Context, conn string) (documents.Repository, error) {
	o.opens.Add(1)
	if o.err != nil {
		return nil, o.err
	}
	return o.repo, nil
}

// stubRepo fails every call with the configured errors.
type stubRepo struct {
	getErr, putErr, removeErr, destroyErr, infoErr error
	getDoc                                         *models.Document
	closed                                         atomic.Int32
}

func (r *stubRepo) Get(ctx context.Context, id string) (*models.Document, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.getDoc, nil
}

func (r *stubRepo) Put(ctx context.Context, doc *models.Document) (string, error) {
	return "", r.putErr
}

func (r *stubRepo) Remove(ctx context.Context, id string) error { return r.removeErr }

func (r *stubRepo) Destroy(ctx context.Context) error { return r.destroyErr }

func (r *stubRepo) Info(ctx context.Context) (*models.Info, error) {
	if r.infoErr != nil {
		return nil, r.infoErr
	}
	return &models.Info{Backend: "stub"}, nil
}

func (r *stubRepo) Close() error {
	r.closed.Add(1)
	return nil
}

// hookRepo runs beforePut once, just before the first Put reaches the
// wrapped repository.
type hookRepo struct {
	*documents.InMemoryRepository
	fired     atomic.Bool
	beforePut func()
}

func (r *hookRepo) Put(ctx context.Context, doc *models.Document) (string, error) {
	if r.beforePut != nil && r.fired.CompareAndSwap(false, true) {
		r.beforePut()
	}
	return r.InMemoryRepository.Put(ctx, doc)
}

type fixture struct {
	store  *Store
	repo   *documents.InMemoryRepository
	opener *countingOpener
	clock  *fakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		repo:  documents.NewInMemoryRepository(),
		clock: newFakeClock(),
	}
	f.opener = &countingOpener{repo: f.repo}

	all := append([]Option{
		WithOpener(f.opener.Open),
		WithHasher(&plainHasher{}),
		WithClock(f.clock.Now),
	}, opts...)

	s, err := New("memory:", all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	f.store = s
	return f
}
