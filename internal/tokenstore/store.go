// Package tokenstore persists short-lived login tokens into a document
// repository. Each user has at most one record, keyed by user id, holding a
// bcrypt hash of the token, its expiry and an optional origin URL.
//
// Authentication failures are deliberately uniform: an unknown user, an
// expired record and a wrong token all yield (false, "", nil).
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/repositories/documents"
	"github.com/dmitrijs2005/tokenkeeper/internal/repositories/repomanager"
)

// TokenStore is the capability the login flow depends on.
type TokenStore interface {
	Authenticate(ctx context.Context, token, uid string) (bool, string, error)
	StoreOrUpdate(ctx context.Context, token, uid string, ttl time.Duration, originURL string) error
	InvalidateUser(ctx context.Context, uid string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

var _ TokenStore = (*Store)(nil)

// Store implements TokenStore. It connects lazily on first use and is safe
// for concurrent use; same-user writes are serialized by the repository's
// conditional put.
type Store struct {
	conn   string
	open   Opener
	hasher cryptox.Hasher
	log    logging.Logger
	now    func() time.Time

	mu      sync.Mutex
	repo    documents.Repository
	connect singleflight.Group
}

// New returns a Store for the repository identified by conn. It does not
// connect; see Connect.
func New(conn string, opts ...Option) (*Store, error) {
	if conn == "" {
		return nil, fmt.Errorf("%w: connection identifier is required", common.ErrInvalidArgument)
	}

	s := &Store{
		conn:   conn,
		hasher: cryptox.NewBcryptHasher(),
		log:    logging.Discard(),
		now:    time.Now,
	}
	WithRepositoryOptions(repomanager.Options{})(s)
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "tokenstore")
	return s, nil
}

// Connect opens the repository if it is not open yet. Every other method
// calls it implicitly.
func (s *Store) Connect(ctx context.Context) error {
	_, err := s.repository(ctx)
	return err
}

func (s *Store) repository(ctx context.Context) (documents.Repository, error) {
	s.mu.Lock()
	r := s.repo
	s.mu.Unlock()
	if r != nil {
		return r, nil
	}

	// the shared connect outlives any single caller; each caller stops
	// waiting when its own ctx is done
	openCtx := context.WithoutCancel(ctx)
	ch := s.connect.DoChan("connect", func() (any, error) {
		s.mu.Lock()
		if s.repo != nil {
			r := s.repo
			s.mu.Unlock()
			return r, nil
		}
		s.mu.Unlock()

		r, err := s.open(openCtx, s.conn)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.repo = r
		s.mu.Unlock()
		s.log.Debug(openCtx, "repository connected")
		return r, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: connect: %w", common.ErrStorage, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			s.log.Error(ctx, "connect failed", "error", res.Err)
			return nil, fmt.Errorf("%w: connect: %w", common.ErrStorage, res.Err)
		}
		return res.Val.(documents.Repository), nil
	}
}

// invalidate drops r as the cached handle so the next call reconnects.
func (s *Store) invalidate(ctx context.Context, r documents.Repository) {
	s.mu.Lock()
	if s.repo == r {
		s.repo = nil
	}
	s.mu.Unlock()

	if err := r.Close(); err != nil {
		s.log.Warn(ctx, "close repository", "error", err)
	}
}

// load reads the record for uid. It returns common.ErrorNotFound unwrapped
// when there is none.
func (s *Store) load(ctx context.Context, r documents.Repository, uid string) (*models.TokenRecord, error) {
	doc, err := r.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	rec := &models.TokenRecord{}
	if err := json.Unmarshal(doc.Body, rec); err != nil {
		return nil, fmt.Errorf("decode token record %q: %w", uid, err)
	}
	rec.ID = doc.ID
	rec.Revision = doc.Revision
	return rec, nil
}

// Authenticate reports whether token is the current, unexpired token of uid.
// On success it also returns the origin URL captured when the token was
// stored.
func (s *Store) Authenticate(ctx context.Context, token, uid string) (bool, string, error) {
	if token == "" || uid == "" {
		return false, "", fmt.Errorf("%w: token and uid are required", common.ErrInvalidArgument)
	}

	r, err := s.repository(ctx)
	if err != nil {
		return false, "", err
	}

	rec, err := s.load(ctx, r, uid)
	if errors.Is(err, common.ErrorNotFound) {
		s.log.Debug(ctx, "authenticate: no record", "uid", uid)
		return false, "", nil
	}
	if err != nil {
		s.log.Error(ctx, "authenticate: lookup failed", "uid", uid, "error", err)
		return false, "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	if rec.Expired(s.now()) {
		s.log.Debug(ctx, "authenticate: record expired", "uid", uid, "expires_at", rec.Expiry())
		return false, "", nil
	}

	ok, err := s.hasher.Compare(token, rec.HashedToken)
	if err != nil {
		s.log.Error(ctx, "authenticate: compare failed", "uid", uid, "error", err)
		return false, "", fmt.Errorf("%w: %w", common.ErrHash, err)
	}
	if !ok {
		s.log.Debug(ctx, "authenticate: token mismatch", "uid", uid)
		return false, "", nil
	}

	s.log.Debug(ctx, "authenticate: ok", "uid", uid)
	return true, rec.OriginURL, nil
}

// StoreOrUpdate makes token the only valid token of uid for ttl. An empty
// originURL is stored as absent. A concurrent write to the same uid makes
// this call fail with an error matching both common.ErrStorage and
// common.ErrVersionConflict; the caller may retry.
func (s *Store) StoreOrUpdate(ctx context.Context, token, uid string, ttl time.Duration, originURL string) error {
	if token == "" || uid == "" {
		return fmt.Errorf("%w: token and uid are required", common.ErrInvalidArgument)
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", common.ErrInvalidArgument, ttl)
	}

	hashed, err := s.hasher.Hash(token)
	if err != nil {
		s.log.Error(ctx, "store: hash failed", "uid", uid, "error", err)
		return fmt.Errorf("%w: %w", common.ErrHash, err)
	}

	rec := &models.TokenRecord{
		ID:          uid,
		HashedToken: hashed,
		ExpiresAt:   s.now().Add(ttl).UnixMilli(),
		OriginURL:   originURL,
	}

	r, err := s.repository(ctx)
	if err != nil {
		return err
	}

	cur, err := r.Get(ctx, uid)
	switch {
	case errors.Is(err, common.ErrorNotFound):
	case err != nil:
		s.log.Error(ctx, "store: lookup failed", "uid", uid, "error", err)
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	default:
		rec.Revision = cur.Revision
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode token record: %w", common.ErrStorage, err)
	}

	if _, err := r.Put(ctx, &models.Document{ID: uid, Body: body, Revision: rec.Revision}); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			s.log.Warn(ctx, "store: concurrent update", "uid", uid)
		} else {
			s.log.Error(ctx, "store: write failed", "uid", uid, "error", err)
		}
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	s.log.Debug(ctx, "store: ok", "uid", uid, "expires_at", rec.Expiry())
	return nil
}

// InvalidateUser removes the token of uid. Removing a token that does not
// exist succeeds.
func (s *Store) InvalidateUser(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: uid is required", common.ErrInvalidArgument)
	}

	r, err := s.repository(ctx)
	if err != nil {
		return err
	}

	err = r.Remove(ctx, uid)
	switch {
	case err == nil:
		s.log.Debug(ctx, "invalidate: removed", "uid", uid)
	case errors.Is(err, common.ErrorNotFound):
		s.log.Debug(ctx, "invalidate: no record", "uid", uid)
	default:
		s.log.Error(ctx, "invalidate: remove failed", "uid", uid, "error", err)
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return nil
}

// Clear removes every record and drops the connection; the next call
// reconnects. The connection is dropped even when removal fails.
func (s *Store) Clear(ctx context.Context) error {
	r, err := s.repository(ctx)
	if err != nil {
		return err
	}
	defer s.invalidate(ctx, r)

	if err := r.Destroy(ctx); err != nil {
		s.log.Error(ctx, "clear: destroy failed", "error", err)
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	s.log.Info(ctx, "clear: all tokens removed")
	return nil
}

// Count returns the number of stored records, expired ones included.
func (s *Store) Count(ctx context.Context) (int, error) {
	r, err := s.repository(ctx)
	if err != nil {
		return 0, err
	}

	info, err := r.Info(ctx)
	if err != nil {
		s.log.Error(ctx, "count failed", "error", err)
		return 0, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return info.DocCount, nil
}

// Exists reports whether uid has a stored record and when it expires. The
// hash is not consulted.
func (s *Store) Exists(ctx context.Context, uid string) (bool, time.Time, error) {
	if uid == "" {
		return false, time.Time{}, fmt.Errorf("%w: uid is required", common.ErrInvalidArgument)
	}

	r, err := s.repository(ctx)
	if err != nil {
		return false, time.Time{}, err
	}

	rec, err := s.load(ctx, r, uid)
	if errors.Is(err, common.ErrorNotFound) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return true, rec.Expiry(), nil
}

// Close releases the connection, if any. The store reconnects on next use.
func (s *Store) Close() error {
	s.mu.Lock()
	r := s.repo
	s.repo = nil
	s.mu.Unlock()

	if r == nil {
		return nil
	}
	return r.Close()
}
