package tokenstore

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/repositories/documents"
	"github.com/dmitrijs2005/tokenkeeper/internal/repositories/repomanager"
)

// Opener opens the document repository named by a connection identifier.
type Opener func(ctx context.Context, conn string) (documents.Repository, error)

// Option configures a Store.
type Option func(*Store)

// WithOpener replaces repomanager.Open as the way the store connects.
func WithOpener(open Opener) Option {
	return func(s *Store) { s.open = open }
}

// WithRepositoryOptions passes backend settings to the default opener.
func WithRepositoryOptions(o repomanager.Options) Option {
	return func(s *Store) {
		s.open = func(ctx context.Context, conn string) (documents.Repository, error) {
			return repomanager.Open(ctx, conn, o)
		}
	}
}

func WithHasher(h cryptox.Hasher) Option {
	return func(s *Store) { s.hasher = h }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides time.Now for expiry calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}
