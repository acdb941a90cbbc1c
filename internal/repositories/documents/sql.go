package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/models"
)

// sqlQueries is the per-dialect statement set of sqlRepository.
type sqlQueries struct {
	backend string
	get     string
	insert  string
	update  string
	remove  string
	destroy string
	count   string
}

// sqlRepository implements Repository over a token_documents table reached
// through dbx.DBTX (satisfied by *sql.DB or *sql.Tx).
type sqlRepository struct {
	db dbx.DBTX
	q  sqlQueries
}

func (r *sqlRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	doc := &models.Document{ID: id}
	if err := r.db.QueryRowContext(ctx, r.q.get, id).Scan(&doc.Body, &doc.Revision); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *sqlRepository) Put(ctx context.Context, doc *models.Document) (string, error) {
	rev := newRevision(doc.Revision)

	var (
		res sql.Result
		err error
	)
	if doc.Revision == "" {
		res, err = r.db.ExecContext(ctx, r.q.insert, doc.ID, string(doc.Body), rev)
	} else {
		res, err = r.db.ExecContext(ctx, r.q.update, doc.ID, string(doc.Body), rev, doc.Revision)
	}
	if err != nil {
		return "", fmt.Errorf("error performing sql request: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return "", common.ErrVersionConflict
	}
	return rev, nil
}

func (r *sqlRepository) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q.remove, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Destroy empties the table in its own transaction. A repository already
// bound to a *sql.Tx runs the statement in that transaction.
func (r *sqlRepository) Destroy(ctx context.Context) error {
	destroy := func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, r.q.destroy)
		return err
	}

	var err error
	if b, ok := r.db.(dbx.TxBeginner); ok {
		err = dbx.WithTx(ctx, b, nil, destroy)
	} else {
		err = destroy(ctx, r.db)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *sqlRepository) Info(ctx context.Context) (*models.Info, error) {
	info := &models.Info{Backend: r.q.backend}
	if err := r.db.QueryRowContext(ctx, r.q.count).Scan(&info.DocCount); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return info, nil
}

// Close closes the underlying *sql.DB. Transaction-bound repositories have
// nothing to close.
func (r *sqlRepository) Close() error {
	if c, ok := r.db.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
