package documents

import "github.com/dmitrijs2005/tokenkeeper/internal/dbx"

var sqliteQueries = sqlQueries{
	backend: "sqlite",
	get:     `SELECT body, rev FROM token_documents WHERE id = ?`,
	insert: `
		INSERT INTO token_documents (id, body, rev) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
	update: `
		UPDATE token_documents SET body = ?2, rev = ?3, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?1 AND rev = ?4
	`,
	remove:  `DELETE FROM token_documents WHERE id = ?`,
	destroy: `DELETE FROM token_documents`,
	count:   `SELECT COUNT(*) FROM token_documents`,
}

// SQLiteRepository is the embedded, file-backed variant of the SQL repository.
type SQLiteRepository struct {
	sqlRepository
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{sqlRepository{db: db, q: sqliteQueries}}
}
