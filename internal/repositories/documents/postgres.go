package documents

import "github.com/dmitrijs2005/tokenkeeper/internal/dbx"

var postgresQueries = sqlQueries{
	backend: "postgres",
	get: `
		SELECT body, rev
		FROM token_documents
		WHERE id = $1
	`,
	insert: `
		INSERT INTO token_documents (id, body, rev)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`,
	update: `
		UPDATE token_documents
		SET body = $2, rev = $3, updated_at = now()
		WHERE id = $1 AND rev = $4
	`,
	remove: `
		DELETE FROM token_documents
		WHERE id = $1
	`,
	destroy: `TRUNCATE TABLE token_documents`,
	count:   `SELECT COUNT(*) FROM token_documents`,
}

// PostgresRepository stores documents as JSONB rows, using the rev column for
// conditional replaces.
type PostgresRepository struct {
	sqlRepository
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{sqlRepository{db: db, q: postgresQueries}}
}
