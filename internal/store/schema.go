package store

import (
	"context"
	"database/sql"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS dados (
	id SERIAL PRIMARY KEY,
	coluna1 TEXT,
	coluna2 TEXT,
	valor NUMERIC
)`

// EnsureSchema creates the dados table if it does not exist. An existing
// table is left untouched, whatever its shape.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.withConn(ctx, "ensure schema", func(db *sql.DB) error {
		return ensureSchema(ctx, db)
	})
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return classify("create table", err)
	}
	return nil
}
