package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dados/internal/core"
)

// maxParams is PostgreSQL's limit on bind parameters per statement.
const maxParams = 65535

const (
	deleteAllSQL = `DELETE FROM dados`
	selectAllSQL = `SELECT id, coluna1, coluna2, valor FROM dados ORDER BY id`
	insertPrefix = `INSERT INTO dados (coluna1, coluna2, valor) VALUES `
)

// ReplaceAll provisions the schema and replaces the table contents with
// rows, preserving their order. The delete and every insert run in one
// transaction: on any failure the previous contents remain.
func (s *Store) ReplaceAll(ctx context.Context, rows []core.Record) (int64, error) {
	var inserted int64

	err := s.withConn(ctx, "replace", func(db *sql.DB) error {
		if err := ensureSchema(ctx, db); err != nil {
			return err
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return classify("begin transaction", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, deleteAllSQL); err != nil {
			return classify("delete rows", err)
		}

		for start := 0; start < len(rows); start += s.batchSize {
			end := min(start+s.batchSize, len(rows))

			query, args := insertBatch(rows[start:end])
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return classify(fmt.Sprintf("insert rows %d-%d", start+1, end), err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += n
			} else {
				inserted += int64(end - start)
			}
		}

		if err := tx.Commit(); err != nil {
			return classify("commit", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// FetchAll returns the table contents ordered by id. A missing table reads
// as an empty one.
func (s *Store) FetchAll(ctx context.Context) (core.Table, error) {
	var rows []core.Record

	err := s.withConn(ctx, "fetch", func(db *sql.DB) error {
		result, err := db.QueryContext(ctx, selectAllSQL)
		if err != nil {
			if isUndefinedTable(err) {
				return nil
			}
			return classify("select rows", err)
		}
		defer result.Close()

		for result.Next() {
			rec, err := scanRecord(result)
			if err != nil {
				return classify("scan row", err)
			}
			rows = append(rows, rec)
		}
		return classify("read rows", result.Err())
	})
	if err != nil {
		return core.Table{}, err
	}

	return core.NewTable(rows), nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row. NULL text becomes "" and NULL valor becomes 0.
func scanRecord(sc scanner) (core.Record, error) {
	var (
		rec   core.Record
		col1  sql.NullString
		col2  sql.NullString
		valor sql.NullFloat64
	)
	if err := sc.Scan(&rec.ID, &col1, &col2, &valor); err != nil {
		return core.Record{}, err
	}
	rec.Column1 = col1.String
	rec.Column2 = col2.String
	rec.Value = valor.Float64
	return rec, nil
}

// insertBatch builds one multi-row INSERT with positional parameters.
func insertBatch(rows []core.Record) (string, []any) {
	var b strings.Builder
	b.WriteString(insertPrefix)

	args := make([]any, 0, len(rows)*core.ExpectedFields)
	for i, rec := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * core.ExpectedFields
		fmt.Fprintf(&b, "($%d, $%d, $%d)", n+1, n+2, n+3)
		args = append(args, rec.Column1, rec.Column2, rec.Value)
	}
	return b.String(), args
}

func clampBatch(n int) int {
	limit := maxParams / core.ExpectedFields
	switch {
	case n <= 0:
		return 1000
	case n > limit:
		return limit
	default:
		return n
	}
}
