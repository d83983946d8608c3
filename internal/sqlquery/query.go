// Package sqlquery runs one SQL statement against an SQLite database file.
package sqlquery

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Row is one result row, columns in select order.
type Row []any

// Query opens dbPath, runs query, fetches every row and closes the
// connection. The statement is executed as given; callers are responsible
// for it being safe.
func Query(ctx context.Context, dbPath, query string) ([]Row, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	out := []Row{}
	for rows.Next() {
		row := make(Row, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
