// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tomtom215/alsrec/internal/logging"
)

// Item is a catalog entry.
type Item struct {
	ItemID int64  `json:"item_id"`
	Title  string `json:"title"`
}

// ImportItemsCSV replaces the items table with the rows of the CSV at path.
// Duplicate ids keep a single row.
func (db *DB) ImportItemsCSV(ctx context.Context, path string) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("items csv: %w", err)
	}
	query := fmt.Sprintf(`
		INSERT INTO items (item_id, title)
		SELECT DISTINCT ON (id) id, title FROM (
			SELECT CAST(%[1]s AS BIGINT) AS id, CAST(%[2]s AS VARCHAR) AS title
			FROM read_csv_auto(%[3]s, header = true)
			WHERE %[1]s IS NOT NULL AND %[2]s IS NOT NULL
		)
		ORDER BY id
	`, quoteIdent(db.cfg.ItemIDColumn), quoteIdent(db.cfg.TitleColumn), quoteLiteral(path))

	n, err := db.replaceTable(ctx, "items", query)
	if err != nil {
		return 0, fmt.Errorf("import items: %w", err)
	}
	logging.Info().Str("path", path).Int64("rows", n).Msg("imported items")
	return n, nil
}

// UpsertItems inserts or replaces items.
func (db *DB) UpsertItems(ctx context.Context, items []Item) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE item_id = ?`, it.ItemID); err != nil {
			return fmt.Errorf("replace item %d: %w", it.ItemID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO items (item_id, title) VALUES (?, ?)`, it.ItemID, it.Title); err != nil {
			return fmt.Errorf("insert item %d: %w", it.ItemID, err)
		}
	}
	return tx.Commit()
}

// ItemTitle returns the title of id, or ErrNotFound.
func (db *DB) ItemTitle(ctx context.Context, id int64) (string, error) {
	var title string
	err := db.conn.QueryRowContext(ctx, `SELECT title FROM items WHERE item_id = ?`, id).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("query item title: %w", err)
	}
	return title, nil
}

// ItemTitles returns titles for the ids that have one.
func (db *DB) ItemTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for n, id := range ids {
		args[n] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT item_id, title FROM items WHERE item_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query item titles: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out[id] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
