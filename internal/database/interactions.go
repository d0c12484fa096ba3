// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package database

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tomtom215/alsrec/internal/logging"
	"github.com/tomtom215/alsrec/internal/recommend/als"
)

// quoteIdent quotes a SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral quotes a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ImportInteractionsCSV replaces the interactions table with the rows of the
// CSV at path. Column names come from the data config; an empty weight column
// imports every row with weight 1. Rows below MinWeight, or with missing ids,
// are skipped. Returns the number of rows imported.
func (db *DB) ImportInteractionsCSV(ctx context.Context, path string) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("interactions csv: %w", err)
	}

	weight := "1.0"
	if db.cfg.WeightColumn != "" {
		weight = "CAST(" + quoteIdent(db.cfg.WeightColumn) + " AS DOUBLE)"
	}
	query := fmt.Sprintf(`
		INSERT INTO interactions (user_id, item_id, weight)
		SELECT
			CAST(%[1]s AS BIGINT),
			CAST(%[2]s AS BIGINT),
			%[3]s AS w
		FROM read_csv_auto(%[4]s, header = true)
		WHERE %[1]s IS NOT NULL
		  AND %[2]s IS NOT NULL
		  AND %[3]s >= ?
	`, quoteIdent(db.cfg.UserColumn), quoteIdent(db.cfg.ItemColumn), weight, quoteLiteral(path))

	n, err := db.replaceTable(ctx, "interactions", query, db.cfg.MinWeight)
	if err != nil {
		return 0, fmt.Errorf("import interactions: %w", err)
	}
	logging.Info().Str("path", path).Int64("rows", n).Msg("imported interactions")
	return n, nil
}

// replaceTable deletes every row of table and runs insert in one transaction.
func (db *DB) replaceTable(ctx context.Context, table, insert string, args ...any) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	res, err := tx.ExecContext(ctx, insert, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// InsertInteractions appends records to the interactions table.
func (db *DB) InsertInteractions(ctx context.Context, records []als.InteractionRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO interactions (user_id, item_id, weight) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.UserID, r.ItemID, r.Weight); err != nil {
			return fmt.Errorf("insert interaction (%d, %d): %w", r.UserID, r.ItemID, err)
		}
	}
	return tx.Commit()
}

// GetInteractions returns every stored interaction in insertion order. The
// caller combines duplicates.
func (db *DB) GetInteractions(ctx context.Context) ([]als.InteractionRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT user_id, item_id, weight FROM interactions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer closeQuietly(rows)

	var out []als.InteractionRecord
	for rows.Next() {
		var r als.InteractionRecord
		if err := rows.Scan(&r.UserID, &r.ItemID, &r.Weight); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// InteractionStats summarizes the interactions table.
type InteractionStats struct {
	Rows  int64 `json:"rows"`
	Users int64 `json:"users"`
	Items int64 `json:"items"`
}

// CountInteractions returns row and distinct entity counts.
func (db *DB) CountInteractions(ctx context.Context) (InteractionStats, error) {
	var s InteractionStats
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT item_id) FROM interactions`,
	).Scan(&s.Rows, &s.Users, &s.Items)
	if err != nil {
		return s, fmt.Errorf("count interactions: %w", err)
	}
	return s, nil
}
