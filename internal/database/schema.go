// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS interactions (
		user_id BIGINT NOT NULL,
		item_id BIGINT NOT NULL,
		weight  DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		item_id BIGINT NOT NULL,
		title   VARCHAR NOT NULL
	)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
