// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package database

import (
	"context"
	"fmt"
	"strings"
)

// Title search defaults.
const (
	DefaultSearchLimit   = 10
	MaxSearchLimit       = 100
	DefaultMinSimilarity = 0.8
)

// TitleMatch is a title search hit.
type TitleMatch struct {
	ItemID int64  `json:"item_id"`
	Title  string `json:"title"`

	// Similarity is the Jaro-Winkler similarity of the lowercased strings, in [0, 1].
	Similarity float64 `json:"similarity"`

	// Substring is set when the title contains the query, ignoring case.
	Substring bool `json:"substring"`
}

// escapeLike escapes LIKE wildcards so query matches literally.
func escapeLike(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(query)
}

// ResolveTitle resolves a free-text title query to catalog items. Titles
// containing the query rank first, then titles by Jaro-Winkler similarity of
// at least DefaultMinSimilarity. Ties break by ascending item id. limit is
// clamped to [1, MaxSearchLimit] with DefaultSearchLimit for <= 0.
func (db *DB) ResolveTitle(ctx context.Context, query string, limit int) ([]TitleMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	sqlQuery := `
		WITH scored AS (
			SELECT
				item_id,
				title,
				jaro_winkler_similarity(lower(title), lower(?)) AS similarity,
				title ILIKE ? ESCAPE '\' AS is_substring
			FROM items
		)
		SELECT item_id, title, similarity, is_substring
		FROM scored
		WHERE is_substring OR similarity >= ?
		ORDER BY is_substring DESC, similarity DESC, item_id ASC
		LIMIT ?
	`
	pattern := "%" + escapeLike(query) + "%"

	rows, err := db.conn.QueryContext(ctx, sqlQuery, query, pattern, DefaultMinSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("title search query failed: %w", err)
	}
	defer closeQuietly(rows)

	var out []TitleMatch
	for rows.Next() {
		var m TitleMatch
		if err := rows.Scan(&m.ItemID, &m.Title, &m.Similarity, &m.Substring); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
