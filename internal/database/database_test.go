// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/alsrec/internal/config"
	"github.com/tomtom215/alsrec/internal/recommend/als"
)

func testDataConfig() *config.DataConfig {
	return &config.DataConfig{
		UserColumn:   "userId",
		ItemColumn:   "movieId",
		WeightColumn: "rating",
		ItemIDColumn: "movieId",
		TitleColumn:  "title",
	}
}

func setupTestDB(t *testing.T, cfg *config.DataConfig) *DB {
	t.Helper()
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const ratingsCSV = `userId,movieId,rating,timestamp
1,10,4.0,964982703
1,20,0.5,964981247
2,20,5.0,964982224
2,30,3.5,964983815
3,30,1.0,964982931
3,40,4.5,964982400
`

const moviesCSV = `movieId,title,genres
10,Toy Story (1995),Adventure|Animation
20,Jumanji (1995),Adventure|Children
30,Grumpier Old Men (1995),Comedy|Romance
40,Toy Soldiers (1991),Action|Drama
40,Toy Soldiers duplicate,Action
`

func TestOpen_FileBacked(t *testing.T) {
	t.Parallel()
	cfg := testDataConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "nested", "als.duckdb")

	db := setupTestDB(t, cfg)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(cfg.DatabasePath)); err != nil {
		t.Errorf("database directory not created: %v", err)
	}
}

func TestImportInteractionsCSV(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := writeFile(t, "ratings.csv", ratingsCSV)

	tests := []struct {
		name      string
		modify    func(*config.DataConfig)
		wantRows  int64
		wantFirst als.InteractionRecord
	}{
		{
			name:      "all rows",
			modify:    func(*config.DataConfig) {},
			wantRows:  6,
			wantFirst: als.InteractionRecord{UserID: 1, ItemID: 10, Weight: 4},
		},
		{
			name:      "min weight",
			modify:    func(c *config.DataConfig) { c.MinWeight = 3.5 },
			wantRows:  4,
			wantFirst: als.InteractionRecord{UserID: 1, ItemID: 10, Weight: 4},
		},
		{
			name:      "implicit binary",
			modify:    func(c *config.DataConfig) { c.WeightColumn = "" },
			wantRows:  6,
			wantFirst: als.InteractionRecord{UserID: 1, ItemID: 10, Weight: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testDataConfig()
			tt.modify(cfg)
			db := setupTestDB(t, cfg)

			n, err := db.ImportInteractionsCSV(ctx, path)
			if err != nil {
				t.Fatalf("ImportInteractionsCSV() error = %v", err)
			}
			if n != tt.wantRows {
				t.Errorf("imported %d rows, want %d", n, tt.wantRows)
			}
			records, err := db.GetInteractions(ctx)
			if err != nil {
				t.Fatalf("GetInteractions() error = %v", err)
			}
			if int64(len(records)) != tt.wantRows {
				t.Fatalf("GetInteractions() returned %d rows, want %d", len(records), tt.wantRows)
			}
			if records[0] != tt.wantFirst {
				t.Errorf("first record = %+v, want %+v", records[0], tt.wantFirst)
			}
		})
	}
}

func TestImportInteractionsCSV_Replaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t, testDataConfig())

	if err := db.InsertInteractions(ctx, []als.InteractionRecord{{UserID: 99, ItemID: 99, Weight: 1}}); err != nil {
		t.Fatalf("InsertInteractions() error = %v", err)
	}
	if _, err := db.ImportInteractionsCSV(ctx, writeFile(t, "ratings.csv", ratingsCSV)); err != nil {
		t.Fatalf("ImportInteractionsCSV() error = %v", err)
	}
	stats, err := db.CountInteractions(ctx)
	if err != nil {
		t.Fatalf("CountInteractions() error = %v", err)
	}
	want := InteractionStats{Rows: 6, Users: 3, Items: 4}
	if stats != want {
		t.Errorf("CountInteractions() = %+v, want %+v", stats, want)
	}

	if _, err := db.ImportInteractionsCSV(ctx, filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("ImportInteractionsCSV() with missing file succeeded")
	}
}

func TestInsertAndGetInteractions_Order(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t, testDataConfig())

	in := []als.InteractionRecord{
		{UserID: 5, ItemID: 1, Weight: 2},
		{UserID: 1, ItemID: 7, Weight: 1},
		{UserID: 5, ItemID: 1, Weight: 3},
	}
	if err := db.InsertInteractions(ctx, in); err != nil {
		t.Fatalf("InsertInteractions() error = %v", err)
	}
	got, err := db.GetInteractions(ctx)
	if err != nil {
		t.Fatalf("GetInteractions() error = %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("GetInteractions() = %v, want %v", got, in)
	}
	for n := range in {
		if got[n] != in[n] {
			t.Errorf("record %d = %+v, want %+v (insertion order)", n, got[n], in[n])
		}
	}
}

func TestItems(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t, testDataConfig())

	n, err := db.ImportItemsCSV(ctx, writeFile(t, "movies.csv", moviesCSV))
	if err != nil {
		t.Fatalf("ImportItemsCSV() error = %v", err)
	}
	if n != 4 {
		t.Errorf("imported %d items, want 4", n)
	}

	title, err := db.ItemTitle(ctx, 20)
	if err != nil || title != "Jumanji (1995)" {
		t.Errorf("ItemTitle(20) = %q, %v", title, err)
	}
	if _, err := db.ItemTitle(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("ItemTitle(999) error = %v, want ErrNotFound", err)
	}

	if err := db.UpsertItems(ctx, []Item{{ItemID: 20, Title: "Jumanji"}, {ItemID: 50, Title: "Heat (1995)"}}); err != nil {
		t.Fatalf("UpsertItems() error = %v", err)
	}
	titles, err := db.ItemTitles(ctx, []int64{20, 50, 777})
	if err != nil {
		t.Fatalf("ItemTitles() error = %v", err)
	}
	if len(titles) != 2 || titles[20] != "Jumanji" || titles[50] != "Heat (1995)" {
		t.Errorf("ItemTitles() = %v", titles)
	}
	empty, err := db.ItemTitles(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("ItemTitles(nil) = %v, %v", empty, err)
	}
}

func TestResolveTitle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t, testDataConfig())
	if _, err := db.ImportItemsCSV(ctx, writeFile(t, "movies.csv", moviesCSV)); err != nil {
		t.Fatalf("ImportItemsCSV() error = %v", err)
	}
	if err := db.UpsertItems(ctx, []Item{{ItemID: 60, Title: "100% Wolf"}, {ItemID: 61, Title: "1000 Wolves"}}); err != nil {
		t.Fatal(err)
	}

	t.Run("substring ranks first", func(t *testing.T) {
		got, err := db.ResolveTitle(ctx, "toy", 10)
		if err != nil {
			t.Fatalf("ResolveTitle() error = %v", err)
		}
		if len(got) < 2 {
			t.Fatalf("ResolveTitle(toy) = %v, want both Toy titles", got)
		}
		for _, m := range got[:2] {
			if !m.Substring || (m.ItemID != 10 && m.ItemID != 40) {
				t.Errorf("top match %+v is not a Toy title substring hit", m)
			}
		}
	})

	t.Run("fuzzy", func(t *testing.T) {
		got, err := db.ResolveTitle(ctx, "Jumanjii (1995)", 1)
		if err != nil {
			t.Fatalf("ResolveTitle() error = %v", err)
		}
		if len(got) != 1 || got[0].ItemID != 20 || got[0].Substring {
			t.Errorf("ResolveTitle(misspelled) = %+v, want fuzzy hit on 20", got)
		}
		if got[0].Similarity < DefaultMinSimilarity || got[0].Similarity > 1 {
			t.Errorf("similarity = %v out of range", got[0].Similarity)
		}
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		got, err := db.ResolveTitle(ctx, "100%", 10)
		if err != nil {
			t.Fatalf("ResolveTitle() error = %v", err)
		}
		if len(got) == 0 || got[0].ItemID != 60 || !got[0].Substring {
			t.Errorf("ResolveTitle(100%%) = %+v, want item 60 first", got)
		}
		for _, m := range got {
			if m.ItemID == 61 && m.Substring {
				t.Errorf("%% matched as a wildcard: %+v", m)
			}
		}
	})

	t.Run("empty query", func(t *testing.T) {
		got, err := db.ResolveTitle(ctx, "   ", 10)
		if err != nil || got != nil {
			t.Errorf("ResolveTitle(blank) = %v, %v", got, err)
		}
	})

	t.Run("no match", func(t *testing.T) {
		got, err := db.ResolveTitle(ctx, "zzzzqqqq", 10)
		if err != nil {
			t.Fatalf("ResolveTitle() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("ResolveTitle(nonsense) = %v, want none", got)
		}
	})
}

func TestQuoting(t *testing.T) {
	t.Parallel()
	if got := quoteIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("quoteIdent() = %s", got)
	}
	if got := quoteLiteral("it's.csv"); got != "'it''s.csv'" {
		t.Errorf("quoteLiteral() = %s", got)
	}
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escapeLike() = %s", got)
	}
}
