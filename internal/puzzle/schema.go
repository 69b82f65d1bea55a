// Package puzzle is the tactics-puzzle catalog: schema and bulk import for
// a puzzles database, normalized theme/opening-tag junction tables for
// fast filtering, and a small bounded cache that serves random puzzles
// matching a rating range and optional tag filters.
package puzzle

import (
	"context"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/store"
)

// puzzleSchema creates the puzzles table and its two normalization
// junction tables. Indexes are deliberately excluded here — CreateIndexes
// runs once, after bulk insert, mirroring the Games import strategy.
const puzzleSchema = `
CREATE TABLE IF NOT EXISTS puzzles (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	fen              TEXT NOT NULL,
	moves            TEXT NOT NULL,
	rating           INTEGER NOT NULL DEFAULT 1500,
	rating_deviation INTEGER NOT NULL DEFAULT 350,
	popularity       INTEGER NOT NULL DEFAULT 0,
	nb_plays         INTEGER NOT NULL DEFAULT 0,
	themes           TEXT,
	game_url         TEXT,
	opening_tags     TEXT
);

CREATE TABLE IF NOT EXISTS puzzle_themes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	puzzle_id     INTEGER NOT NULL REFERENCES puzzles(id) ON DELETE CASCADE,
	theme         TEXT NOT NULL,
	friendly_name TEXT
);

CREATE TABLE IF NOT EXISTS puzzle_opening_tags (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	puzzle_id     INTEGER NOT NULL REFERENCES puzzles(id) ON DELETE CASCADE,
	opening_tag   TEXT NOT NULL,
	friendly_name TEXT
);
`

// puzzleIndexes is run once bulk insertion and normalized-table population
// are both finished.
var puzzleIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_puzzles_rating ON puzzles(rating)`,
	`CREATE INDEX IF NOT EXISTS idx_puzzle_themes_theme ON puzzle_themes(theme)`,
	`CREATE INDEX IF NOT EXISTS idx_puzzle_themes_puzzle ON puzzle_themes(puzzle_id)`,
	`CREATE INDEX IF NOT EXISTS idx_puzzle_opening_tags_tag ON puzzle_opening_tags(opening_tag)`,
	`CREATE INDEX IF NOT EXISTS idx_puzzle_opening_tags_puzzle ON puzzle_opening_tags(puzzle_id)`,
}

// Puzzle is one row of the puzzles table.
type Puzzle struct {
	ID              int64
	FEN             string
	Moves           string
	Rating          int
	RatingDeviation int
	Popularity      int
	NbPlays         int
	Themes          string
	GameURL         string
	OpeningTags     string
}

// OpenBulk opens (creating if absent) a puzzle database in bulk-import
// mode: WAL journal, normal sync, a large cache and mmap window, tuned for
// a one-shot streaming insert rather than steady-state querying.
func OpenBulk(path string) (*store.Pool, error) {
	p, err := store.Open(path, store.Options{WAL: true})
	if err != nil {
		return nil, err
	}
	if _, err := p.DB().Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -128000;
		PRAGMA temp_store = MEMORY;
		PRAGMA mmap_size = 536870912;
	`); err != nil {
		p.Close()
		return nil, fmt.Errorf("tune puzzle db for bulk import: %w: %w", chessdberr.Storage, err)
	}
	if _, err := p.DB().Exec(puzzleSchema); err != nil {
		p.Close()
		return nil, fmt.Errorf("create puzzle schema: %w: %w", chessdberr.Storage, err)
	}
	return p, nil
}

// CreateIndexes builds the puzzle index set. Call once, after bulk insert
// and normalized-table population have both finished.
func CreateIndexes(ctx context.Context, pool *store.Pool) error {
	for _, stmt := range puzzleIndexes {
		if _, err := pool.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create puzzle index: %w: %w", chessdberr.Storage, err)
		}
	}
	return nil
}

// HasNormalizedTables reports whether puzzle_themes and
// puzzle_opening_tags both already exist in the database at path's pool.
func HasNormalizedTables(ctx context.Context, pool *store.Pool) (bool, error) {
	var count int
	err := pool.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('puzzle_themes', 'puzzle_opening_tags')
	`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check normalized tables: %w: %w", chessdberr.Storage, err)
	}
	return count == 2, nil
}
