// Package resultcache persists position-search results in a second,
// independent catalog database so an identical (position, database) search
// never has to re-scan. It wraps search.Engine.Search from the caller's
// side: a lookup before the scan, a write after a successful one.
package resultcache

import (
	"context"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/store"
)

// catalogSchema creates the three result-cache tables if absent. Foreign
// keys cascade so deleting a position_cache row (e.g. when a database is
// dropped) removes its stats and sample-game rows in the same statement.
const catalogSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS position_cache (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	fen           TEXT NOT NULL,
	database_path TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	UNIQUE(fen, database_path)
);

CREATE TABLE IF NOT EXISTS position_stats (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	position_id INTEGER NOT NULL REFERENCES position_cache(id) ON DELETE CASCADE,
	move        TEXT NOT NULL,
	white       INTEGER NOT NULL,
	draw        INTEGER NOT NULL,
	black       INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	UNIQUE(position_id, move)
);

CREATE TABLE IF NOT EXISTS position_games (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	position_id INTEGER NOT NULL REFERENCES position_cache(id) ON DELETE CASCADE,
	game_id     INTEGER NOT NULL,
	game_order  INTEGER NOT NULL,
	UNIQUE(position_id, game_id)
);

CREATE INDEX IF NOT EXISTS idx_position_cache_lookup ON position_cache(fen, database_path);
`

// Open opens (creating if absent) the position_cache.db3 catalog at path
// and ensures its schema exists. Unlike the Games databases, this one is
// always opened in normal (non-bulk) mode with WAL, since it's written to
// continually across the process lifetime rather than in one big import.
func Open(path string) (*store.Pool, error) {
	p, err := store.Open(path, store.Options{WAL: true})
	if err != nil {
		return nil, err
	}
	if _, err := p.DB().Exec(catalogSchema); err != nil {
		p.Close()
		return nil, fmt.Errorf("create result cache schema: %w: %w", chessdberr.Storage, err)
	}
	return p, nil
}

// DropDatabase removes every cache entry keyed to databasePath in one
// cascading transaction, triggered when the underlying Games database is
// deleted.
func DropDatabase(ctx context.Context, pool *store.Pool, databasePath string) error {
	_, err := pool.DB().ExecContext(ctx, `DELETE FROM position_cache WHERE database_path = ?`, databasePath)
	if err != nil {
		return fmt.Errorf("drop result cache entries for %s: %w: %w", databasePath, chessdberr.Storage, err)
	}
	return nil
}
