package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hailam/chessdb/internal/chessdberr"
)

// DatabaseProvenanceInfoKey is the Info row name recording whether a
// database was created locally (value "local") or marked as
// online-sourced (value "online"), per §3.1. internal/search falls back
// to it only when a database's filename doesn't match either online
// naming convention.
const DatabaseProvenanceInfoKey = "DatabaseProvenance"

// ProvenanceLocal and ProvenanceOnline are the two values
// DatabaseProvenanceInfoKey is ever written with.
const (
	ProvenanceLocal  = "local"
	ProvenanceOnline = "online"
)

// gameSchema creates Players, Events, Sites, Games and Info if absent.
// Indexes are intentionally not part of this statement: CreateIndexes is
// run separately, after bulk import, per the batch-then-index strategy.
const gameSchema = `
CREATE TABLE IF NOT EXISTS Players (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	elo  INTEGER
);

CREATE TABLE IF NOT EXISTS Events (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS Sites (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS Games (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	white_id       INTEGER NOT NULL REFERENCES Players(id),
	black_id       INTEGER NOT NULL REFERENCES Players(id),
	event_id       INTEGER NOT NULL REFERENCES Events(id),
	site_id        INTEGER NOT NULL REFERENCES Sites(id),
	date           TEXT,
	time           TEXT,
	round          TEXT,
	result         TEXT,
	white_elo      INTEGER,
	black_elo      INTEGER,
	white_material INTEGER NOT NULL,
	black_material INTEGER NOT NULL,
	ply_count      INTEGER NOT NULL,
	eco            TEXT,
	time_control   TEXT,
	fen            TEXT,
	moves          BLOB NOT NULL,
	pawn_home      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS Info (
	name  TEXT PRIMARY KEY,
	value TEXT
);

-- id 0 is the sentinel "tag absent" row for each name-indexed table.
INSERT OR IGNORE INTO Players(id, name) VALUES (0, '');
INSERT OR IGNORE INTO Events(id, name) VALUES (0, '');
INSERT OR IGNORE INTO Sites(id, name) VALUES (0, '');
`

// gameIndexes is run once, after a bulk import has finished, trading
// slower batch inserts (which skip them) for fast subsequent queries.
var gameIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_games_white ON Games(white_id)`,
	`CREATE INDEX IF NOT EXISTS idx_games_black ON Games(black_id)`,
	`CREATE INDEX IF NOT EXISTS idx_games_date ON Games(date)`,
	`CREATE INDEX IF NOT EXISTS idx_games_result ON Games(result)`,
	`CREATE INDEX IF NOT EXISTS idx_games_white_black ON Games(white_id, black_id)`,
	`CREATE INDEX IF NOT EXISTS idx_games_white_date ON Games(white_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_games_black_date ON Games(black_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_games_white_result ON Games(white_id, result)`,
	`CREATE INDEX IF NOT EXISTS idx_games_black_result ON Games(black_id, result)`,
	`CREATE INDEX IF NOT EXISTS idx_games_wide ON Games(white_id, black_id, date, result)`,
	`CREATE INDEX IF NOT EXISTS idx_games_white_material ON Games(white_material)`,
	`CREATE INDEX IF NOT EXISTS idx_games_black_material ON Games(black_material)`,
	`CREATE INDEX IF NOT EXISTS idx_games_pawn_home ON Games(pawn_home)`,
	`CREATE INDEX IF NOT EXISTS idx_games_material_pawn_home ON Games(white_material, black_material, pawn_home)`,
}

// CreateGameSchema creates the Players/Events/Sites/Games/Info tables if
// they don't already exist. Safe to call on every import.
func (p *Pool) CreateGameSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, gameSchema); err != nil {
		return fmt.Errorf("create game schema: %w: %w", chessdberr.Storage, err)
	}
	return nil
}

// CreateIndexes creates the full Games index set. Call once, after a bulk
// import has flushed its last batch.
func (p *Pool) CreateIndexes(ctx context.Context) error {
	for _, stmt := range gameIndexes {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w: %w", chessdberr.Storage, err)
		}
	}
	return nil
}

// UpsertInfo writes or replaces a single name/value pair in Info.
func (p *Pool) UpsertInfo(ctx context.Context, name, value string) error {
	const stmt = `INSERT INTO Info(name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`
	if _, err := p.db.ExecContext(ctx, stmt, name, value); err != nil {
		return fmt.Errorf("upsert info %s: %w: %w", name, chessdberr.Storage, err)
	}
	return nil
}

// GetInfo reads a single Info value. It returns ("", false, nil) when the
// key is absent.
func (p *Pool) GetInfo(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM Info WHERE name = ?`, name).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get info %s: %w: %w", name, chessdberr.Storage, err)
	default:
		return value, true, nil
	}
}
