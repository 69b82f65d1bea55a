package resultcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/search"
	"github.com/hailam/chessdb/internal/store"
)

// Canonicalize returns the absolute form of a database path, the form the
// cache keys all its entries by, so that "./games.db3" and
// "/abs/path/games.db3" hit the same row. Lookup and Store apply it
// themselves; DropDatabase compares its argument as given.
func Canonicalize(databasePath string) (string, error) {
	abs, err := filepath.Abs(databasePath)
	if err != nil {
		return "", fmt.Errorf("canonicalize %s: %w: %w", databasePath, chessdberr.IO, err)
	}
	return abs, nil
}

// Lookup returns a cached search.Result for (fen, databasePath), and
// false if no cache entry exists. It never returns an error for a plain
// cache miss; a non-nil error means the catalog itself could not be read.
func Lookup(ctx context.Context, pool *store.Pool, fen, databasePath string) (*search.Result, bool, error) {
	path, err := Canonicalize(databasePath)
	if err != nil {
		return nil, false, err
	}

	var positionID int64
	err = pool.DB().QueryRowContext(ctx,
		`SELECT id FROM position_cache WHERE fen = ? AND database_path = ?`, fen, path,
	).Scan(&positionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup position cache: %w: %w", chessdberr.Storage, err)
	}

	continuations, err := loadStats(ctx, pool, positionID)
	if err != nil {
		return nil, false, err
	}
	sampleIDs, err := loadSamples(ctx, pool, positionID)
	if err != nil {
		return nil, false, err
	}

	return &search.Result{
		Continuations: continuations,
		SampleIDs:     sampleIDs,
	}, true, nil
}

func loadStats(ctx context.Context, pool *store.Pool, positionID int64) ([]search.ContinuationStat, error) {
	rows, err := pool.DB().QueryContext(ctx,
		`SELECT move, white, draw, black FROM position_stats WHERE position_id = ?`, positionID)
	if err != nil {
		return nil, fmt.Errorf("load position stats: %w: %w", chessdberr.Storage, err)
	}
	defer rows.Close()

	var out []search.ContinuationStat
	for rows.Next() {
		var s search.ContinuationStat
		if err := rows.Scan(&s.Move, &s.WhiteWins, &s.Draws, &s.BlackWins); err != nil {
			return nil, fmt.Errorf("scan position stats: %w: %w", chessdberr.Storage, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func loadSamples(ctx context.Context, pool *store.Pool, positionID int64) ([]int64, error) {
	rows, err := pool.DB().QueryContext(ctx,
		`SELECT game_id FROM position_games WHERE position_id = ? ORDER BY game_order`, positionID)
	if err != nil {
		return nil, fmt.Errorf("load position games: %w: %w", chessdberr.Storage, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan position games: %w: %w", chessdberr.Storage, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Store persists a successful search.Result for (fen, databasePath). Per
// policy, a write failure is logged and suppressed rather than returned —
// the caller's query has already succeeded with computed results and must
// not fail just because the cache couldn't be updated.
func Store(ctx context.Context, pool *store.Pool, fen, databasePath string, result *search.Result) {
	if err := store_(ctx, pool, fen, databasePath, result); err != nil {
		log.Printf("resultcache: failed to cache result for %s: %v", databasePath, err)
	}
}

func store_(ctx context.Context, pool *store.Pool, fen, databasePath string, result *search.Result) error {
	path, err := Canonicalize(databasePath)
	if err != nil {
		return err
	}

	tx, err := pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache write: %w: %w", chessdberr.Storage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO position_cache(fen, database_path, created_at) VALUES (?, ?, ?)
			ON CONFLICT(fen, database_path) DO UPDATE SET created_at = excluded.created_at`,
		fen, path, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert position_cache: %w: %w", chessdberr.Storage, err)
	}
	// ON CONFLICT DO UPDATE doesn't report LastInsertId reliably on an
	// update path; re-read the id explicitly.
	var positionID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM position_cache WHERE fen = ? AND database_path = ?`, fen, path,
	).Scan(&positionID); err != nil {
		return fmt.Errorf("reload position_cache id: %w: %w", chessdberr.Storage, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM position_stats WHERE position_id = ?`, positionID); err != nil {
		return fmt.Errorf("clear position_stats: %w: %w", chessdberr.Storage, err)
	}
	for _, c := range result.Continuations {
		total := c.WhiteWins + c.Draws + c.BlackWins
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO position_stats(position_id, move, white, draw, black, total) VALUES (?, ?, ?, ?, ?, ?)`,
			positionID, c.Move, c.WhiteWins, c.Draws, c.BlackWins, total); err != nil {
			return fmt.Errorf("insert position_stats: %w: %w", chessdberr.Storage, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM position_games WHERE position_id = ?`, positionID); err != nil {
		return fmt.Errorf("clear position_games: %w: %w", chessdberr.Storage, err)
	}
	for i, gameID := range result.SampleIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO position_games(position_id, game_id, game_order) VALUES (?, ?, ?)`,
			positionID, gameID, i); err != nil {
			return fmt.Errorf("insert position_games: %w: %w", chessdberr.Storage, err)
		}
	}

	return tx.Commit()
}
