package store

import (
	"context"
	"fmt"

	"github.com/hailam/chessdb/internal/chessdberr"
)

// BatchSize is the number of games committed per transaction during bulk
// import.
const BatchSize = 5000

// GameRecord is one row ready for insertion into Games. White/Black/Event/
// Site are already-resolved ids (0 meaning "tag absent").
type GameRecord struct {
	WhiteID, BlackID, EventID, SiteID int64
	Date, Time, Round, Result         string
	WhiteElo, BlackElo                int
	WhiteMaterial, BlackMaterial      int
	PlyCount                         int
	ECO, TimeControl, FEN            string
	Moves                            []byte
	PawnHome                         uint16
}

// GameBatch accumulates GameRecords and flushes them in BatchSize-sized
// transactions, matching the importer's "every 5,000 games, one commit"
// algorithm.
type GameBatch struct {
	pool    *Pool
	pending []GameRecord
}

// NewGameBatch returns an empty batch writer bound to pool.
func NewGameBatch(pool *Pool) *GameBatch {
	return &GameBatch{pool: pool, pending: make([]GameRecord, 0, BatchSize)}
}

// Add appends a record, flushing automatically once BatchSize is reached.
func (b *GameBatch) Add(ctx context.Context, rec GameRecord) error {
	b.pending = append(b.pending, rec)
	if len(b.pending) >= BatchSize {
		return b.Flush(ctx)
	}
	return nil
}

// Flush commits whatever is pending in one transaction. A transaction
// failure aborts only this batch; records already committed in prior
// batches stand.
func (b *GameBatch) Flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}

	tx, err := b.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w: %w", chessdberr.Storage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO Games(
			white_id, black_id, event_id, site_id, date, time, round, result,
			white_elo, black_elo, white_material, black_material, ply_count,
			eco, time_control, fen, moves, pawn_home
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare game insert: %w: %w", chessdberr.Storage, err)
	}
	defer stmt.Close()

	for _, rec := range b.pending {
		_, err := stmt.ExecContext(ctx,
			rec.WhiteID, rec.BlackID, rec.EventID, rec.SiteID,
			rec.Date, rec.Time, rec.Round, rec.Result,
			rec.WhiteElo, rec.BlackElo, rec.WhiteMaterial, rec.BlackMaterial, rec.PlyCount,
			rec.ECO, rec.TimeControl, rec.FEN, rec.Moves, rec.PawnHome,
		)
		if err != nil {
			return fmt.Errorf("insert game: %w: %w", chessdberr.Storage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w: %w", chessdberr.Storage, err)
	}

	b.pending = b.pending[:0]
	return nil
}

// Pending returns the number of records buffered but not yet flushed.
func (b *GameBatch) Pending() int {
	return len(b.pending)
}
