package search

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/hailam/chessdb/internal/chess"
	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/codec"
	"github.com/hailam/chessdb/internal/store"
)

// checkpointEvery is the ply interval the maintenance walk samples.
const checkpointEvery = 8

const createCheckpointTable = `
CREATE TABLE IF NOT EXISTS game_position_checkpoints (
	game_id   INTEGER NOT NULL REFERENCES Games(id),
	ply       INTEGER NOT NULL,
	board_hash INTEGER NOT NULL,
	turn      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_hash ON game_position_checkpoints(board_hash);
`

// boardHash mixes the twelve piece bitboards through xxhash, independent
// of the Zobrist hash Position.Hash already carries (a different
// algorithm entirely, not just a different seed, so the two never
// collide by construction). The checkpoint table this feeds is not
// consulted by the scanner; it exists to support a future accelerated
// exact-search mode that probes by hash before falling back to full
// replay.
func boardHash(pos *chess.Position) uint64 {
	var buf [12 * 8]byte
	i := 0
	for c := chess.White; c <= chess.Black; c++ {
		for pt := chess.Pawn; pt <= chess.King; pt++ {
			binary.LittleEndian.PutUint64(buf[i:], uint64(pos.Pieces[c][pt]))
			i += 8
		}
	}
	return xxhash.Sum64(buf[:])
}

// BuildCheckpoints walks every game in pool and records a
// (game_id, ply, board_hash, turn) row every checkpointEvery plies. It is
// an optional maintenance command, safe to rerun (it truncates the table
// first).
func BuildCheckpoints(ctx context.Context, pool *store.Pool) error {
	if _, err := pool.DB().ExecContext(ctx, createCheckpointTable); err != nil {
		return fmt.Errorf("create checkpoint table: %w: %w", chessdberr.Storage, err)
	}
	if _, err := pool.DB().ExecContext(ctx, `DELETE FROM game_position_checkpoints`); err != nil {
		return fmt.Errorf("clear checkpoint table: %w: %w", chessdberr.Storage, err)
	}

	rows, err := pool.DB().QueryContext(ctx, `SELECT id, fen, moves FROM Games`)
	if err != nil {
		return fmt.Errorf("scan games for checkpoints: %w: %w", chessdberr.Storage, err)
	}
	defer rows.Close()

	tx, err := pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w: %w", chessdberr.Storage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO game_position_checkpoints(game_id, ply, board_hash, turn) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare checkpoint insert: %w: %w", chessdberr.Storage, err)
	}
	defer stmt.Close()

	for rows.Next() {
		var gameID int64
		var fen string
		var moves []byte
		if err := rows.Scan(&gameID, &fen, &moves); err != nil {
			return fmt.Errorf("scan game for checkpoints: %w: %w", chessdberr.Storage, err)
		}

		start := chess.NewPosition()
		if fen != "" {
			parsed, err := chess.ParseFEN(fen)
			if err != nil {
				continue // malformed starting fen: skip this game's checkpoints, not the whole walk
			}
			start = parsed
		}

		mainLine, err := codec.DecodeMainLine(start, moves)
		if err != nil {
			continue // corrupt blob: same tolerance as the scanner
		}

		pos := start.Copy()
		for ply, mv := range mainLine {
			pos.MakeMove(mv)
			if (ply+1)%checkpointEvery != 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx, gameID, ply+1, int64(boardHash(pos)), int(pos.SideToMove)); err != nil {
				return fmt.Errorf("insert checkpoint: %w: %w", chessdberr.Storage, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate games for checkpoints: %w: %w", chessdberr.Storage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint tx: %w: %w", chessdberr.Storage, err)
	}
	return nil
}
