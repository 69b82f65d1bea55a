package importer

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/hailam/chessdb/internal/chess"
	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/codec"
	"github.com/hailam/chessdb/internal/pgn"
	"github.com/hailam/chessdb/internal/store"
)

// progressEvery caps how often Progress events are sent during a large
// import, so a multi-million-game archive doesn't flood the channel.
const progressEvery = 1000

// Progress reports import throughput. Processed counts every game attempt
// (including ones skipped for a parse failure); Elapsed is wall time since
// the import started.
type Progress struct {
	Processed int
	Elapsed   time.Duration
}

// Stats summarizes a completed import.
type Stats struct {
	GameCount   int
	PlayerCount int
	EventCount  int
	SiteCount   int
	Skipped     int
}

// Import streams archivePath (optionally bzip2/zstd compressed) into a
// freshly created database at dbPath, in bulk-pragma mode. A game whose tag
// block or starting FEN is malformed is skipped and counted, not fatal;
// every other game is committed even if its movetext only partially
// resolved (§ per-game failure tolerance). progress may be nil.
func Import(ctx context.Context, archivePath, dbPath string, progress chan<- Progress) (Stats, error) {
	r, err := OpenArchive(archivePath)
	if err != nil {
		return Stats{}, fmt.Errorf("open archive %s: %w: %w", archivePath, chessdberr.IO, err)
	}
	defer r.Close()

	pool, err := store.Open(dbPath, store.Options{Bulk: true})
	if err != nil {
		return Stats{}, err
	}
	defer pool.Close()

	if err := pool.CreateGameSchema(ctx); err != nil {
		return Stats{}, err
	}

	sc := pgn.NewScanner(r)
	batch := store.NewGameBatch(pool)

	var stats Stats
	start := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		game, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("importer: skipping unparsable game in %s: %v", archivePath, err)
			stats.Skipped++
			stats.GameCount++
			continue
		}

		rec, playerEventSite, err := deriveRecord(ctx, pool.DB(), game)
		if err != nil {
			log.Printf("importer: skipping game with bad header in %s: %v", archivePath, err)
			stats.Skipped++
			stats.GameCount++
			continue
		}

		if err := batch.Add(ctx, rec); err != nil {
			return stats, err
		}

		stats.GameCount++
		if playerEventSite.newWhite {
			stats.PlayerCount++
		}
		if playerEventSite.newBlack {
			stats.PlayerCount++
		}
		if playerEventSite.newEvent {
			stats.EventCount++
		}
		if playerEventSite.newSite {
			stats.SiteCount++
		}

		if progress != nil && stats.GameCount%progressEvery == 0 {
			progress <- Progress{Processed: stats.GameCount, Elapsed: time.Since(start)}
		}
	}

	if err := batch.Flush(ctx); err != nil {
		return stats, err
	}

	if err := pool.CreateIndexes(ctx); err != nil {
		return stats, err
	}

	if err := writeInfoCounts(ctx, pool, stats); err != nil {
		return stats, err
	}

	if progress != nil {
		progress <- Progress{Processed: stats.GameCount, Elapsed: time.Since(start)}
	}

	return stats, nil
}

type newRowFlags struct {
	newWhite, newBlack, newEvent, newSite bool
}

// deriveRecord resolves a parsed game's tags and move tree into a
// store.GameRecord: name-table ids (upserted in their own short
// transaction, separate from the batched game insert), the running-minimum
// material along the main line, the final pawn_home fingerprint, the ply
// count, and the encoded move blob.
func deriveRecord(ctx context.Context, db *sql.DB, game *pgn.Game) (store.GameRecord, newRowFlags, error) {
	var flags newRowFlags

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return store.GameRecord{}, flags, fmt.Errorf("begin header tx: %w: %w", chessdberr.Storage, err)
	}
	defer tx.Rollback()

	whiteID, wNew, err := upsertTracked(ctx, tx, "Players", game.Tags["White"])
	if err != nil {
		return store.GameRecord{}, flags, err
	}
	blackID, bNew, err := upsertTracked(ctx, tx, "Players", game.Tags["Black"])
	if err != nil {
		return store.GameRecord{}, flags, err
	}
	eventID, eNew, err := upsertTracked(ctx, tx, "Events", game.Tags["Event"])
	if err != nil {
		return store.GameRecord{}, flags, err
	}
	siteID, sNew, err := upsertTracked(ctx, tx, "Sites", game.Tags["Site"])
	if err != nil {
		return store.GameRecord{}, flags, err
	}

	if err := tx.Commit(); err != nil {
		return store.GameRecord{}, flags, fmt.Errorf("commit header tx: %w: %w", chessdberr.Storage, err)
	}
	flags = newRowFlags{newWhite: wNew, newBlack: bNew, newEvent: eNew, newSite: sNew}

	startPos := chess.NewPosition()
	if game.StartFEN != "" {
		startPos, err = chess.ParseFEN(game.StartFEN)
		if err != nil {
			return store.GameRecord{}, flags, err
		}
	}

	moves, err := codec.Encode(startPos, game.Line)
	if err != nil {
		return store.GameRecord{}, flags, err
	}

	walk := startPos.Copy()
	whiteMin, blackMin := walk.MaterialCount()
	plyCount := 0
	for n := game.Line; n != nil; n = n.Next {
		walk.MakeMove(n.Move)
		plyCount++
		w, b := walk.MaterialCount()
		if w < whiteMin {
			whiteMin = w
		}
		if b < blackMin {
			blackMin = b
		}
	}

	rec := store.GameRecord{
		WhiteID:       whiteID,
		BlackID:       blackID,
		EventID:       eventID,
		SiteID:        siteID,
		Date:          game.Tags["Date"],
		Time:          firstNonEmpty(game.Tags["Time"], game.Tags["UTCTime"]),
		Round:         game.Tags["Round"],
		Result:        game.Tags["Result"],
		WhiteElo:      atoiOrZero(game.Tags["WhiteElo"]),
		BlackElo:      atoiOrZero(game.Tags["BlackElo"]),
		WhiteMaterial: whiteMin,
		BlackMaterial: blackMin,
		PlyCount:      plyCount,
		ECO:           game.Tags["ECO"],
		TimeControl:   game.Tags["TimeControl"],
		FEN:           game.StartFEN,
		Moves:         moves,
		PawnHome:      walk.PawnHome(),
	}
	return rec, flags, nil
}

func upsertTracked(ctx context.Context, tx *sql.Tx, table, name string) (id int64, created bool, err error) {
	if name == "" {
		return 0, false, nil
	}

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&existing)
	switch {
	case err == nil:
		return existing, false, nil
	case err != sql.ErrNoRows:
		return 0, false, fmt.Errorf("lookup %s %q: %w: %w", table, name, chessdberr.Storage, err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO `+table+`(name) VALUES (?)`, name)
	if err != nil {
		return 0, false, fmt.Errorf("insert %s %q: %w: %w", table, name, chessdberr.Storage, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("insert %s %q: %w: %w", table, name, chessdberr.Storage, err)
	}
	return id, true, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func writeInfoCounts(ctx context.Context, pool *store.Pool, stats Stats) error {
	counts := map[string]int{
		"GameCount":   stats.GameCount - stats.Skipped,
		"PlayerCount": stats.PlayerCount,
		"EventCount":  stats.EventCount,
		"SiteCount":   stats.SiteCount,
	}
	for name, value := range counts {
		if err := pool.UpsertInfo(ctx, name, strconv.Itoa(value)); err != nil {
			return err
		}
	}
	// §3.1: a database internal/importer creates is always locally
	// sourced; anything online-sourced is written by its own importer,
	// never this one.
	return pool.UpsertInfo(ctx, store.DatabaseProvenanceInfoKey, store.ProvenanceLocal)
}
