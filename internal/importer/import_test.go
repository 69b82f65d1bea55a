package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hailam/chessdb/internal/store"
)

const samplePGN = `[Event "Test Open"]
[Site "Somewhere"]
[Date "2024.01.01"]
[Round "1"]
[White "Alice"]
[Black "Bob"]
[Result "1-0"]
[WhiteElo "2400"]
[BlackElo "2200"]

1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 1-0

[Event "Test Open"]
[Site "Somewhere"]
[Date "2024.01.02"]
[Round "2"]
[White "Bob"]
[Black "Carol"]
[Result "0-1"]

1. d4 d5 2. c4 e6 0-1
`

func writeArchive(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.pgn")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportPlainPGN(t *testing.T) {
	archive := writeArchive(t, samplePGN)
	dbPath := filepath.Join(t.TempDir(), "out.db3")

	progress := make(chan Progress, 16)
	stats, err := Import(context.Background(), archive, dbPath, progress)
	close(progress)
	require.NoError(t, err)
	require.Equal(t, 2, stats.GameCount)
	require.Zero(t, stats.Skipped)

	pool, err := store.Open(dbPath, store.Options{})
	require.NoError(t, err)
	defer pool.Close()

	var count int
	require.NoError(t, pool.DB().QueryRow(`SELECT COUNT(*) FROM Games`).Scan(&count))
	require.Equal(t, 2, count)

	var plyCount int
	require.NoError(t, pool.DB().QueryRow(
		`SELECT ply_count FROM Games WHERE white_elo = 2400`).Scan(&plyCount))
	require.Equal(t, 6, plyCount)

	value, ok, err := pool.GetInfo(context.Background(), "GameCount")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", value)

	provenance, ok, err := pool.GetInfo(context.Background(), store.DatabaseProvenanceInfoKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, store.ProvenanceLocal, provenance)

	// Bob played both as black and white, so Players only grew by three,
	// not four.
	var playerCount int
	require.NoError(t, pool.DB().QueryRow(`SELECT COUNT(*) FROM Players WHERE id != 0`).Scan(&playerCount))
	require.Equal(t, 3, playerCount)
}

func TestImportSkipsUnparsableGameButContinues(t *testing.T) {
	archive := writeArchive(t, `[Event "Bad FEN"]
[FEN "not a fen"]
[SetUp "1"]

1. e4 *

[Event "Good"]
[Result "1-0"]

1. e4 e5 1-0
`)
	dbPath := filepath.Join(t.TempDir(), "out.db3")

	stats, err := Import(context.Background(), archive, dbPath, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 2, stats.GameCount)

	pool, err := store.Open(dbPath, store.Options{})
	require.NoError(t, err)
	defer pool.Close()

	var count int
	require.NoError(t, pool.DB().QueryRow(`SELECT COUNT(*) FROM Games`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestImportCreatesIndexes(t *testing.T) {
	archive := writeArchive(t, samplePGN)
	dbPath := filepath.Join(t.TempDir(), "out.db3")

	_, err := Import(context.Background(), archive, dbPath, nil)
	require.NoError(t, err)

	pool, err := store.Open(dbPath, store.Options{})
	require.NoError(t, err)
	defer pool.Close()

	var name string
	err = pool.DB().QueryRow(
		`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_games_pawn_home'`).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "idx_games_pawn_home", name)
}
