package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hailam/chessdb/internal/chess"
	"github.com/hailam/chessdb/internal/importer"
	"github.com/hailam/chessdb/internal/store"
)

const scanTestPGN = `[Event "A"]
[White "Alice"]
[Black "Bob"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 1-0

[Event "A"]
[White "Carol"]
[Black "Dave"]
[Result "0-1"]

1. d4 d5 2. c4 e6 0-1
`

func buildTestDB(t *testing.T) string {
	t.Helper()
	archive := filepath.Join(t.TempDir(), "games.pgn")
	require.NoError(t, os.WriteFile(archive, []byte(scanTestPGN), 0o644))

	dbPath := filepath.Join(t.TempDir(), "games.db3")
	_, err := importer.Import(context.Background(), archive, dbPath, nil)
	require.NoError(t, err)
	return dbPath
}

func TestEngineSearchFindsMatchingContinuation(t *testing.T) {
	dbPath := buildTestDB(t)
	registry := store.NewRegistry()
	defer registry.Drop(context.Background(), dbPath)

	engine := NewEngine(registry, NewDBCache(), DefaultPermits)

	// Target: after 1. e4 (white to move... no, black to move), reachable
	// only by the Ruy Lopez game.
	afterE4 := chess.NewPosition()
	m, err := chess.ParseSAN("e4", afterE4)
	require.NoError(t, err)
	afterE4.MakeMove(m)

	var events []Progress
	result, err := engine.Search(context.Background(), Request{
		TabID:    "tab-1",
		DBPath:   dbPath,
		Position: NewExactQuery(afterE4),
		Filter:   GameFilter{},
	}, func(p Progress) { events = append(events, p) })
	require.NoError(t, err)

	require.Len(t, result.SampleIDs, 1)
	require.Len(t, result.Continuations, 1)
	require.Equal(t, "e5", result.Continuations[0].Move)
	require.Equal(t, 1, result.Continuations[0].WhiteWins)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.True(t, last.Finished)
	require.Equal(t, 100, last.Percent)
}

func TestEngineSearchAppliesPlayerFilter(t *testing.T) {
	dbPath := buildTestDB(t)
	registry := store.NewRegistry()
	defer registry.Drop(context.Background(), dbPath)

	pool, err := registry.Get(dbPath, store.Options{})
	require.NoError(t, err)

	var carolID int64
	require.NoError(t, pool.DB().QueryRow(`SELECT id FROM Players WHERE name = 'Carol'`).Scan(&carolID))

	engine := NewEngine(registry, NewDBCache(), DefaultPermits)

	result, err := engine.Search(context.Background(), Request{
		TabID:    "tab-2",
		DBPath:   dbPath,
		Position: NewPartialQuery(PieceMask{}),
		Filter:   GameFilter{Player1: carolID},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsScanned)
}

func TestIsOnlineProvenanceDetectsSuffix(t *testing.T) {
	require.True(t, IsOnlineProvenance("alice_lichess.db3"))
	require.True(t, IsOnlineProvenance("BOB_CHESSCOM.DB3"))
	require.False(t, IsOnlineProvenance("local_games.db3"))
}

func TestResolveProvenanceFallsBackToInfoRowWhenFilenameIsAmbiguous(t *testing.T) {
	dbPath := buildTestDB(t)

	pool, err := store.Open(dbPath, store.Options{})
	require.NoError(t, err)
	defer pool.Close()

	// importer.Import always writes "local"; an ambiguous filename must
	// honor that rather than guessing online.
	require.False(t, resolveProvenance(context.Background(), pool, dbPath))

	require.NoError(t, pool.UpsertInfo(context.Background(), store.DatabaseProvenanceInfoKey, store.ProvenanceOnline))
	require.True(t, resolveProvenance(context.Background(), pool, dbPath))

	// The filename convention is authoritative and wins even over an
	// Info row that disagrees.
	require.True(t, resolveProvenance(context.Background(), pool, "someone_lichess.db3"))
}
