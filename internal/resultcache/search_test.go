package resultcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hailam/chessdb/internal/chess"
	"github.com/hailam/chessdb/internal/importer"
	"github.com/hailam/chessdb/internal/search"
	"github.com/hailam/chessdb/internal/store"
)

const cacheTestPGN = `[Event "A"]
[White "Alice"]
[Black "Bob"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 1-0
`

func buildCacheTestDB(t *testing.T) string {
	t.Helper()
	archive := filepath.Join(t.TempDir(), "games.pgn")
	require.NoError(t, os.WriteFile(archive, []byte(cacheTestPGN), 0o644))
	dbPath := filepath.Join(t.TempDir(), "games.db3")
	_, err := importer.Import(context.Background(), archive, dbPath, nil)
	require.NoError(t, err)
	return dbPath
}

func TestSearchCachedRunsScanOnMissThenHitsCacheSecondTime(t *testing.T) {
	dbPath := buildCacheTestDB(t)
	registry := store.NewRegistry()
	defer registry.Drop(context.Background(), dbPath)

	engine := search.NewEngine(registry, search.NewDBCache(), search.DefaultPermits)

	cachePath := filepath.Join(t.TempDir(), "position_cache.db3")
	cachePool, err := Open(cachePath)
	require.NoError(t, err)
	defer cachePool.Close()

	afterE4 := chess.NewPosition()
	m, err := chess.ParseSAN("e4", afterE4)
	require.NoError(t, err)
	afterE4.MakeMove(m)
	fen := afterE4.ToFEN()

	req := search.Request{
		TabID:    "tab-1",
		DBPath:   dbPath,
		Position: search.NewExactQuery(afterE4),
	}

	var firstEvents []search.Progress
	first, err := SearchCached(context.Background(), cachePool, engine, fen, req,
		func(p search.Progress) { firstEvents = append(firstEvents, p) })
	require.NoError(t, err)
	require.Len(t, first.Continuations, 1)
	require.Equal(t, "e5", first.Continuations[0].Move)
	require.NotEmpty(t, firstEvents)

	var secondEvents []search.Progress
	second, err := SearchCached(context.Background(), cachePool, engine, fen, req,
		func(p search.Progress) { secondEvents = append(secondEvents, p) })
	require.NoError(t, err)
	require.Equal(t, first.Continuations, second.Continuations)
	require.Equal(t, first.SampleIDs, second.SampleIDs)

	// A cache hit fires exactly one immediate terminal event, unlike the
	// multi-event progress stream a real scan produces.
	require.Len(t, secondEvents, 1)
	require.True(t, secondEvents[0].Finished)
	require.Equal(t, 100, secondEvents[0].Percent)
}

func TestSearchCachedSkipsCacheWhenPoolNil(t *testing.T) {
	dbPath := buildCacheTestDB(t)
	registry := store.NewRegistry()
	defer registry.Drop(context.Background(), dbPath)

	engine := search.NewEngine(registry, search.NewDBCache(), search.DefaultPermits)

	startPos := chess.NewPosition()
	req := search.Request{TabID: "tab-2", DBPath: dbPath, Position: search.NewExactQuery(startPos)}

	result, err := SearchCached(context.Background(), nil, engine, startPos.ToFEN(), req, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
}
