package resultcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hailam/chessdb/internal/search"
)

func TestLookupMissReturnsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position_cache.db3")
	pool, err := Open(path)
	require.NoError(t, err)
	defer pool.Close()

	_, ok, err := Lookup(context.Background(), pool, "startpos", "/tmp/games.db3")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreThenLookupRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position_cache.db3")
	pool, err := Open(path)
	require.NoError(t, err)
	defer pool.Close()

	want := &search.Result{
		Continuations: []search.ContinuationStat{
			{Move: "e5", WhiteWins: 3, Draws: 1, BlackWins: 2},
			{Move: "c5", WhiteWins: 1, Draws: 0, BlackWins: 0},
		},
		SampleIDs: []int64{10, 20, 30},
	}

	dbPath := filepath.Join(t.TempDir(), "games.db3")
	Store(context.Background(), pool, "startpos", dbPath, want)

	got, ok, err := Lookup(context.Background(), pool, "startpos", dbPath)
	require.NoError(t, err)
	require.True(t, ok)
	require.ElementsMatch(t, want.Continuations, got.Continuations)
	require.Equal(t, want.SampleIDs, got.SampleIDs)
}

func TestStoreOverwritesPriorEntryForSameKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position_cache.db3")
	pool, err := Open(path)
	require.NoError(t, err)
	defer pool.Close()

	dbPath := filepath.Join(t.TempDir(), "games.db3")
	Store(context.Background(), pool, "startpos", dbPath, &search.Result{
		Continuations: []search.ContinuationStat{{Move: "e5", WhiteWins: 1}},
		SampleIDs:     []int64{1},
	})
	Store(context.Background(), pool, "startpos", dbPath, &search.Result{
		Continuations: []search.ContinuationStat{{Move: "c5", WhiteWins: 9}},
		SampleIDs:     []int64{2, 3},
	})

	got, ok, err := Lookup(context.Background(), pool, "startpos", dbPath)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Continuations, 1)
	require.Equal(t, "c5", got.Continuations[0].Move)
	require.Equal(t, []int64{2, 3}, got.SampleIDs)
}

func TestDropDatabaseRemovesAllEntriesForPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position_cache.db3")
	pool, err := Open(path)
	require.NoError(t, err)
	defer pool.Close()

	dbPath, err := Canonicalize(filepath.Join(t.TempDir(), "games.db3"))
	require.NoError(t, err)

	Store(context.Background(), pool, "startpos", dbPath, &search.Result{SampleIDs: []int64{1}})
	Store(context.Background(), pool, "after-e4", dbPath, &search.Result{SampleIDs: []int64{2}})

	require.NoError(t, DropDatabase(context.Background(), pool, dbPath))

	_, ok, err := Lookup(context.Background(), pool, "startpos", dbPath)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = Lookup(context.Background(), pool, "after-e4", dbPath)
	require.NoError(t, err)
	require.False(t, ok)
}
