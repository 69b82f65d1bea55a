package puzzle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/store"
)

func seedPuzzles(t *testing.T, pool *store.Pool, rows []Puzzle) {
	t.Helper()
	require.NoError(t, insertPuzzleBatch(context.Background(), pool, rows))
	require.NoError(t, PopulateNormalizedTables(context.Background(), pool))
	require.NoError(t, CreateIndexes(context.Background(), pool))
}

func openTestPuzzlePool(t *testing.T) *store.Pool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "puzzles.db3")
	pool, err := OpenBulk(path)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

var sampleRows = []Puzzle{
	{FEN: "startpos-1", Moves: "e4 e5", Rating: 1200, Themes: "fork opening", OpeningTags: "sicilian open"},
	{FEN: "startpos-2", Moves: "d4 d5", Rating: 1800, Themes: "pin middlegame", OpeningTags: "queensgambit accepted"},
	{FEN: "startpos-3", Moves: "c4 c5", Rating: 2200, Themes: "skewer endgame", OpeningTags: "english symmetrical"},
}

func TestPopulateNormalizedTablesSplitsThemesAndFirstTagToken(t *testing.T) {
	pool := openTestPuzzlePool(t)
	seedPuzzles(t, pool, sampleRows)

	var themeCount int
	require.NoError(t, pool.DB().QueryRow(`SELECT COUNT(*) FROM puzzle_themes WHERE theme = 'fork'`).Scan(&themeCount))
	require.Equal(t, 1, themeCount)

	var tag string
	require.NoError(t, pool.DB().QueryRow(`SELECT opening_tag FROM puzzle_opening_tags WHERE puzzle_id = (SELECT id FROM puzzles WHERE fen = 'startpos-1')`).Scan(&tag))
	require.Equal(t, "sicilian", tag)
}

func TestSampleWindowJoinedAppliesThemeAndRatingFilters(t *testing.T) {
	pool := openTestPuzzlePool(t)
	seedPuzzles(t, pool, sampleRows)

	got, err := sampleWindow(context.Background(), pool, Filter{
		MinRating: 0, MaxRating: 3000, Themes: []string{"pin"},
	}, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "startpos-2", got[0].FEN)
}

func TestSampleWindowPlainFallsBackWithoutTagFilters(t *testing.T) {
	pool := openTestPuzzlePool(t)
	seedPuzzles(t, pool, sampleRows)

	got, err := sampleWindow(context.Background(), pool, Filter{MinRating: 1500, MaxRating: 3000}, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestCacheNextReturnsNoPuzzlesOnEmptyPool(t *testing.T) {
	pool := openTestPuzzlePool(t)
	require.NoError(t, CreateIndexes(context.Background(), pool))

	c := NewCache()
	_, err := c.Next(context.Background(), pool, Filter{MinRating: 0, MaxRating: 3000})
	require.ErrorIs(t, err, chessdberr.NoPuzzles)
}

func TestCacheNextServesEveryRowExactlyOnceWithinAWindow(t *testing.T) {
	pool := openTestPuzzlePool(t)
	seedPuzzles(t, pool, sampleRows)

	c := NewCache()
	filter := Filter{MinRating: 0, MaxRating: 3000}

	seen := map[string]bool{}
	for i := 0; i < len(sampleRows); i++ {
		p, err := c.Next(context.Background(), pool, filter)
		require.NoError(t, err)
		seen[p.FEN] = true
	}
	require.Len(t, seen, len(sampleRows))
}

func TestGetThemesGroupsByCategory(t *testing.T) {
	pool := openTestPuzzlePool(t)
	seedPuzzles(t, pool, sampleRows)

	groups, err := GetThemes(context.Background(), pool)
	require.NoError(t, err)
	require.NotEmpty(t, groups)

	var tactics *ThemeGroup
	for i := range groups {
		if groups[i].Group == "Tactics" {
			tactics = &groups[i]
		}
	}
	require.NotNil(t, tactics)
	var values []string
	for _, item := range tactics.Items {
		values = append(values, item.Value)
	}
	require.Contains(t, values, "fork")
	require.Contains(t, values, "skewer")
}

func TestGetOpeningTagsReturnsFirstTokenOnly(t *testing.T) {
	pool := openTestPuzzlePool(t)
	seedPuzzles(t, pool, sampleRows)

	tags, err := GetOpeningTags(context.Background(), pool)
	require.NoError(t, err)

	var values []string
	for _, tag := range tags {
		values = append(values, tag.Value)
	}
	require.Contains(t, values, "sicilian")
	require.Contains(t, values, "queensgambit")
	require.NotContains(t, values, "open")
}
