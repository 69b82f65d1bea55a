package puzzle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePuzzlePGN = `[FEN "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3"]
[Moves "f1b5"]
[Rating "1450"]
[Popularity "87"]
[NbPlays "1200"]
[Themes "opening pin"]
[OpeningTags "ruylopez"]

[FEN "8/8/8/8/8/k7/8/K6R w - - 0 1"]
[Moves "h1h3"]
[Rating "900"]
`

func TestImportPGNParsesPuzzleBlocks(t *testing.T) {
	pgnPath := filepath.Join(t.TempDir(), "puzzles.pgn")
	require.NoError(t, os.WriteFile(pgnPath, []byte(samplePuzzlePGN), 0o644))

	dbPath := filepath.Join(t.TempDir(), "puzzles.db3")
	require.NoError(t, Import(context.Background(), pgnPath, dbPath, nil))

	pool, err := OpenBulk(dbPath)
	require.NoError(t, err)
	defer pool.Close()

	var count int
	require.NoError(t, pool.DB().QueryRow(`SELECT COUNT(*) FROM puzzles`).Scan(&count))
	require.Equal(t, 2, count)

	var rating int
	require.NoError(t, pool.DB().QueryRow(`SELECT rating FROM puzzles WHERE moves = 'f1b5'`).Scan(&rating))
	require.Equal(t, 1450, rating)

	var tag string
	require.NoError(t, pool.DB().QueryRow(`SELECT opening_tag FROM puzzle_opening_tags LIMIT 1`).Scan(&tag))
	require.Equal(t, "ruylopez", tag)
}

const sampleCSV = "PuzzleId,FEN,Moves,Rating,RatingDeviation,Popularity,NbPlays,Themes,GameUrl,OpeningTags\n" +
	"00008,r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3,f1b5,1450,80,87,1200,opening pin,https://example.com/1,ruylopez open\n" +
	"00009,8/8/8/8/8/k7/8/K6R w - - 0 1,h1h3,900,75,10,50,endgame,https://example.com/2,\n"

func TestImportCSVInsertsAndNormalizes(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "puzzles.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	dbPath := filepath.Join(t.TempDir(), "puzzles.db3")
	progress := make(chan Progress, 8)
	require.NoError(t, Import(context.Background(), csvPath, dbPath, progress))
	close(progress)

	pool, err := OpenBulk(dbPath)
	require.NoError(t, err)
	defer pool.Close()

	var count int
	require.NoError(t, pool.DB().QueryRow(`SELECT COUNT(*) FROM puzzles`).Scan(&count))
	require.Equal(t, 2, count)

	var lastProgress Progress
	for p := range progress {
		lastProgress = p
	}
	require.Equal(t, 2, lastProgress.Processed)
	require.Equal(t, 2, lastProgress.Total)
}

func TestImportCopiesExistingCatalogDatabase(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "source.db3")
	pool, err := OpenBulk(srcPath)
	require.NoError(t, err)
	require.NoError(t, insertPuzzleBatch(context.Background(), pool, sampleRows))
	require.NoError(t, pool.Close())

	dbPath := filepath.Join(t.TempDir(), "copy.db3")
	require.NoError(t, Import(context.Background(), srcPath, dbPath, nil))

	copied, err := OpenBulk(dbPath)
	require.NoError(t, err)
	defer copied.Close()

	var count int
	require.NoError(t, copied.DB().QueryRow(`SELECT COUNT(*) FROM puzzles`).Scan(&count))
	require.Equal(t, len(sampleRows), count)
}

func TestImportRejectsUnsupportedExtension(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "puzzles.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("not a real puzzle file"), 0o644))

	dbPath := filepath.Join(t.TempDir(), "puzzles.db3")
	err := Import(context.Background(), srcPath, dbPath, nil)
	require.Error(t, err)
}
