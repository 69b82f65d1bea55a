// Command chessdb is the CLI front door for the game database: import a
// PGN archive, search a position across an imported database, import a
// puzzle catalog, and pull a random puzzle, all against the app-data
// layout internal/appdata bootstraps.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/hailam/chessdb/internal/appdata"
	"github.com/hailam/chessdb/internal/chess"
	"github.com/hailam/chessdb/internal/importer"
	"github.com/hailam/chessdb/internal/puzzle"
	"github.com/hailam/chessdb/internal/resultcache"
	"github.com/hailam/chessdb/internal/search"
	"github.com/hailam/chessdb/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if _, err := appdata.EnsureLayout(); err != nil {
		log.Fatal(err)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "import":
		err = runImport(args)
	case "search":
		err = runSearch(args)
	case "import-puzzles":
		err = runImportPuzzles(args)
	case "puzzle":
		err = runPuzzle(args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: chessdb <command> [flags]

commands:
  import          -archive PATH -db PATH          import a PGN archive into a game database
  search          -db PATH -fen FEN                scan a database for a position
  import-puzzles  -source PATH -db PATH            import a puzzle catalog
  puzzle          -db PATH [-min N] [-max N]        draw one random puzzle`)
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	archivePath := fs.String("archive", "", "PGN archive to import (.pgn, .pgn.bz2, .pgn.zst)")
	dbPath := fs.String("db", "", "destination game database path")
	fs.Parse(args)

	if *archivePath == "" || *dbPath == "" {
		return fmt.Errorf("import: -archive and -db are required")
	}

	progress := make(chan importer.Progress, 16)
	start := time.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			log.Printf("import: %s games processed (%s elapsed)",
				humanize.Comma(int64(p.Processed)), p.Elapsed.Round(time.Second))
		}
	}()

	stats, err := importer.Import(context.Background(), *archivePath, *dbPath, progress)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	log.Printf("import: done in %s — %s games, %s players, %s events, %s sites, %d skipped",
		time.Since(start).Round(time.Second),
		humanize.Comma(int64(stats.GameCount)), humanize.Comma(int64(stats.PlayerCount)),
		humanize.Comma(int64(stats.EventCount)), humanize.Comma(int64(stats.SiteCount)),
		stats.Skipped)
	return nil
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	dbPath := fs.String("db", "", "game database to search")
	fen := fs.String("fen", "", "target FEN (exact-match search)")
	cachePath := fs.String("cache", "", "result-cache database path (default: alongside -db)")
	limit := fs.Int("limit", 10, "game-details limit")
	fs.Parse(args)

	if *dbPath == "" || *fen == "" {
		return fmt.Errorf("search: -db and -fen are required")
	}
	if *cachePath == "" {
		*cachePath = filepath.Join(filepath.Dir(*dbPath), "position_cache.db3")
	}

	target, err := chess.ParseFEN(*fen)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	queryFEN := target.ToFEN()

	state, err := appdata.NewState(*cachePath)
	if err != nil {
		return err
	}
	defer state.Close()

	if exists, ok := state.PositionExistsHint(queryFEN, *dbPath); ok && !exists {
		log.Printf("search: line cache says this position has never occurred in %s, skipping scan", *dbPath)
		return nil
	}

	req := search.Request{
		TabID:    "cli",
		DBPath:   *dbPath,
		Position: search.NewExactQuery(target),
		Filter:   search.GameFilter{GameDetailsLimit: *limit},
	}

	start := time.Now()
	result, err := resultcache.SearchCached(context.Background(), state.ResultCache, state.Engine, queryFEN, req,
		func(p search.Progress) {
			if p.Finished {
				return
			}
			log.Printf("search: %d%%", p.Percent)
		})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	state.SetPositionExistsHint(queryFEN, *dbPath, len(result.SampleIDs) > 0)

	log.Printf("search: %s rows scanned in %s", humanize.Comma(int64(result.RowsScanned)), time.Since(start).Round(time.Millisecond))
	for _, c := range result.Continuations {
		total := c.WhiteWins + c.Draws + c.BlackWins
		fmt.Printf("%-8s  +%-5d =%-5d -%-5d  (%d games)\n", c.Move, c.WhiteWins, c.Draws, c.BlackWins, total)
	}

	pool, err := state.Registry.Get(*dbPath, store.Options{})
	if err != nil {
		return err
	}
	details, err := search.ReloadDetails(context.Background(), pool, result.SampleIDs, *limit, search.SortByDate, true)
	if err != nil {
		return err
	}
	for _, d := range details {
		fmt.Printf("  #%d %s vs %s, %s, %s\n", d.ID, d.White, d.Black, d.Event, d.Result)
	}
	return nil
}

func runImportPuzzles(args []string) error {
	fs := flag.NewFlagSet("import-puzzles", flag.ExitOnError)
	sourcePath := fs.String("source", "", "puzzle source file (.db3, .pgn, .pgn.zst, .csv, .csv.zst)")
	dbPath := fs.String("db", "", "destination puzzle database path")
	fs.Parse(args)

	if *sourcePath == "" || *dbPath == "" {
		return fmt.Errorf("import-puzzles: -source and -db are required")
	}

	progress := make(chan puzzle.Progress, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			log.Printf("import-puzzles: %s puzzles processed", humanize.Comma(int64(p.Processed)))
		}
	}()

	err := puzzle.Import(context.Background(), *sourcePath, *dbPath, progress)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("import-puzzles: %w", err)
	}
	log.Printf("import-puzzles: done")
	return nil
}

func runPuzzle(args []string) error {
	fs := flag.NewFlagSet("puzzle", flag.ExitOnError)
	dbPath := fs.String("db", "", "puzzle database path")
	minRating := fs.Int("min", 0, "minimum rating")
	maxRating := fs.Int("max", 3000, "maximum rating")
	fs.Parse(args)

	if *dbPath == "" {
		return fmt.Errorf("puzzle: -db is required")
	}

	cachePath := filepath.Join(filepath.Dir(*dbPath), "position_cache.db3")
	state, err := appdata.NewState(cachePath)
	if err != nil {
		return err
	}
	defer state.Close()

	pool, err := state.Registry.Get(*dbPath, store.Options{})
	if err != nil {
		return err
	}

	p, err := state.PuzzleCache.Next(context.Background(), pool, puzzle.Filter{
		MinRating: *minRating,
		MaxRating: *maxRating,
	})
	if err != nil {
		return fmt.Errorf("puzzle: %w", err)
	}

	fmt.Printf("#%d  rating %d  %s\n%s\n", p.ID, p.Rating, p.FEN, p.Moves)
	return nil
}
