package puzzle

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/importer"
	"github.com/hailam/chessdb/internal/store"
)

// Progress reports bulk-import advancement. Total is 0 when the input
// shape doesn't know its row count up front (streaming CSV import emits
// Total=0 on its periodic events and the real total only on the final one).
type Progress struct {
	Processed int
	Total     int
}

// Import dispatches on sourcePath's extension to one of the catalog's
// four supported bulk-import shapes: an existing catalog database (copy),
// a PGN file, a compressed PGN file (.pgn.zst/.pgn.bz2), or a CSV file
// (plain or .csv.zst). dbPath is removed first if it already exists, so an
// import never mixes with a stale file; a failure partway through leaves
// the partly written file in place.
func Import(ctx context.Context, sourcePath, dbPath string, progress chan<- Progress) error {
	if _, err := os.Stat(sourcePath); err != nil {
		return fmt.Errorf("puzzle source %s: %w: %w", sourcePath, chessdberr.IO, err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create puzzle db directory: %w: %w", chessdberr.IO, err)
	}
	if _, err := os.Stat(dbPath); err == nil {
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("remove existing puzzle db %s: %w: %w", dbPath, chessdberr.IO, err)
		}
	}

	lower := strings.ToLower(sourcePath)
	isCSV := strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".csv.zst")

	switch {
	case strings.HasSuffix(lower, ".db3") || strings.HasSuffix(lower, ".db"):
		return copyDatabase(sourcePath, dbPath)
	case isCSV:
		return importCSV(ctx, sourcePath, dbPath, progress)
	case strings.HasSuffix(lower, ".pgn"):
		return importPGN(ctx, sourcePath, dbPath, progress)
	case strings.HasSuffix(lower, ".zst") || strings.HasSuffix(lower, ".bz2"):
		return importPGN(ctx, sourcePath, dbPath, progress)
	default:
		return fmt.Errorf("puzzle source %s: %w", sourcePath, chessdberr.UnsupportedFileFormat)
	}
}

func copyDatabase(sourcePath, dbPath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open puzzle catalog %s: %w: %w", sourcePath, chessdberr.IO, err)
	}
	defer src.Close()

	dst, err := os.Create(dbPath)
	if err != nil {
		return fmt.Errorf("create puzzle catalog %s: %w: %w", dbPath, chessdberr.IO, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy puzzle catalog: %w: %w", chessdberr.IO, err)
	}
	return nil
}

const pgnImportBatch = 1000

func importPGN(ctx context.Context, sourcePath, dbPath string, progress chan<- Progress) error {
	r, err := importer.OpenArchive(sourcePath)
	if err != nil {
		return fmt.Errorf("open puzzle pgn %s: %w: %w", sourcePath, chessdberr.IO, err)
	}
	defer r.Close()

	puzzles, err := parsePuzzlePGN(r)
	if err != nil {
		return err
	}
	if len(puzzles) == 0 {
		return fmt.Errorf("no valid puzzles found in %s: %w", sourcePath, chessdberr.UnsupportedFileFormat)
	}

	pool, err := OpenBulk(dbPath)
	if err != nil {
		return err
	}
	defer pool.Close()

	total := len(puzzles)
	for i := 0; i < total; i += pgnImportBatch {
		end := i + pgnImportBatch
		if end > total {
			end = total
		}
		if err := insertPuzzleBatch(ctx, pool, puzzles[i:end]); err != nil {
			return err
		}
		if progress != nil {
			progress <- Progress{Processed: end, Total: total}
		}
	}

	if err := PopulateNormalizedTables(ctx, pool); err != nil {
		return err
	}
	return CreateIndexes(ctx, pool)
}

func insertPuzzleBatch(ctx context.Context, pool *store.Pool, batch []Puzzle) error {
	tx, err := pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin puzzle batch: %w: %w", chessdberr.Storage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO puzzles(fen, moves, rating, rating_deviation, popularity, nb_plays, themes, game_url, opening_tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare puzzle insert: %w: %w", chessdberr.Storage, err)
	}
	defer stmt.Close()

	for _, p := range batch {
		if _, err := stmt.ExecContext(ctx, p.FEN, p.Moves, p.Rating, p.RatingDeviation,
			p.Popularity, p.NbPlays, nullIfEmpty(p.Themes), nullIfEmpty(p.GameURL), nullIfEmpty(p.OpeningTags)); err != nil {
			return fmt.Errorf("insert puzzle: %w: %w", chessdberr.Storage, err)
		}
	}
	return tx.Commit()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parsePuzzlePGN parses a puzzle-per-block PGN-tag file: each puzzle is a
// run of `[Key "value"]` header lines (FEN, Solution/Moves, Rating/Elo,
// Popularity, NbPlays) optionally followed by a single bare line of moves,
// terminated by a blank line. A puzzle lacking FEN or moves is dropped.
func parsePuzzlePGN(r io.Reader) ([]Puzzle, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var puzzles []Puzzle
	var cur Puzzle
	inPuzzle := false

	flush := func() {
		if inPuzzle && cur.FEN != "" && cur.Moves != "" {
			puzzles = append(puzzles, cur)
		}
		cur = Puzzle{}
		inPuzzle = false
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			flush()
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			key, value, ok := parsePGNHeader(line)
			if !ok {
				continue
			}
			switch key {
			case "FEN":
				cur.FEN = value
				inPuzzle = true
			case "Solution", "Moves":
				cur.Moves = value
			case "Rating", "Elo":
				if v, err := strconv.Atoi(value); err == nil {
					cur.Rating = v
				}
			case "Popularity":
				if v, err := strconv.Atoi(value); err == nil {
					cur.Popularity = v
				}
			case "NbPlays":
				if v, err := strconv.Atoi(value); err == nil {
					cur.NbPlays = v
				}
			case "Themes":
				cur.Themes = value
			case "OpeningTags":
				cur.OpeningTags = value
			}
			continue
		}

		if inPuzzle && cur.Moves == "" {
			cur.Moves = line
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan puzzle pgn: %w: %w", chessdberr.IO, err)
	}
	return puzzles, nil
}

func parsePGNHeader(line string) (key, value string, ok bool) {
	line = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return "", "", false
	}
	key = line[:sp]
	rest := strings.TrimSpace(line[sp+1:])
	rest = strings.TrimPrefix(rest, `"`)
	rest = strings.TrimSuffix(rest, `"`)
	return key, rest, true
}

const csvImportBatch = 10000
const csvProgressEveryBatches = 10

// lichessCSVColumns is the Lichess puzzle export column order:
// PuzzleId,FEN,Moves,Rating,RatingDeviation,Popularity,NbPlays,Themes,GameUrl,OpeningTags
var lichessCSVColumns = map[string]int{
	"FEN": 1, "Moves": 2, "Rating": 3, "RatingDeviation": 4,
	"Popularity": 5, "NbPlays": 6, "Themes": 7, "GameUrl": 8, "OpeningTags": 9,
}

func importCSV(ctx context.Context, sourcePath, dbPath string, progress chan<- Progress) error {
	pool, err := OpenBulk(dbPath)
	if err != nil {
		return err
	}
	defer pool.Close()

	rawReader, err := importer.OpenArchive(sourcePath)
	if err != nil {
		return fmt.Errorf("open puzzle csv %s: %w: %w", sourcePath, chessdberr.IO, err)
	}
	defer rawReader.Close()

	r := csv.NewReader(bufio.NewReaderSize(rawReader, 1<<20))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read puzzle csv header: %w: %w", chessdberr.IO, err)
	}
	columns := resolveCSVColumns(header)

	var batch []Puzzle
	totalInserted := 0
	batchCount := 0

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read puzzle csv row: %w: %w", chessdberr.IO, err)
		}

		p, ok := puzzleFromCSVRecord(record, columns)
		if !ok {
			continue
		}
		batch = append(batch, p)

		if len(batch) >= csvImportBatch {
			if err := insertPuzzleBatch(ctx, pool, batch); err != nil {
				return err
			}
			totalInserted += len(batch)
			batchCount++
			batch = batch[:0]

			if progress != nil && batchCount%csvProgressEveryBatches == 0 {
				progress <- Progress{Processed: totalInserted}
			}
		}
	}
	if len(batch) > 0 {
		if err := insertPuzzleBatch(ctx, pool, batch); err != nil {
			return err
		}
		totalInserted += len(batch)
	}

	if totalInserted == 0 {
		return fmt.Errorf("no valid puzzles found in %s: %w", sourcePath, chessdberr.UnsupportedFileFormat)
	}
	if progress != nil {
		progress <- Progress{Processed: totalInserted, Total: totalInserted}
	}

	if err := PopulateNormalizedTables(ctx, pool); err != nil {
		return err
	}
	return CreateIndexes(ctx, pool)
}

// resolveCSVColumns maps the file's actual header to column indexes,
// falling back to the canonical Lichess export order when a header name
// isn't recognized (some exports omit the header row's exact casing).
func resolveCSVColumns(header []string) map[string]int {
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for name, idx := range lichessCSVColumns {
		if _, ok := columns[name]; !ok && idx < len(header) {
			columns[name] = idx
		}
	}
	return columns
}

func puzzleFromCSVRecord(record []string, columns map[string]int) (Puzzle, bool) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	fen := field("FEN")
	moves := field("Moves")
	if fen == "" || moves == "" {
		return Puzzle{}, false
	}

	return Puzzle{
		FEN:             fen,
		Moves:           moves,
		Rating:          atoiOrDefault(field("Rating"), 1500),
		RatingDeviation: atoiOrDefault(field("RatingDeviation"), 350),
		Popularity:      atoiOrDefault(field("Popularity"), 0),
		NbPlays:         atoiOrDefault(field("NbPlays"), 0),
		Themes:          field("Themes"),
		GameURL:         field("GameUrl"),
		OpeningTags:     field("OpeningTags"),
	}, true
}

func atoiOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
