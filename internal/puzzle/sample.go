package puzzle

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/hailam/chessdb/internal/store"
)

// Filter narrows the puzzle pool a sample is drawn from.
type Filter struct {
	MinRating   int
	MaxRating   int
	Themes      []string
	OpeningTags []string
}

// equal reports whether two filters would select the same puzzle pool,
// used by Cache to decide whether its current window is still valid.
func (f Filter) equal(other Filter) bool {
	return f.MinRating == other.MinRating &&
		f.MaxRating == other.MaxRating &&
		stringsEqual(f.Themes, other.Themes) &&
		stringsEqual(f.OpeningTags, other.OpeningTags)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sampleWindow fetches up to windowSize puzzles satisfying f. When f
// specifies tag filters and the normalized junction tables are present,
// it issues a join + IN-list query, counts eligible rows, and picks a
// random offset window — the efficient path for a large catalog. When
// filters are absent or the tables are missing, it falls back to
// `ORDER BY RANDOM() LIMIT`, which is fine for a small or untagged query.
func sampleWindow(ctx context.Context, pool *store.Pool, f Filter, windowSize int) ([]Puzzle, error) {
	hasTagFilters := len(f.Themes) > 0 || len(f.OpeningTags) > 0

	normalized := false
	if hasTagFilters {
		var err error
		normalized, err = HasNormalizedTables(ctx, pool)
		if err != nil {
			return nil, err
		}
	}

	if hasTagFilters && normalized {
		return sampleWindowJoined(ctx, pool, f, windowSize)
	}
	return sampleWindowPlain(ctx, pool, f, windowSize)
}

func sampleWindowJoined(ctx context.Context, pool *store.Pool, f Filter, windowSize int) ([]Puzzle, error) {
	var joins []string
	where := []string{"p.rating >= ? AND p.rating <= ?"}
	args := []any{f.MinRating, f.MaxRating}

	if len(f.Themes) > 0 {
		joins = append(joins, "INNER JOIN puzzle_themes pt ON p.id = pt.puzzle_id")
		where = append(where, "pt.theme IN ("+placeholders(len(f.Themes))+")")
		for _, t := range f.Themes {
			args = append(args, t)
		}
	}
	if len(f.OpeningTags) > 0 {
		joins = append(joins, "INNER JOIN puzzle_opening_tags pot ON p.id = pot.puzzle_id")
		where = append(where, "pot.opening_tag IN ("+placeholders(len(f.OpeningTags))+")")
		for _, t := range f.OpeningTags {
			args = append(args, t)
		}
	}

	fromClause := "FROM puzzles p " + strings.Join(joins, " ")
	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT p.id) %s %s", fromClause, whereClause)
	if err := pool.DB().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count filtered puzzles: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	offset := 0
	if total > windowSize {
		offset = rand.Intn(total - windowSize)
	}

	selectQuery := fmt.Sprintf(
		"SELECT DISTINCT p.id, p.fen, p.moves, p.rating, p.rating_deviation, p.popularity, p.nb_plays, p.themes, p.game_url, p.opening_tags %s %s ORDER BY p.id LIMIT ? OFFSET ?",
		fromClause, whereClause)
	args = append(args, windowSize, offset)

	return queryPuzzles(ctx, pool, selectQuery, args...)
}

func sampleWindowPlain(ctx context.Context, pool *store.Pool, f Filter, windowSize int) ([]Puzzle, error) {
	where := []string{"rating >= ? AND rating <= ?"}
	args := []any{f.MinRating, f.MaxRating}

	if len(f.Themes) > 0 {
		var clauses []string
		for _, theme := range f.Themes {
			clauses = append(clauses, "(themes LIKE ? OR themes LIKE ? OR themes LIKE ? OR themes = ?)")
			args = append(args, "% "+theme+" %", theme+" %", "% "+theme, theme)
		}
		where = append(where, "themes IS NOT NULL AND ("+strings.Join(clauses, " OR ")+")")
	}
	if len(f.OpeningTags) > 0 {
		var clauses []string
		for _, tag := range f.OpeningTags {
			clauses = append(clauses, "(opening_tags LIKE ? OR opening_tags = ?)")
			args = append(args, tag+" %", tag)
		}
		where = append(where, "opening_tags IS NOT NULL AND ("+strings.Join(clauses, " OR ")+")")
	}

	query := fmt.Sprintf(
		"SELECT id, fen, moves, rating, rating_deviation, popularity, nb_plays, themes, game_url, opening_tags FROM puzzles WHERE %s ORDER BY RANDOM() LIMIT ?",
		strings.Join(where, " AND "))
	args = append(args, windowSize)

	return queryPuzzles(ctx, pool, query, args...)
}

func queryPuzzles(ctx context.Context, pool *store.Pool, query string, args ...any) ([]Puzzle, error) {
	rows, err := pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query puzzles: %w", err)
	}
	defer rows.Close()

	var out []Puzzle
	for rows.Next() {
		var p Puzzle
		var themes, gameURL, openingTags *string
		if err := rows.Scan(&p.ID, &p.FEN, &p.Moves, &p.Rating, &p.RatingDeviation,
			&p.Popularity, &p.NbPlays, &themes, &gameURL, &openingTags); err != nil {
			return nil, fmt.Errorf("scan puzzle: %w", err)
		}
		if themes != nil {
			p.Themes = *themes
		}
		if gameURL != nil {
			p.GameURL = *gameURL
		}
		if openingTags != nil {
			p.OpeningTags = *openingTags
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
