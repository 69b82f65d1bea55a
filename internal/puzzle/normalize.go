package puzzle

import (
	"context"
	"fmt"
	"strings"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/store"
)

type themeRow struct {
	puzzleID int64
	theme    string
}

type tagRow struct {
	puzzleID int64
	tag      string
}

// PopulateNormalizedTables rebuilds puzzle_themes and puzzle_opening_tags
// from the free-text themes/opening_tags columns of every row. Themes are
// space-separated and each becomes its own row; opening tags use only
// their first whitespace-separated token as the discriminant. Call this
// after all rows are inserted and before CreateIndexes.
func PopulateNormalizedTables(ctx context.Context, pool *store.Pool) error {
	if _, err := pool.DB().ExecContext(ctx, `DELETE FROM puzzle_themes`); err != nil {
		return fmt.Errorf("clear puzzle_themes: %w: %w", chessdberr.Storage, err)
	}
	if _, err := pool.DB().ExecContext(ctx, `DELETE FROM puzzle_opening_tags`); err != nil {
		return fmt.Errorf("clear puzzle_opening_tags: %w: %w", chessdberr.Storage, err)
	}

	rows, err := pool.DB().QueryContext(ctx, `
		SELECT id, themes, opening_tags FROM puzzles
		WHERE themes IS NOT NULL OR opening_tags IS NOT NULL
	`)
	if err != nil {
		return fmt.Errorf("read puzzles for normalization: %w: %w", chessdberr.Storage, err)
	}
	defer rows.Close()

	const batchSize = 500
	var themeBatch []themeRow
	var tagBatch []tagRow

	for rows.Next() {
		var id int64
		var themes, openingTags *string
		if err := rows.Scan(&id, &themes, &openingTags); err != nil {
			return fmt.Errorf("scan puzzle row: %w: %w", chessdberr.Storage, err)
		}

		if themes != nil {
			for _, theme := range strings.Fields(*themes) {
				themeBatch = append(themeBatch, themeRow{id, theme})
			}
		}
		if openingTags != nil {
			if fields := strings.Fields(*openingTags); len(fields) > 0 {
				tagBatch = append(tagBatch, tagRow{id, fields[0]})
			}
		}

		if len(themeBatch) >= batchSize {
			if err := flushThemeBatch(ctx, pool, themeBatch); err != nil {
				return err
			}
			themeBatch = nil
		}
		if len(tagBatch) >= batchSize {
			if err := flushTagBatch(ctx, pool, tagBatch); err != nil {
				return err
			}
			tagBatch = nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate puzzles for normalization: %w: %w", chessdberr.Storage, err)
	}

	if err := flushThemeBatch(ctx, pool, themeBatch); err != nil {
		return err
	}
	return flushTagBatch(ctx, pool, tagBatch)
}

func flushThemeBatch(ctx context.Context, pool *store.Pool, batch []themeRow) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin theme batch: %w: %w", chessdberr.Storage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO puzzle_themes(puzzle_id, theme, friendly_name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare theme insert: %w: %w", chessdberr.Storage, err)
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, r.puzzleID, r.theme, ThemeFriendlyName(r.theme)); err != nil {
			return fmt.Errorf("insert puzzle_themes: %w: %w", chessdberr.Storage, err)
		}
	}
	return tx.Commit()
}

func flushTagBatch(ctx context.Context, pool *store.Pool, batch []tagRow) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin opening tag batch: %w: %w", chessdberr.Storage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO puzzle_opening_tags(puzzle_id, opening_tag, friendly_name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare opening tag insert: %w: %w", chessdberr.Storage, err)
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, r.puzzleID, r.tag, OpeningTagFriendlyName(r.tag)); err != nil {
			return fmt.Errorf("insert puzzle_opening_tags: %w: %w", chessdberr.Storage, err)
		}
	}
	return tx.Commit()
}
