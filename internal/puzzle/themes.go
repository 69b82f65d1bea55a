package puzzle

import (
	"context"
	"fmt"
	"sort"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/store"
)

// ThemeOption pairs a technical theme tag with its display label.
type ThemeOption struct {
	Value string
	Label string
}

// ThemeGroup is a named bucket of related ThemeOptions (e.g. "Tactics").
type ThemeGroup struct {
	Group string
	Items []ThemeOption
}

// OpeningTagOption pairs a technical opening-tag discriminant with its
// display label.
type OpeningTagOption struct {
	Value string
	Label string
}

// GetThemes returns every distinct theme in the catalog, grouped by
// category and sorted by label within each group, using the friendly name
// already stored in puzzle_themes when present.
func GetThemes(ctx context.Context, pool *store.Pool) ([]ThemeGroup, error) {
	rows, err := pool.DB().QueryContext(ctx,
		`SELECT DISTINCT theme, friendly_name FROM puzzle_themes ORDER BY COALESCE(friendly_name, theme)`)
	if err != nil {
		return nil, fmt.Errorf("query puzzle themes: %w: %w", chessdberr.Storage, err)
	}
	defer rows.Close()

	grouped := map[string][]ThemeOption{}
	for rows.Next() {
		var theme string
		var friendly *string
		if err := rows.Scan(&theme, &friendly); err != nil {
			return nil, fmt.Errorf("scan puzzle theme: %w: %w", chessdberr.Storage, err)
		}
		label := ThemeFriendlyName(theme)
		if friendly != nil && *friendly != "" {
			label = *friendly
		}
		category := themeCategory(theme)
		grouped[category] = append(grouped[category], ThemeOption{Value: theme, Label: label})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate puzzle themes: %w: %w", chessdberr.Storage, err)
	}

	var groups []ThemeGroup
	for group, items := range grouped {
		sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
		groups = append(groups, ThemeGroup{Group: group, Items: items})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Group < groups[j].Group })
	return groups, nil
}

// GetOpeningTags returns every distinct opening tag in the catalog,
// sorted by label.
func GetOpeningTags(ctx context.Context, pool *store.Pool) ([]OpeningTagOption, error) {
	rows, err := pool.DB().QueryContext(ctx,
		`SELECT DISTINCT opening_tag, friendly_name FROM puzzle_opening_tags ORDER BY COALESCE(friendly_name, opening_tag)`)
	if err != nil {
		return nil, fmt.Errorf("query puzzle opening tags: %w: %w", chessdberr.Storage, err)
	}
	defer rows.Close()

	var out []OpeningTagOption
	for rows.Next() {
		var tag string
		var friendly *string
		if err := rows.Scan(&tag, &friendly); err != nil {
			return nil, fmt.Errorf("scan puzzle opening tag: %w: %w", chessdberr.Storage, err)
		}
		label := OpeningTagFriendlyName(tag)
		if friendly != nil && *friendly != "" {
			label = *friendly
		}
		out = append(out, OpeningTagOption{Value: tag, Label: label})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate puzzle opening tags: %w: %w", chessdberr.Storage, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}
