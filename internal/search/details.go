package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/store"
)

// GameDetail is one fully joined row for the detail list shown for a
// sample of matched game ids.
type GameDetail struct {
	ID                   int64
	White, Black         string
	Event, Site          string
	Date, Time, Round    string
	Result               string
	WhiteElo, BlackElo   int
	PlyCount             int
	ECO, TimeControl     string
}

// ReloadDetails truncates ids to limit (defaulting to 10, capped at
// maxSampleSize) per §4.4.6, then reloads just that window from SQL with
// full joins to Players/Events/Sites, ordered per sort/sortDescending.
func ReloadDetails(ctx context.Context, pool *store.Pool, ids []int64, limit int, sort SortKey, sortDescending bool) ([]GameDetail, error) {
	if limit <= 0 {
		limit = defaultGameDetailsLimit
	}
	if limit > maxSampleSize {
		limit = maxSampleSize
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	orderCol := map[SortKey]string{
		SortByID:         "g.id",
		SortByDate:       "g.date, g.time",
		SortByWhiteElo:   "g.white_elo",
		SortByBlackElo:   "g.black_elo",
		SortByAverageElo: "(g.white_elo + g.black_elo) / 2.0",
		SortByPlyCount:   "g.ply_count",
	}[sort]
	if orderCol == "" {
		orderCol = "g.id"
	}
	direction := "ASC"
	if sortDescending {
		direction = "DESC"
	}

	sqlText := fmt.Sprintf(`
		SELECT g.id, w.name, b.name, e.name, s.name,
			g.date, g.time, g.round, g.result,
			g.white_elo, g.black_elo, g.ply_count, g.eco, g.time_control
		FROM Games g
		JOIN Players w ON w.id = g.white_id
		JOIN Players b ON b.id = g.black_id
		JOIN Events  e ON e.id = g.event_id
		JOIN Sites   s ON s.id = g.site_id
		WHERE g.id IN (%s)
		ORDER BY %s %s`, strings.Join(placeholders, ","), orderCol, direction)

	rs, err := pool.DB().QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("reload game details: %w: %w", chessdberr.Storage, err)
	}
	defer rs.Close()

	var out []GameDetail
	for rs.Next() {
		var d GameDetail
		if err := rs.Scan(&d.ID, &d.White, &d.Black, &d.Event, &d.Site,
			&d.Date, &d.Time, &d.Round, &d.Result,
			&d.WhiteElo, &d.BlackElo, &d.PlyCount, &d.ECO, &d.TimeControl); err != nil {
			return nil, fmt.Errorf("scan game detail: %w: %w", chessdberr.Storage, err)
		}
		out = append(out, d)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate game details: %w: %w", chessdberr.Storage, err)
	}
	return out, nil
}
