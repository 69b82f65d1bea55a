package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/store"
)

// CachedRow is one game's worth of data loaded into the in-memory scan
// vector: exactly the columns §4.4.5 names.
type CachedRow struct {
	ID               int64
	WhiteID, BlackID int64
	Date             string
	Result           string
	Moves            []byte
	FEN              string
	PawnHome         uint16
	WhiteMaterial    int
	BlackMaterial    int
	WhiteElo         int
	BlackElo         int
}

// IsOnlineProvenance reports whether dbPath names an online-sourced
// database (`<username>_lichess.db3` / `<username>_chesscom.db3`, checked
// case-insensitively), whose material and pawn-home columns are not
// trusted by the scanner. This is the documented external filename
// contract (§6) and is always checked before the Info-row fallback.
func IsOnlineProvenance(dbPath string) bool {
	lower := strings.ToLower(dbPath)
	return strings.HasSuffix(lower, "_lichess.db3") || strings.HasSuffix(lower, "_chesscom.db3")
}

// resolveProvenance decides online vs. local for a scan. The filename
// convention is authoritative when it matches; only when dbPath matches
// neither online suffix does it fall back to the DatabaseProvenance Info
// row written at import time (§3.1), so a renamed online database is
// never silently treated as local. A missing or unreadable Info row
// defaults to local, matching the pre-§3.1 behavior.
func resolveProvenance(ctx context.Context, pool *store.Pool, dbPath string) bool {
	if IsOnlineProvenance(dbPath) {
		return true
	}
	value, ok, err := pool.GetInfo(ctx, store.DatabaseProvenanceInfoKey)
	if err != nil || !ok {
		return false
	}
	return value == store.ProvenanceOnline
}

// DBCache memoizes the per-database in-memory scan vector across searches
// within a session, amortizing the SQL load cost (§4.4.5: "first-time cost
// amortized across searches within a session"). It is only ever populated
// for local databases — the online path always loads fresh from SQL since
// its rows aren't safe to prefilter or reuse across differently-filtered
// queries.
type DBCache struct {
	mu   sync.Mutex
	rows map[string][]CachedRow
}

// NewDBCache returns an empty cache.
func NewDBCache() *DBCache {
	return &DBCache{rows: make(map[string][]CachedRow)}
}

// Invalidate drops any cached vector for path, e.g. after the database is
// reimported or deleted.
func (c *DBCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, path)
}

// LoadLocal returns the cached scan vector for a local database, querying
// and populating it on first use. filter's player/date/event/result
// constraints are applied in SQL; the material pre-filter (§4.4.4) is
// applied only when filter.MaterialPrefilter is set, comparing against an
// Exact query's target material.
func (c *DBCache) LoadLocal(ctx context.Context, pool *store.Pool, filter GameFilter, q PositionQuery) ([]CachedRow, error) {
	key := pool.Path() + "\x00" + filterCacheKey(filter, q)

	c.mu.Lock()
	if rows, ok := c.rows[key]; ok {
		c.mu.Unlock()
		return rows, nil
	}
	c.mu.Unlock()

	rows, err := queryRows(ctx, pool.DB(), filter, q, true)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rows[key] = rows
	c.mu.Unlock()
	return rows, nil
}

// LoadOnline loads rows directly from SQL without pre-filtering and
// without caching: online-provenance columns aren't trusted, so every
// search against one of these databases must re-derive reachability from
// each row's starting position instead of relying on stored columns.
func LoadOnline(ctx context.Context, pool *store.Pool, filter GameFilter) ([]CachedRow, error) {
	return queryRows(ctx, pool.DB(), filter, PositionQuery{}, false)
}

// filterCacheKey is a stable string key for the subset of GameFilter that
// changes which rows the local SQL pre-filter admits (player/date/event/
// result plus, when enabled, the exact target's material bound).
func filterCacheKey(f GameFilter, q PositionQuery) string {
	matPrefilter := ""
	if f.MaterialPrefilter && q.Exact {
		matPrefilter = fmt.Sprintf("%d,%d", q.Material.White, q.Material.Black)
	}
	return fmt.Sprintf("%d|%d|%d|%d|%s|%s|%s|%d|%d|%d|%d|%s",
		f.Player1, f.Player2, f.Sides, f.EventID,
		f.DateFrom, f.DateTo, f.Result,
		f.WhiteEloMin, f.WhiteEloMax, f.BlackEloMin, f.BlackEloMax,
		matPrefilter)
}

func queryRows(ctx context.Context, db *sql.DB, filter GameFilter, q PositionQuery, materialPrefilterEligible bool) ([]CachedRow, error) {
	where, args := buildWhere(filter, q, materialPrefilterEligible)

	sqlText := `SELECT id, white_id, black_id, date, result, moves, fen, pawn_home,
			white_material, black_material, white_elo, black_elo
		FROM Games` + where

	rs, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w: %w", chessdberr.Storage, err)
	}
	defer rs.Close()

	var rows []CachedRow
	for rs.Next() {
		var r CachedRow
		var fen sql.NullString
		var pawnHome int64
		if err := rs.Scan(&r.ID, &r.WhiteID, &r.BlackID, &r.Date, &r.Result, &r.Moves, &fen,
			&pawnHome, &r.WhiteMaterial, &r.BlackMaterial, &r.WhiteElo, &r.BlackElo); err != nil {
			return nil, fmt.Errorf("scan game row: %w: %w", chessdberr.Storage, err)
		}
		r.FEN = fen.String
		r.PawnHome = uint16(pawnHome)
		rows = append(rows, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate game rows: %w: %w", chessdberr.Storage, err)
	}
	return rows, nil
}

func buildWhere(f GameFilter, q PositionQuery, materialPrefilterEligible bool) (string, []any) {
	var clauses []string
	var args []any

	switch {
	case f.Player1 != 0 && f.Player2 != 0:
		switch f.Sides {
		case WhiteBlack:
			clauses = append(clauses, "(white_id = ? AND black_id = ?)")
			args = append(args, f.Player1, f.Player2)
		case BlackWhite:
			clauses = append(clauses, "(white_id = ? AND black_id = ?)")
			args = append(args, f.Player2, f.Player1)
		default: // Any
			clauses = append(clauses, "((white_id = ? AND black_id = ?) OR (white_id = ? AND black_id = ?))")
			args = append(args, f.Player1, f.Player2, f.Player2, f.Player1)
		}
	case f.Player1 != 0:
		clauses = append(clauses, "(white_id = ? OR black_id = ?)")
		args = append(args, f.Player1, f.Player1)
	case f.Player2 != 0:
		clauses = append(clauses, "(white_id = ? OR black_id = ?)")
		args = append(args, f.Player2, f.Player2)
	}

	if f.EventID != 0 {
		clauses = append(clauses, "event_id = ?")
		args = append(args, f.EventID)
	}
	if f.DateFrom != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.DateTo)
	}
	if f.Result != "" {
		clauses = append(clauses, "result = ?")
		args = append(args, f.Result)
	}
	if f.WhiteEloMin != 0 {
		clauses = append(clauses, "white_elo >= ?")
		args = append(args, f.WhiteEloMin)
	}
	if f.WhiteEloMax != 0 {
		clauses = append(clauses, "white_elo <= ?")
		args = append(args, f.WhiteEloMax)
	}
	if f.BlackEloMin != 0 {
		clauses = append(clauses, "black_elo >= ?")
		args = append(args, f.BlackEloMin)
	}
	if f.BlackEloMax != 0 {
		clauses = append(clauses, "black_elo <= ?")
		args = append(args, f.BlackEloMax)
	}

	if materialPrefilterEligible && f.MaterialPrefilter && q.Exact {
		clauses = append(clauses, "white_material >= ?", "black_material >= ?")
		args = append(args, q.Material.White, q.Material.Black)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
