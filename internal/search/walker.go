package search

import (
	"github.com/hailam/chessdb/internal/chess"
	"github.com/hailam/chessdb/internal/codec"
)

// matchOutcome is what one row's move walk found.
type matchOutcome struct {
	Continuation string // SAN, or "*" if the game ended at the matched ply
	Matched      bool
}

// scanRow applies the user-filter predicates redundant with SQL (needed on
// the online path where they weren't applied there), then streams row's
// main line move by move via a MainLineDecoder: decode one ply, play it,
// check can_reach, check matches, stop on the first match or the first
// unreachable ply (§4.4.5 step 2) — without ever decoding the rest of the
// line. This is the central optimization of §4.4.3: a game that diverges
// from the target early is abandoned after a handful of plies, not after
// a full-game decode.
func scanRow(row CachedRow, filter GameFilter, q PositionQuery) (matchOutcome, error) {
	if !passesRowFilter(row, filter) {
		return matchOutcome{}, nil
	}

	startPos := chess.NewPosition()
	if row.FEN != "" {
		parsed, err := chess.ParseFEN(row.FEN)
		if err != nil {
			return matchOutcome{}, nil // malformed starting FEN: stop this game, not the scan
		}
		startPos = parsed
	}

	dec := codec.NewMainLineDecoder(startPos, row.Moves)
	for {
		_, ok, err := dec.Next()
		if err != nil {
			return matchOutcome{}, nil // corrupt blob: stop this game, not the scan
		}
		if !ok {
			break
		}

		pos := dec.Pos()
		cWhite, cBlack := pos.MaterialCount()
		cPawnHome := pos.PawnHome()
		if !q.canReach(cWhite, cBlack, cPawnHome) {
			return matchOutcome{}, nil
		}

		if q.matches(pos) {
			cont := "*"
			matched := pos.Copy() // dec.Next advances pos in place
			if next, ok, err := dec.Next(); err == nil && ok {
				cont = next.ToSAN(matched)
			}
			return matchOutcome{Continuation: cont, Matched: true}, nil
		}
	}
	return matchOutcome{}, nil
}

// passesRowFilter re-applies the player/result/date filters that are
// redundant with SQL on the local path but mandatory on the online path,
// which never ran them in SQL.
func passesRowFilter(row CachedRow, f GameFilter) bool {
	if f.Result != "" && row.Result != f.Result {
		return false
	}
	if f.DateFrom != "" && row.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && row.Date > f.DateTo {
		return false
	}

	switch {
	case f.Player1 != 0 && f.Player2 != 0:
		switch f.Sides {
		case WhiteBlack:
			return row.WhiteID == f.Player1 && row.BlackID == f.Player2
		case BlackWhite:
			return row.WhiteID == f.Player2 && row.BlackID == f.Player1
		default:
			return (row.WhiteID == f.Player1 && row.BlackID == f.Player2) ||
				(row.WhiteID == f.Player2 && row.BlackID == f.Player1)
		}
	case f.Player1 != 0:
		return row.WhiteID == f.Player1 || row.BlackID == f.Player1
	case f.Player2 != 0:
		return row.WhiteID == f.Player2 || row.BlackID == f.Player2
	}
	return true
}
