package search

import "github.com/hailam/chessdb/internal/chess"

// matches reports whether candidate satisfies q. Castling rights are
// intentionally excluded from exact comparison: the board representation
// makes their equality awkward to define across transpositions, and the
// pawn-home fingerprint plus material plus full board equality already
// over-identifies the position for practical purposes.
func (q PositionQuery) matches(candidate *chess.Position) bool {
	if q.Exact {
		return matchesExact(q.Target, candidate)
	}
	return matchesPartial(q.Mask, candidate)
}

func matchesExact(target, candidate *chess.Position) bool {
	if target.SideToMove != candidate.SideToMove {
		return false
	}
	if target.EnPassant != candidate.EnPassant {
		return false
	}
	for c := chess.White; c <= chess.Black; c++ {
		for pt := chess.Pawn; pt <= chess.King; pt++ {
			if target.Pieces[c][pt] != candidate.Pieces[c][pt] {
				return false
			}
		}
	}
	return true
}

// matchesPartial short-circuits on the first family whose subset
// requirement fails against the candidate.
func matchesPartial(mask PieceMask, candidate *chess.Position) bool {
	families := []struct {
		want chess.Bitboard
		have chess.Bitboard
	}{
		{mask.Kings, candidate.Pieces[chess.White][chess.King] | candidate.Pieces[chess.Black][chess.King]},
		{mask.Queens, candidate.Pieces[chess.White][chess.Queen] | candidate.Pieces[chess.Black][chess.Queen]},
		{mask.Rooks, candidate.Pieces[chess.White][chess.Rook] | candidate.Pieces[chess.Black][chess.Rook]},
		{mask.Bishops, candidate.Pieces[chess.White][chess.Bishop] | candidate.Pieces[chess.Black][chess.Bishop]},
		{mask.Knights, candidate.Pieces[chess.White][chess.Knight] | candidate.Pieces[chess.Black][chess.Knight]},
		{mask.Pawns, candidate.Pieces[chess.White][chess.Pawn] | candidate.Pieces[chess.Black][chess.Pawn]},
		{mask.White, candidate.Occupied[chess.White]},
		{mask.Black, candidate.Occupied[chess.Black]},
	}
	for _, f := range families {
		if f.want == 0 {
			continue // don't care
		}
		if f.want&^f.have != 0 {
			return false
		}
	}
	return true
}
