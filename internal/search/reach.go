package search

// canReach reports whether a game currently at (cWhite, cBlack, cPawnHome)
// can still reach this query's target. For a Partial query, subset
// semantics admit any superposition, so this is unconditionally true.
//
// For an Exact query: every pawn-home bit the target requires must
// already be set now (pawns never return to their home rank once they
// leave it), and material can only fall from here to the target, never
// rise.
func (q PositionQuery) canReach(cWhite, cBlack int, cPawnHome uint16) bool {
	if !q.Exact {
		return true
	}
	if q.PawnHome&^cPawnHome != 0 {
		return false
	}
	return q.Material.White <= cWhite && q.Material.Black <= cBlack
}

// isReachableBy is canReach applied to a game's *final* recorded
// material/pawn-home columns instead of a live mid-game board: could the
// final recorded state have evolved through this query's target? It's the
// same monotone formula as canReach — only the data source (stored row
// columns rather than a position being replayed) differs, which is why
// the pre-scan SQL filter (§4.4.4) can express it directly as a WHERE
// clause instead of calling this function per row.
func (q PositionQuery) isReachableBy(finalWhite, finalBlack int, finalPawnHome uint16) bool {
	return q.canReach(finalWhite, finalBlack, finalPawnHome)
}
