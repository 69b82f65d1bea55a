// Package search implements the reachability-pruned position scanner: given
// a target position (exact or partial) and a game-level filter, it walks
// every candidate game's main line looking for the first ply that matches,
// pruning games that can no longer reach the target as soon as their pawn
// structure or material makes that provably impossible.
package search

import (
	"time"

	"github.com/hailam/chessdb/internal/chess"
)

// SideDiscipline constrains which side a queried player must have played.
type SideDiscipline int

const (
	// Any matches the player on either side.
	Any SideDiscipline = iota
	// WhiteBlack requires Player1 as white and Player2 as black.
	WhiteBlack
	// BlackWhite requires Player1 as black and Player2 as white.
	BlackWhite
)

// SortKey orders the result set.
type SortKey int

const (
	SortByID SortKey = iota
	SortByDate
	SortByWhiteElo
	SortByBlackElo
	SortByAverageElo
	SortByPlyCount
)

// PieceMask is a Partial query's per-family subset constraint. A zero
// (empty) field means "don't care"; a non-zero field must be a subset of
// the candidate's same family. Kings/Queens/.../Pawns combine both colors;
// White/Black are full-occupancy masks for that side alone.
type PieceMask struct {
	Kings, Queens, Rooks, Bishops, Knights, Pawns chess.Bitboard
	White, Black                                  chess.Bitboard
}

// IsEmpty reports whether every family in the mask is "don't care", which
// matches any position unconditionally.
func (m PieceMask) IsEmpty() bool {
	return m.Kings == 0 && m.Queens == 0 && m.Rooks == 0 && m.Bishops == 0 &&
		m.Knights == 0 && m.Pawns == 0 && m.White == 0 && m.Black == 0
}

// TargetMaterial is the target board's own material count, snapshotted at
// query construction so the reachability check never has to recompute it.
type TargetMaterial struct {
	White, Black int
}

// PositionQuery is either an Exact target (derived from one FEN) or a
// Partial piece-mask constraint; exactly one of Exact's branches applies.
type PositionQuery struct {
	Exact    bool
	Target   *chess.Position // valid when Exact
	Mask     PieceMask       // valid when !Exact
	Material TargetMaterial  // valid when Exact
	PawnHome uint16          // valid when Exact
}

// NewExactQuery derives an Exact position query from a fully specified
// board, snapshotting the material and pawn-home fingerprint the
// reachability check needs.
func NewExactQuery(target *chess.Position) PositionQuery {
	w, b := target.MaterialCount()
	return PositionQuery{
		Exact:    true,
		Target:   target,
		Material: TargetMaterial{White: w, Black: b},
		PawnHome: target.PawnHome(),
	}
}

// NewPartialQuery wraps a piece-family mask. An all-empty mask matches
// every position.
func NewPartialQuery(mask PieceMask) PositionQuery {
	return PositionQuery{Exact: false, Mask: mask}
}

// GameFilter carries the orthogonal, position-independent constraints a
// game query layers on top of its PositionQuery.
type GameFilter struct {
	Player1, Player2 int64 // 0 means unconstrained
	Sides            SideDiscipline
	EventID          int64
	DateFrom, DateTo string // PGN-style "YYYY.MM.DD", lexically comparable
	Result           string
	WhiteEloMin, WhiteEloMax int
	BlackEloMin, BlackEloMax int

	// MaterialPrefilter enables the local-database SQL pre-filter
	// restricting candidate rows to ones whose stored material is at
	// least the target's. Off by default for online-provenance
	// databases, where those columns aren't trustworthy.
	MaterialPrefilter bool

	Sort          SortKey
	SortDescending bool

	// GameDetailsLimit truncates the sample buffer before detail reload;
	// defaults to 10, capped at 1,000.
	GameDetailsLimit int
}

// Request is one full search request: the tab id for progress reporting,
// the database file to scan, and the query itself.
type Request struct {
	TabID      string
	DBPath     string
	Position   PositionQuery
	Filter     GameFilter
}

// ContinuationStat aggregates outcomes for one continuation move (in SAN,
// or "*" when the game ended at the matched position).
type ContinuationStat struct {
	Move       string
	WhiteWins  int
	Draws      int
	BlackWins  int
}

// Result is the outcome of a completed (non-cached) scan.
type Result struct {
	Continuations []ContinuationStat
	SampleIDs     []int64 // capped at 1,000, truncated to GameDetailsLimit by the caller
	RowsScanned   int
	Elapsed       time.Duration
}

// Progress is emitted periodically during a scan and once, terminally, at
// completion (Finished true, Percent 100).
type Progress struct {
	TabID    string
	Percent  int
	Finished bool
}

// ProgressFunc receives Progress events; nil is a valid no-op sink.
type ProgressFunc func(Progress)
