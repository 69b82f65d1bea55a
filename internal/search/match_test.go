package search

import (
	"testing"

	"github.com/hailam/chessdb/internal/chess"
)

func TestMatchesExactRequiresIdenticalBoard(t *testing.T) {
	target := chess.NewPosition()
	candidate := chess.NewPosition()
	if !matchesExact(target, candidate) {
		t.Fatal("identical starting positions should match")
	}

	m, err := chess.ParseSAN("e4", candidate)
	if err != nil || m == chess.NoMove {
		t.Fatalf("parse e4: %v", err)
	}
	candidate.MakeMove(m)
	if matchesExact(target, candidate) {
		t.Fatal("positions differing by one move should not match")
	}
}

func TestMatchesExactIgnoresCastlingRights(t *testing.T) {
	target, err := chess.ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	candidate := chess.NewPosition() // full castling rights
	if !matchesExact(target, candidate) {
		t.Fatal("castling rights differences must not affect exact match")
	}
}

func TestMatchesPartialEmptyMaskMatchesAnything(t *testing.T) {
	pos := chess.NewPosition()
	if !matchesPartial(PieceMask{}, pos) {
		t.Fatal("all-empty mask should match any position")
	}
}

func TestMatchesPartialRequiresSubset(t *testing.T) {
	pos := chess.NewPosition()
	mask := PieceMask{Pawns: pos.Pieces[chess.White][chess.Pawn]}
	if !matchesPartial(mask, pos) {
		t.Fatal("mask identical to candidate's pawns should match")
	}

	m, err := chess.ParseSAN("e4", pos)
	if err != nil || m == chess.NoMove {
		t.Fatalf("parse e4: %v", err)
	}
	pos.MakeMove(m)
	if matchesPartial(mask, pos) {
		t.Fatal("mask requiring the e2 pawn still on rank 2 should fail after e4")
	}
}
