package codec

import (
	"testing"

	"github.com/hailam/chessdb/internal/chess"
)

func mustSAN(t *testing.T, pos *chess.Position, sans ...string) *Node {
	t.Helper()
	var head, tail *Node
	w := pos.Copy()
	for _, s := range sans {
		m, err := chess.ParseSAN(s, w)
		if err != nil {
			t.Fatalf("parse san %q: %v", s, err)
		}
		n := &Node{Move: m, NAG: -1}
		if head == nil {
			head = n
		} else {
			tail.Next = n
		}
		tail = n
		w.MakeMove(m)
	}
	return head
}

func TestEncodeDecodeMainLineRoundTrip(t *testing.T) {
	pos := chess.NewPosition()
	line := mustSAN(t, pos, "e4", "e5", "Nf3", "Nc6", "Bb5")

	blob, err := Encode(pos, line)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	moves, err := DecodeMainLine(pos, blob)
	if err != nil {
		t.Fatalf("decode main line: %v", err)
	}

	want := []string{"e4", "e5", "Nf3", "Nc6", "Bb5"}
	if len(moves) != len(want) {
		t.Fatalf("got %d moves, want %d", len(moves), len(want))
	}

	w := pos.Copy()
	for i, m := range moves {
		san := m.ToSAN(w)
		if san != want[i] {
			t.Errorf("ply %d: got %s, want %s", i, san, want[i])
		}
		w.MakeMove(m)
	}
}

func TestEncodeDecodeCommentAndNAG(t *testing.T) {
	pos := chess.NewPosition()
	line := mustSAN(t, pos, "e4", "e5")
	line.Comment = "the open game"
	line.Next.NAG = 1

	blob, err := Encode(pos, line)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tree, err := Decode(pos, blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if tree.Comment != "the open game" {
		t.Errorf("comment = %q, want %q", tree.Comment, "the open game")
	}
	if tree.Next == nil || tree.Next.NAG != 1 {
		t.Errorf("nag not round-tripped: %+v", tree.Next)
	}
}

func TestEncodeDecodeVariation(t *testing.T) {
	pos := chess.NewPosition()
	mainLine := mustSAN(t, pos, "e4", "e5", "Nf3")
	afterE4 := pos.Copy()
	afterE4.MakeMove(mainLine.Move)
	sicilian := mustSAN(t, afterE4, "c5")
	mainLine.Next.Variations = append(mainLine.Next.Variations, sicilian)

	blob, err := Encode(pos, mainLine)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tree, err := Decode(pos, blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if tree.Next == nil || len(tree.Next.Variations) != 1 {
		t.Fatalf("got no single variation on 1...e5: %+v", tree.Next)
	}
	gotVar := tree.Next.Variations[0].Move.ToSAN(afterE4)
	if gotVar != "c5" {
		t.Errorf("variation move = %s, want c5", gotVar)
	}

	// DecodeMainLine must skip the variation entirely and still recover
	// the three main-line plies.
	moves, err := DecodeMainLine(pos, blob)
	if err != nil {
		t.Fatalf("decode main line: %v", err)
	}
	if len(moves) != 3 {
		t.Fatalf("got %d main-line moves, want 3", len(moves))
	}
}

func TestEncodeRejectsIllegalMove(t *testing.T) {
	pos := chess.NewPosition()
	bogus := &Node{Move: chess.NewMove(chess.E2, chess.E5), NAG: -1}
	if _, err := Encode(pos, bogus); err == nil {
		t.Fatal("expected error encoding an illegal move")
	}
}

func TestDecodeMainLineRejectsOutOfRangeIndex(t *testing.T) {
	pos := chess.NewPosition()
	if _, err := DecodeMainLine(pos, []byte{255}); err == nil {
		t.Fatal("expected error for out-of-range move index")
	}
}

func TestMainLineDecoderStreamsSamePlyOrderAsDecodeMainLine(t *testing.T) {
	pos := chess.NewPosition()
	line := mustSAN(t, pos, "e4", "e5", "Nf3", "Nc6", "Bb5")
	blob, err := Encode(pos, line)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want, err := DecodeMainLine(pos, blob)
	if err != nil {
		t.Fatalf("decode main line: %v", err)
	}

	dec := NewMainLineDecoder(pos, blob)
	var got []chess.Move
	for {
		m, ok, err := dec.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, m)
	}

	if len(got) != len(want) {
		t.Fatalf("got %d moves, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ply %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMainLineDecoderSkipsVariationsCommentsAndNAGs(t *testing.T) {
	pos := chess.NewPosition()
	mainLine := mustSAN(t, pos, "e4", "e5", "Nf3")
	mainLine.Comment = "the open game"
	mainLine.Next.NAG = 1
	afterE4 := pos.Copy()
	afterE4.MakeMove(mainLine.Move)
	sicilian := mustSAN(t, afterE4, "c5")
	mainLine.Next.Variations = append(mainLine.Next.Variations, sicilian)

	blob, err := Encode(pos, mainLine)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	dec := NewMainLineDecoder(pos, blob)
	var plies int
	for {
		_, ok, err := dec.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		plies++
	}
	if plies != 3 {
		t.Fatalf("got %d main-line plies, want 3", plies)
	}
}

func TestMainLineDecoderStopsEarlyWithoutDecodingRemainder(t *testing.T) {
	pos := chess.NewPosition()
	line := mustSAN(t, pos, "e4", "e5", "Nf3", "Nc6", "Bb5")
	blob, err := Encode(pos, line)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	dec := NewMainLineDecoder(pos, blob)
	m, ok, err := dec.Next()
	if err != nil || !ok {
		t.Fatalf("next: %v %v", ok, err)
	}
	if got := m.ToSAN(pos); got != "e4" {
		t.Fatalf("first ply = %s, want e4", got)
	}

	// Corrupt the rest of the blob: a caller that stopped after one ply
	// (because canReach failed) must never notice.
	corrupted := append([]byte(nil), blob...)
	for i := 1; i < len(corrupted); i++ {
		corrupted[i] = 255
	}
	dec2 := NewMainLineDecoder(pos, corrupted)
	m2, ok2, err2 := dec2.Next()
	if err2 != nil || !ok2 {
		t.Fatalf("next on corrupted tail: %v %v", ok2, err2)
	}
	if got := m2.ToSAN(pos); got != "e4" {
		t.Fatalf("first ply = %s, want e4", got)
	}
	if _, _, err := dec2.Next(); err == nil {
		t.Fatal("expected error decoding the corrupted second ply")
	}
}

func TestPlyCount(t *testing.T) {
	pos := chess.NewPosition()
	line := mustSAN(t, pos, "d4", "d5", "c4")
	blob, err := Encode(pos, line)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	n, err := PlyCount(pos, blob)
	if err != nil {
		t.Fatalf("ply count: %v", err)
	}
	if n != 3 {
		t.Errorf("ply count = %d, want 3", n)
	}
}
