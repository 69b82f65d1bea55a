// Package codec implements the byte-per-ply move encoding stored in the
// Games table's moves blob: each ply is the index of the chosen move in
// chess.GenerateLegalMoves's canonical order at the position reached so
// far, with four reserved sentinel bytes carrying variations, comments and
// NAGs inline. Decoding therefore requires replaying the position move by
// move; there is no position-independent move representation in the blob.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/hailam/chessdb/internal/chess"
	"github.com/hailam/chessdb/internal/chessdberr"
)

// Sentinel bytes. A legal position never has more than 218 moves, so
// anything from 219 upward is free for framing.
const (
	sentinelBeginVariation byte = 254
	sentinelEndVariation   byte = 253
	sentinelComment        byte = 252
	sentinelNAG            byte = 251

	maxPlainIndex = 250 // highest byte value usable as a move index
)

// Node is one ply of a parsed game tree. Variations holds alternatives to
// Move, each branching
// from the position before Move was played; Next continues the main line
// after Move.
type Node struct {
	Move       chess.Move
	Comment    string
	NAG        int // -1 when absent
	Variations []*Node
	Next       *Node
}

// Encode serializes line, whose first node holds the first move played
// from pos, into the blob format. pos is the position the line begins
// from; it is not mutated.
func Encode(pos *chess.Position, line *Node) ([]byte, error) {
	buf := make([]byte, 0, 256)
	w := pos.Copy()
	out, err := encodeLine(buf, w, line)
	if err != nil {
		return nil, fmt.Errorf("encode move line: %w: %w", chessdberr.Storage, err)
	}
	return out, nil
}

func encodeLine(buf []byte, pos *chess.Position, n *Node) ([]byte, error) {
	for n != nil {
		moves := pos.GenerateLegalMoves()
		idx := indexOf(moves, n.Move)
		if idx < 0 {
			return nil, fmt.Errorf("move %s is not legal in position %s", n.Move, pos.ToFEN())
		}
		if idx > maxPlainIndex {
			return nil, fmt.Errorf("move index %d exceeds encodable range", idx)
		}
		buf = append(buf, byte(idx))

		if n.NAG >= 0 {
			if n.NAG > 255 {
				return nil, fmt.Errorf("nag %d does not fit in one byte", n.NAG)
			}
			buf = append(buf, sentinelNAG, byte(n.NAG))
		}
		if n.Comment != "" {
			buf = append(buf, sentinelComment)
			var lenBytes [8]byte
			binary.BigEndian.PutUint64(lenBytes[:], uint64(len(n.Comment)))
			buf = append(buf, lenBytes[:]...)
			buf = append(buf, n.Comment...)
		}

		for _, v := range n.Variations {
			buf = append(buf, sentinelBeginVariation)
			var err error
			buf, err = encodeLine(buf, pos.Copy(), v)
			if err != nil {
				return nil, err
			}
			buf = append(buf, sentinelEndVariation)
		}

		pos.MakeMove(n.Move)
		n = n.Next
	}
	return buf, nil
}

func indexOf(ml *chess.MoveList, m chess.Move) int {
	for i := 0; i < ml.Len(); i++ {
		if ml.Get(i) == m {
			return i
		}
	}
	return -1
}

// Decode parses the full tree (main line, comments, NAGs and nested
// variations) encoded in data, starting from pos. pos is not mutated.
func Decode(pos *chess.Position, data []byte) (*Node, error) {
	r := &reader{data: data}
	w := pos.Copy()
	n, err := decodeLine(w, r)
	if err != nil {
		return nil, fmt.Errorf("decode move line: %w: %w", chessdberr.Storage, err)
	}
	return n, nil
}

// DecodeMainLine returns only the main-line moves, skipping every
// variation, comment and NAG without materializing a tree. PlyCount and the
// checkpoint builder use it; the position-search scan streams plies with
// MainLineDecoder instead.
func DecodeMainLine(pos *chess.Position, data []byte) ([]chess.Move, error) {
	r := &reader{data: data}
	w := pos.Copy()
	moves, err := decodeMainLineOnly(w, r)
	if err != nil {
		return nil, fmt.Errorf("decode main line: %w: %w", chessdberr.Storage, err)
	}
	return moves, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) peek() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	return r.data[r.pos], true
}

func (r *reader) next() (byte, bool) {
	b, ok := r.peek()
	if ok {
		r.pos++
	}
	return b, ok
}

func (r *reader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("truncated comment length")
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *reader) readString(n uint64) (string, error) {
	if uint64(r.pos)+n > uint64(len(r.data)) {
		return "", fmt.Errorf("truncated comment body")
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// decodeLine decodes a full line (moves plus any attached comments, NAGs
// and variations) until it hits end-of-data or a variation-end sentinel
// belonging to the caller.
func decodeLine(pos *chess.Position, r *reader) (*Node, error) {
	var head, tail *Node

	for {
		b, ok := r.peek()
		if !ok {
			break
		}
		if b == sentinelEndVariation {
			break
		}

		idxByte, _ := r.next()
		if idxByte == sentinelBeginVariation || idxByte == sentinelComment || idxByte == sentinelNAG {
			return nil, fmt.Errorf("unexpected sentinel 0x%x where a move index was expected", idxByte)
		}

		moves := pos.GenerateLegalMoves()
		idx := int(idxByte)
		if idx >= moves.Len() {
			return nil, fmt.Errorf("move index %d out of range (%d legal moves)", idx, moves.Len())
		}
		node := &Node{Move: moves.Get(idx), NAG: -1}

		for {
			b, ok := r.peek()
			if !ok {
				break
			}
			switch b {
			case sentinelNAG:
				r.next()
				nag, ok := r.next()
				if !ok {
					return nil, fmt.Errorf("truncated nag")
				}
				node.NAG = int(nag)
			case sentinelComment:
				r.next()
				n, err := r.readUint64()
				if err != nil {
					return nil, err
				}
				s, err := r.readString(n)
				if err != nil {
					return nil, err
				}
				node.Comment = s
			case sentinelBeginVariation:
				r.next()
				v, err := decodeLine(pos.Copy(), r)
				if err != nil {
					return nil, err
				}
				node.Variations = append(node.Variations, v)
				end, ok := r.next()
				if !ok || end != sentinelEndVariation {
					return nil, fmt.Errorf("variation missing end sentinel")
				}
			default:
				goto advance
			}
		}
	advance:
		pos.MakeMove(node.Move)

		if head == nil {
			head = node
		} else {
			tail.Next = node
		}
		tail = node
	}

	return head, nil
}

// MainLineDecoder streams a main line's moves one ply at a time instead
// of materializing the whole slice up front. This is what the
// position-search engine's per-row scan uses: after each Next, it checks
// whether the reached position can still possibly transition into the
// target before paying to decode the next ply, so a game whose material
// or pawn structure diverges early is abandoned without ever decoding
// its later moves.
type MainLineDecoder struct {
	pos *chess.Position
	r   *reader
}

// NewMainLineDecoder starts a streaming main-line decode of data from
// pos. pos is not mutated; the decoder keeps and advances its own copy.
func NewMainLineDecoder(pos *chess.Position, data []byte) *MainLineDecoder {
	return &MainLineDecoder{pos: pos.Copy(), r: &reader{data: data}}
}

// Next decodes, plays and returns the next main-line move. ok is false
// once the line is exhausted (not an error). Comments, NAGs and
// variations attached to the move are skipped, same as DecodeMainLine.
func (d *MainLineDecoder) Next() (chess.Move, bool, error) {
	b, has := d.r.peek()
	if !has || b == sentinelEndVariation {
		return chess.NoMove, false, nil
	}

	idxByte, _ := d.r.next()
	if idxByte == sentinelBeginVariation || idxByte == sentinelComment || idxByte == sentinelNAG {
		return chess.NoMove, false, fmt.Errorf("unexpected sentinel 0x%x where a move index was expected", idxByte)
	}

	legal := d.pos.GenerateLegalMoves()
	idx := int(idxByte)
	if idx >= legal.Len() {
		return chess.NoMove, false, fmt.Errorf("move index %d out of range (%d legal moves)", idx, legal.Len())
	}
	mv := legal.Get(idx)

loop:
	for {
		b, has := d.r.peek()
		if !has {
			break
		}
		switch b {
		case sentinelNAG:
			d.r.next()
			d.r.next()
		case sentinelComment:
			d.r.next()
			n, err := d.r.readUint64()
			if err != nil {
				return chess.NoMove, false, err
			}
			if _, err := d.r.readString(n); err != nil {
				return chess.NoMove, false, err
			}
		case sentinelBeginVariation:
			d.r.next()
			if err := skipVariation(d.r); err != nil {
				return chess.NoMove, false, err
			}
		default:
			break loop
		}
	}

	d.pos.MakeMove(mv)
	return mv, true, nil
}

// Pos returns the position reached after the most recently returned
// move (or the decoder's starting position, before any Next call).
func (d *MainLineDecoder) Pos() *chess.Position {
	return d.pos
}

// decodeMainLineOnly walks the same grammar as decodeLine but discards
// comments, NAGs and variations, returning just the move slice.
func decodeMainLineOnly(pos *chess.Position, r *reader) ([]chess.Move, error) {
	var moves []chess.Move

	for {
		b, ok := r.peek()
		if !ok {
			break
		}
		if b == sentinelEndVariation {
			break
		}

		idxByte, _ := r.next()
		if idxByte == sentinelBeginVariation || idxByte == sentinelComment || idxByte == sentinelNAG {
			return nil, fmt.Errorf("unexpected sentinel 0x%x where a move index was expected", idxByte)
		}

		legal := pos.GenerateLegalMoves()
		idx := int(idxByte)
		if idx >= legal.Len() {
			return nil, fmt.Errorf("move index %d out of range (%d legal moves)", idx, legal.Len())
		}
		m := legal.Get(idx)
		moves = append(moves, m)

		for {
			b, ok := r.peek()
			if !ok {
				break
			}
			switch b {
			case sentinelNAG:
				r.next()
				r.next()
			case sentinelComment:
				r.next()
				n, err := r.readUint64()
				if err != nil {
					return nil, err
				}
				if _, err := r.readString(n); err != nil {
					return nil, err
				}
			case sentinelBeginVariation:
				r.next()
				if err := skipVariation(r); err != nil {
					return nil, err
				}
			default:
				goto advance
			}
		}
	advance:
		pos.MakeMove(m)
	}

	return moves, nil
}

// skipVariation discards bytes up to and including the matching end
// sentinel, without resolving move indices (a variation's moves are only
// meaningful against the position it branches from, which the main-line
// fast path never reconstructs).
func skipVariation(r *reader) error {
	depth := 1
	for {
		b, ok := r.next()
		if !ok {
			return fmt.Errorf("unterminated variation")
		}
		switch b {
		case sentinelBeginVariation:
			depth++
		case sentinelEndVariation:
			depth--
			if depth == 0 {
				return nil
			}
		case sentinelComment:
			n, err := r.readUint64()
			if err != nil {
				return err
			}
			if _, err := r.readString(n); err != nil {
				return err
			}
		case sentinelNAG:
			if _, ok := r.next(); !ok {
				return fmt.Errorf("truncated nag in variation")
			}
		}
	}
}

// PlyCount returns the number of main-line plies encoded in data, by
// decoding the main line with DecodeMainLine and counting its moves.
func PlyCount(pos *chess.Position, data []byte) (int, error) {
	moves, err := DecodeMainLine(pos, data)
	if err != nil {
		return 0, err
	}
	return len(moves), nil
}
