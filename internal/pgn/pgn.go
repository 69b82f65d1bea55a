// Package pgn streams games out of a portable-notation archive: a tag-pair
// header followed by movetext (SAN moves, move numbers, comments, NAGs and
// nested variations). Each game is resolved against the chess package's
// legal-move generator as it's parsed, so a SAN token that doesn't match
// any legal move truncates that game's line rather than failing the whole
// archive — one bad game must never cost the rest of the import.
package pgn

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hailam/chessdb/internal/chess"
	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/codec"
)

// Game is one parsed archive entry: its tag pairs, its starting FEN (empty
// meaning the standard start), and its parsed move tree.
type Game struct {
	Tags     map[string]string
	StartFEN string
	Line     *codec.Node
}

// Scanner reads Games one at a time from an archive reader.
type Scanner struct {
	r      *bufio.Reader
	pushed []string
	eof    bool
}

// NewScanner wraps r (already decompressed, if the archive was compressed)
// in a PGN game scanner.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// nextLine returns the next input line with trailing newline stripped,
// and false once the underlying reader (and any pushed-back line) is
// exhausted.
func (s *Scanner) nextLine() (string, bool) {
	if n := len(s.pushed); n > 0 {
		line := s.pushed[n-1]
		s.pushed = s.pushed[:n-1]
		return line, true
	}
	if s.eof {
		return "", false
	}
	line, err := s.r.ReadString('\n')
	if err != nil {
		s.eof = true
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return "", false
		}
		return line, true
	}
	return strings.TrimRight(line, "\r\n"), true
}

func (s *Scanner) pushback(line string) {
	s.pushed = append(s.pushed, line)
}

// Next returns the next game, or io.EOF when the archive is exhausted.
func (s *Scanner) Next() (*Game, error) {
	tags := make(map[string]string)

	line, ok := s.nextLine()
	for ok && strings.TrimSpace(line) == "" {
		line, ok = s.nextLine()
	}
	if !ok {
		return nil, io.EOF
	}

	for ok && strings.HasPrefix(strings.TrimSpace(line), "[") {
		if tag, value, valid := parseTagLine(line); valid {
			tags[tag] = value
		}
		line, ok = s.nextLine()
	}

	var movetext strings.Builder
	for ok {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			s.pushback(line)
			break
		}
		movetext.WriteString(line)
		movetext.WriteByte(' ')
		line, ok = s.nextLine()
	}

	if len(tags) == 0 && movetext.Len() == 0 {
		return nil, io.EOF
	}

	startFEN := ""
	if fen, ok := tags["FEN"]; ok {
		startFEN = fen
	}

	pos, err := startPosition(startFEN)
	if err != nil {
		return nil, err
	}

	toks := tokenize(movetext.String())
	gameLine := parseMovetext(pos, toks)

	return &Game{Tags: tags, StartFEN: startFEN, Line: gameLine}, nil
}

func startPosition(fen string) (*chess.Position, error) {
	if fen == "" {
		return chess.NewPosition(), nil
	}
	pos, err := chess.ParseFEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse starting fen %q: %w: %w", fen, chessdberr.FenError, err)
	}
	return pos, nil
}

func parseTagLine(line string) (tag, value string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", "", false
	}
	inner := line[1 : len(line)-1]
	sp := strings.IndexByte(inner, ' ')
	if sp < 0 {
		return "", "", false
	}
	tag = inner[:sp]
	rest := strings.TrimSpace(inner[sp+1:])
	rest = strings.TrimPrefix(rest, `"`)
	rest = strings.TrimSuffix(rest, `"`)
	return tag, rest, true
}

// tokenKind classifies one lexed movetext token.
type tokenKind int

const (
	tokMove tokenKind = iota
	tokComment
	tokNAG
	tokBeginVariation
	tokEndVariation
	tokResult
)

type token struct {
	kind tokenKind
	text string
}

var resultTokens = map[string]bool{
	"1-0":       true,
	"0-1":       true,
	"1/2-1/2":   true,
	"*":         true,
}

// tokenize lexes a movetext blob into a flat token stream. Move-number
// markers ("12.", "12...") are consumed silently; they carry no
// information the codec needs.
func tokenize(text string) []token {
	var toks []token
	i, n := 0, len(text)

	for i < n {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '{':
			j := strings.IndexByte(text[i+1:], '}')
			if j < 0 {
				toks = append(toks, token{tokComment, text[i+1:]})
				i = n
			} else {
				toks = append(toks, token{tokComment, text[i+1 : i+1+j]})
				i = i + 1 + j + 1
			}
		case c == ';':
			j := strings.IndexByte(text[i:], '\n')
			if j < 0 {
				i = n
			} else {
				i += j
			}
		case c == '(':
			toks = append(toks, token{kind: tokBeginVariation})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokEndVariation})
			i++
		case c == '$':
			j := i + 1
			for j < n && text[j] >= '0' && text[j] <= '9' {
				j++
			}
			toks = append(toks, token{tokNAG, text[i+1 : j]})
			i = j
		case c >= '0' && c <= '9':
			j := i
			for j < n && (isWordByte(text[j])) {
				j++
			}
			word := text[i:j]
			i = j
			if isMoveNumber(word) {
				continue
			}
			if resultTokens[word] {
				toks = append(toks, token{kind: tokResult, text: word})
				continue
			}
			toks = append(toks, token{tokMove, word})
		default:
			j := i
			for j < n && isWordByte(text[j]) {
				j++
			}
			if j == i {
				i++
				continue
			}
			word := text[i:j]
			i = j
			if resultTokens[word] {
				toks = append(toks, token{kind: tokResult, text: word})
				continue
			}
			toks = append(toks, token{tokMove, word})
		}
	}

	return toks
}

func isWordByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '=' || c == '+' || c == '#' || c == '/' || c == '.':
		return true
	}
	return false
}

// isMoveNumber reports whether word is purely a move-number marker such
// as "12." or "12...", with no SAN content attached.
func isMoveNumber(word string) bool {
	i := 0
	for i < len(word) && word[i] >= '0' && word[i] <= '9' {
		i++
	}
	if i == 0 {
		return false
	}
	for ; i < len(word); i++ {
		if word[i] != '.' {
			return false
		}
	}
	return true
}

// tokenStream is a cursor over a token slice with one-token lookahead.
type tokenStream struct {
	toks []token
	pos  int
}

func (ts *tokenStream) peek() (token, bool) {
	if ts.pos >= len(ts.toks) {
		return token{}, false
	}
	return ts.toks[ts.pos], true
}

func (ts *tokenStream) next() (token, bool) {
	t, ok := ts.peek()
	if ok {
		ts.pos++
	}
	return t, ok
}

// parseMovetext parses the main line of a game from pos, which is
// mutated to track replay state as moves resolve.
func parseMovetext(pos *chess.Position, toks []token) *codec.Node {
	ts := &tokenStream{toks: toks}
	line, _ := parseLine(pos, ts)
	return line
}

// parseLine consumes tokens until end-of-stream, a result token, or an
// end-variation token (left unconsumed for the caller). It returns the
// parsed line and true if it stopped because a SAN token failed to
// resolve against the legal-move list (the caller should not attempt to
// resolve anything further at its nesting level, but open variations and
// the overall archive scan continue unaffected).
func parseLine(pos *chess.Position, ts *tokenStream) (*codec.Node, bool) {
	var head, tail *codec.Node
	prevPos := pos.Copy()

	for {
		t, ok := ts.peek()
		if !ok || t.kind == tokResult || t.kind == tokEndVariation {
			return head, false
		}

		switch t.kind {
		case tokComment:
			ts.next()
			if tail != nil {
				if tail.Comment != "" {
					tail.Comment += " "
				}
				tail.Comment += strings.TrimSpace(t.text)
			}
		case tokNAG:
			ts.next()
			if tail != nil {
				if n, err := strconv.Atoi(t.text); err == nil {
					tail.NAG = n
				}
			}
		case tokBeginVariation:
			ts.next()
			if tail == nil {
				skipVariation(ts)
				continue
			}
			variation, _ := parseLine(prevPos.Copy(), ts)
			if end, ok := ts.peek(); ok && end.kind == tokEndVariation {
				ts.next()
			}
			if variation != nil {
				tail.Variations = append(tail.Variations, variation)
			}
		case tokMove:
			ts.next()
			m, err := chess.ParseSAN(t.text, pos)
			if err != nil || m == chess.NoMove {
				skipToBoundary(ts)
				return head, true
			}
			node := &codec.Node{Move: m, NAG: -1}
			if head == nil {
				head = node
			} else {
				tail.Next = node
			}
			tail = node
			prevPos = pos.Copy()
			pos.MakeMove(m)
		}
	}
}

// skipVariation discards tokens up to and including the matching
// end-variation token, for a "(" that has no preceding move to attach to
// (malformed input).
func skipVariation(ts *tokenStream) {
	depth := 1
	for depth > 0 {
		t, ok := ts.next()
		if !ok {
			return
		}
		switch t.kind {
		case tokBeginVariation:
			depth++
		case tokEndVariation:
			depth--
		}
	}
}

// skipToBoundary discards tokens until the current nesting level's
// terminator (result or end-variation), tracking nested variations so it
// doesn't stop early on an inner ")".
func skipToBoundary(ts *tokenStream) {
	depth := 0
	for {
		t, ok := ts.peek()
		if !ok {
			return
		}
		switch t.kind {
		case tokResult:
			if depth == 0 {
				return
			}
			ts.next()
		case tokEndVariation:
			if depth == 0 {
				return
			}
			depth--
			ts.next()
		case tokBeginVariation:
			depth++
			ts.next()
		default:
			ts.next()
		}
	}
}
