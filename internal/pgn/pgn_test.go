package pgn

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hailam/chessdb/internal/chess"
)

func TestScannerParsesSimpleGame(t *testing.T) {
	input := `[Event "Test Open"]
[Site "Somewhere"]
[Date "2024.01.01"]
[Round "1"]
[White "Alice"]
[Black "Bob"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 1-0

`
	sc := NewScanner(strings.NewReader(input))
	game, err := sc.Next()
	require.NoError(t, err)
	require.Equal(t, "Alice", game.Tags["White"])
	require.Equal(t, "Bob", game.Tags["Black"])
	require.Equal(t, "1-0", game.Tags["Result"])
	require.Empty(t, game.StartFEN)

	pos := chess.NewPosition()
	var sans []string
	for n := game.Line; n != nil; n = n.Next {
		sans = append(sans, n.Move.ToSAN(pos))
		pos.MakeMove(n.Move)
	}
	require.Equal(t, []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"}, sans)

	_, err = sc.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestScannerParsesCommentsAndNAGs(t *testing.T) {
	input := `[Event "Test"]

1. e4 {best by test} e5 $1 2. Nf3 Nc6 1/2-1/2
`
	sc := NewScanner(strings.NewReader(input))
	game, err := sc.Next()
	require.NoError(t, err)

	require.Equal(t, "best by test", game.Line.Comment)
	require.Equal(t, 1, game.Line.Next.NAG)
}

func TestScannerParsesVariation(t *testing.T) {
	input := `[Event "Test"]

1. e4 e5 (1... c5 2. Nf3) 2. Nf3 Nc6 *
`
	sc := NewScanner(strings.NewReader(input))
	game, err := sc.Next()
	require.NoError(t, err)

	require.Len(t, game.Line.Next.Variations, 1)
	pos := chess.NewPosition()
	pos.MakeMove(game.Line.Move)
	variation := game.Line.Next.Variations[0]
	require.Equal(t, "c5", variation.Move.ToSAN(pos))
}

func TestScannerTruncatesOnUnresolvableMove(t *testing.T) {
	input := `[Event "Test"]

1. e4 e5 2. Zz9 Nc6 1-0
`
	sc := NewScanner(strings.NewReader(input))
	game, err := sc.Next()
	require.NoError(t, err)

	var count int
	for n := game.Line; n != nil; n = n.Next {
		count++
	}
	require.Equal(t, 2, count)
}

func TestScannerHandlesMultipleGames(t *testing.T) {
	input := `[Event "One"]
[Result "1-0"]

1. e4 e5 1-0

[Event "Two"]
[Result "0-1"]

1. d4 d5 0-1
`
	sc := NewScanner(strings.NewReader(input))

	g1, err := sc.Next()
	require.NoError(t, err)
	require.Equal(t, "One", g1.Tags["Event"])

	g2, err := sc.Next()
	require.NoError(t, err)
	require.Equal(t, "Two", g2.Tags["Event"])

	_, err = sc.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestScannerHonorsStartingFEN(t *testing.T) {
	fen := "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"
	input := `[Event "Endgame study"]
[FEN "` + fen + `"]
[SetUp "1"]

1. e4 Kd8 *
`
	sc := NewScanner(strings.NewReader(input))
	game, err := sc.Next()
	require.NoError(t, err)
	require.Equal(t, fen, game.StartFEN)
	require.NotNil(t, game.Line)
}
