package puzzle

import (
	"strings"
	"unicode"
)

// themeFriendlyNames is the exact-match table for puzzle themes; anything
// not found here falls through to splitCamelCase.
var themeFriendlyNames = map[string]string{
	"advantage":          "Advantage",
	"anastasiamate":      "Anastasia's Mate",
	"arabianmate":        "Arabian Mate",
	"attackingf2f7":      "Attacking f2/f7",
	"backrankmate":       "Back Rank Mate",
	"bishopendgame":      "Bishop Endgame",
	"bodenmate":          "Boden's Mate",
	"capturingdefender":  "Capturing Defender",
	"castling":           "Castling",
	"crushing":           "Crushing",
	"defensive":          "Defensive",
	"deflection":         "Deflection",
	"discoveredattack":   "Discovered Attack",
	"doublecheck":        "Double Check",
	"doublestake":        "Double Threat",
	"endgame":            "Endgame",
	"enpassant":          "En Passant",
	"equality":           "Equality",
	"exposedking":        "Exposed King",
	"fork":               "Fork",
	"hangingpiece":       "Hanging Piece",
	"interference":       "Interference",
	"intermezzo":         "Intermezzo",
	"knightendgame":      "Knight Endgame",
	"long":               "Long",
	"mate":               "Mate",
	"matein1":            "Mate in 1",
	"matein2":            "Mate in 2",
	"matein3":            "Mate in 3",
	"matein4":            "Mate in 4",
	"matein5":            "Mate in 5",
	"middlegame":         "Middlegame",
	"one-move":           "One Move",
	"opening":            "Opening",
	"pawnendgame":        "Pawn Endgame",
	"pin":                "Pin",
	"promotion":          "Promotion",
	"queenendgame":       "Queen Endgame",
	"queenrookendgame":   "Queen & Rook Endgame",
	"queenrook":          "Queen & Rook",
	"doublebishopmate":   "Double Bishop Mate",
	"doublebishop":       "Double Bishop",
	"queensideattack":    "Queenside Attack",
	"kingsideattack":     "Kingside Attack",
	"quietmove":          "Quiet Move",
	"rookendgame":        "Rook Endgame",
	"sacrifice":          "Sacrifice",
	"short":              "Short",
	"skewer":             "Skewer",
	"smotheredmate":      "Smothered Mate",
	"trappedpiece":       "Trapped Piece",
	"underpromotion":     "Underpromotion",
	"verylong":           "Very Long",
	"x-rayattack":        "X-Ray Attack",
	"zugzwang":           "Zugzwang",
}

// openingTagFriendlyNames is the exact-match table for opening tags.
var openingTagFriendlyNames = map[string]string{
	"sicilian":      "Sicilian Defense",
	"french":        "French Defense",
	"catalan":       "Catalan Opening",
	"queensgambit":  "Queen's Gambit",
	"kingsgambit":   "King's Gambit",
	"italian":       "Italian Game",
	"spanish":       "Spanish Game",
	"ruylopez":      "Ruy López",
	"carokann":      "Caro-Kann Defense",
	"pirc":          "Pirc Defense",
	"modern":        "Modern Defense",
	"nimzoindian":   "Nimzo-Indian Defense",
	"queensindian":  "Queen's Indian Defense",
	"kingsindian":   "King's Indian Defense",
	"english":       "English Opening",
	"dutch":         "Dutch Defense",
	"scandinavian":  "Scandinavian Defense",
	"alekhine":      "Alekhine's Defense",
	"benoni":        "Benoni Defense",
	"grunfeld":      "Grünfeld Defense",
	"london":        "London System",
	"trompowsky":    "Trompowsky Attack",
	"reti":          "Réti Opening",
	"bird":          "Bird's Opening",
	"bogoindian":    "Bogo-Indian Defense",
	"slav":          "Slav Defense",
	"semi-slav":     "Semi-Slav Defense",
	"tarrasch":      "Tarrasch Defense",
	"scholar":       "Scholar's Mate",
	"fools":         "Fool's Mate",
}

// ThemeFriendlyName converts a technical theme tag (lichess-style, e.g.
// "backrankmate") to a display label ("Back Rank Mate"). Known tags use
// themeFriendlyNames verbatim; anything else is split on word boundaries.
func ThemeFriendlyName(theme string) string {
	if friendly, ok := themeFriendlyNames[strings.ToLower(theme)]; ok {
		return friendly
	}
	return cleanupThemePatterns(splitWords(theme))
}

// OpeningTagFriendlyName converts a technical opening-tag discriminant
// (e.g. "queensgambit") to a display label ("Queen's Gambit").
func OpeningTagFriendlyName(tag string) string {
	if friendly, ok := openingTagFriendlyNames[strings.ToLower(tag)]; ok {
		return friendly
	}
	return cleanupTagPatterns(splitWords(tag))
}

// splitWords inserts a space at camelCase/digit boundaries and turns '-'
// and '_' into spaces, capitalizing the first letter of each resulting
// word. "doublestake" with no boundary at all is left as a single
// capitalized word — only the table lookup above can recover multi-word
// labels with no case or digit signal.
func splitWords(s string) string {
	var b strings.Builder

	var prevLower, prevDigit, wordStart bool
	wordStart = true

	for _, ch := range s {
		isUpper := unicode.IsUpper(ch)
		isLower := unicode.IsLower(ch)
		isDigit := unicode.IsDigit(ch)

		if ch == '-' || ch == '_' {
			b.WriteByte(' ')
			wordStart = true
			prevLower, prevDigit = false, false
			continue
		}

		if isUpper && (prevLower || prevDigit) && b.Len() > 0 {
			b.WriteByte(' ')
			wordStart = true
		} else if isDigit && prevLower && b.Len() > 0 {
			b.WriteByte(' ')
			wordStart = true
		}

		if wordStart {
			b.WriteRune(unicode.ToUpper(ch))
			wordStart = false
		} else {
			b.WriteRune(ch)
		}

		prevLower, prevDigit = isLower, isDigit
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func cleanupThemePatterns(s string) string {
	r := strings.NewReplacer(
		"End Game", "Endgame",
		"Mate In", "Mate in",
		"Queen Rook", "Queen & Rook",
		"King Side", "Kingside",
		"Queen Side", "Queenside",
		"X Ray", "X-Ray",
		"F 2 F 7", "f2/f7",
		"F2 F7", "f2/f7",
	)
	return r.Replace(s)
}

func cleanupTagPatterns(s string) string {
	r := strings.NewReplacer(
		"Queen Rook", "Queen & Rook",
		"King Side", "Kingside",
		"Queen Side", "Queenside",
		"Semi Slav", "Semi-Slav",
		"Bogo Indian", "Bogo-Indian",
		"Nimzo Indian", "Nimzo-Indian",
	)
	return r.Replace(s)
}

// themeCategory groups a technical theme tag for display, mirroring the
// catalog's theme-group breakdown.
func themeCategory(theme string) string {
	lower := strings.ToLower(theme)

	switch {
	case strings.Contains(lower, "mate") || lower == "zugzwang":
		return "Mate Patterns"
	case isOneOf(lower, "fork", "pin", "skewer", "deflection", "discoveredattack",
		"x-rayattack", "interference", "intermezzo", "capturingdefender",
		"hangingpiece", "trappedpiece", "doublecheck", "doublestake", "exposedking"):
		return "Tactics"
	case strings.Contains(lower, "endgame"):
		return "Endgames"
	case isOneOf(lower, "advantage", "equality", "crushing", "defensive", "queensideattack"):
		return "Strategy"
	case isOneOf(lower, "castling", "enpassant", "promotion", "underpromotion"):
		return "Special Moves"
	case isOneOf(lower, "opening", "middlegame"):
		return "Game Phases"
	case isOneOf(lower, "short", "long", "verylong", "one-move"):
		return "Puzzle Length"
	default:
		return "Other"
	}
}

func isOneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
