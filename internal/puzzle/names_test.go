package puzzle

import "testing"

func TestThemeFriendlyNameExactMatch(t *testing.T) {
	if got := ThemeFriendlyName("backrankmate"); got != "Back Rank Mate" {
		t.Fatalf("got %q", got)
	}
	if got := ThemeFriendlyName("matein2"); got != "Mate in 2" {
		t.Fatalf("got %q", got)
	}
}

func TestThemeFriendlyNameCaseInsensitiveLookup(t *testing.T) {
	if got := ThemeFriendlyName("BackRankMate"); got != "Back Rank Mate" {
		t.Fatalf("got %q", got)
	}
}

func TestThemeFriendlyNameFallsBackToWordSplit(t *testing.T) {
	got := ThemeFriendlyName("someUnknownTheme123")
	if got != "Some Unknown Theme 123" {
		t.Fatalf("got %q", got)
	}
}

func TestOpeningTagFriendlyNameExactMatch(t *testing.T) {
	if got := OpeningTagFriendlyName("queensgambit"); got != "Queen's Gambit" {
		t.Fatalf("got %q", got)
	}
}

func TestThemeCategoryGroupsMatePatterns(t *testing.T) {
	if got := themeCategory("backrankmate"); got != "Mate Patterns" {
		t.Fatalf("got %q", got)
	}
	if got := themeCategory("fork"); got != "Tactics" {
		t.Fatalf("got %q", got)
	}
	if got := themeCategory("somethingelse"); got != "Other" {
		t.Fatalf("got %q", got)
	}
}
