package marketmatcher

import "testing"

func TestSlugHeuristicMatch_SameTeamsReversedOrder(t *testing.T) {
	a := "nba-lakers-celtics-2026-03-05"
	b := "nba-celtics-lakers-2026-03-05"
	if !slugHeuristicMatch(a, b) {
		t.Fatalf("expected reversed team order to match")
	}
}

func TestSlugHeuristicMatch_ToleratesOneDaySkew(t *testing.T) {
	a := "nba-lakers-celtics-2026-03-05"
	b := "nba-lakers-celtics-2026-03-06"
	if !slugHeuristicMatch(a, b) {
		t.Fatalf("expected ±1 day skew to match")
	}
}

func TestSlugHeuristicMatch_RejectsTwoDaySkew(t *testing.T) {
	a := "nba-lakers-celtics-2026-03-05"
	b := "nba-lakers-celtics-2026-03-07"
	if slugHeuristicMatch(a, b) {
		t.Fatalf("expected 2 day skew to not match")
	}
}

func TestSlugHeuristicMatch_RejectsDifferentLeague(t *testing.T) {
	a := "nba-lakers-celtics-2026-03-05"
	b := "nhl-lakers-celtics-2026-03-05"
	if slugHeuristicMatch(a, b) {
		t.Fatalf("expected different league to not match")
	}
}

func TestGenericSlugMatch_ExactDateOnly(t *testing.T) {
	a := "nba-lakers-celtics-2026-03-05"
	b := "nba-lakers-celtics-2026-03-05"
	if !genericSlugMatch(a, b) {
		t.Fatalf("expected identical slugs to match")
	}
	c := "nba-lakers-celtics-2026-03-06"
	if genericSlugMatch(a, c) {
		t.Fatalf("generic match must not tolerate date skew")
	}
}

func TestGenericTitle(t *testing.T) {
	for _, title := range []string{"Match Winner", "winner", "Moneyline", ""} {
		if !genericTitle(title) {
			t.Errorf("expected %q to be generic", title)
		}
	}
	if genericTitle("Lakers vs Celtics - Who wins?") {
		t.Errorf("expected specific title to not be generic")
	}
}
