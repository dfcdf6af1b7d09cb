package marketmatcher

import (
	"regexp"
	"strings"
	"time"
)

// genericSlugPattern matches "<league>-<teamA>-<teamB>-<YYYY-MM-DD>",
// fallback tier.
var genericSlugPattern = regexp.MustCompile(`^([a-z0-9]+)-([a-z0-9-]+)-vs-([a-z0-9-]+)-(\d{4}-\d{2}-\d{2})$|^([a-z0-9]+)-([a-z0-9-]+)-([a-z0-9-]+)-(\d{4}-\d{2}-\d{2})$`)

// slugFields is the parsed shape of a team-matchup slug.
type slugFields struct {
	League string
	TeamA  string
	TeamB  string
	Date   time.Time
	ok     bool
}

func parseSlug(slug string) slugFields {
	slug = strings.ToLower(strings.TrimSpace(slug))
	m := genericSlugPattern.FindStringSubmatch(slug)
	if m == nil {
		return slugFields{}
	}

	var league, teamA, teamB, dateStr string
	if m[1] != "" {
		league, teamA, teamB, dateStr = m[1], m[2], m[3], m[4]
	} else {
		league, teamA, teamB, dateStr = m[5], m[6], m[7], m[8]
	}

	d, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return slugFields{}
	}

	return slugFields{League: league, TeamA: teamA, TeamB: teamB, Date: d, ok: true}
}

// slugHeuristicMatch implements the domain-specific "home at away" matchup
// heuristic of, tolerant of team order and up to ±1 day of
// timezone skew between venues.
func slugHeuristicMatch(a, b string) bool {
	sa, sb := parseSlug(a), parseSlug(b)
	if !sa.ok || !sb.ok {
		return false
	}
	if sa.League != sb.League {
		return false
	}
	if !sameTeams(sa.TeamA, sa.TeamB, sb.TeamA, sb.TeamB) {
		return false
	}
	return dateWithinTolerance(sa.Date, sb.Date, 24*time.Hour)
}

// genericSlugMatch is the last-resort fallback: same league/teams/date with
// no tolerance window tier 3.
func genericSlugMatch(a, b string) bool {
	sa, sb := parseSlug(a), parseSlug(b)
	if !sa.ok || !sb.ok {
		return false
	}
	return sa.League == sb.League &&
		sameTeams(sa.TeamA, sa.TeamB, sb.TeamA, sb.TeamB) &&
		sa.Date.Equal(sb.Date)
}

func sameTeams(a1, a2, b1, b2 string) bool {
	return (a1 == b1 && a2 == b2) || (a1 == b2 && a2 == b1)
}

func dateWithinTolerance(a, b time.Time, tol time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}

// genericTitle reports whether a market's title is too generic to use as a
// display question, e.g. "Match Winner" — in which case the hedge venue's
// question is substituted.
func genericTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	switch t {
	case "match winner", "winner", "moneyline", "game winner", "":
		return true
	}
	return false
}
