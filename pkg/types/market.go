package types

import "time"

// VenueRole distinguishes the two roles a venue.Client can play for a given
// pair. The same CLOB-shaped client implementation is used for both roles;
// the role is a label and does not change order-type behavior (the caller
// sets the time-in-force of each order).
type VenueRole string

const (
	RoleMaker VenueRole = "MAKER"
	RoleHedge VenueRole = "HEDGE"
)

// Side is a market outcome side.
type Side string

const (
	SideYES Side = "YES"
	SideNO  Side = "NO"
)

// VenueMarket is a single venue's view of a binary market, populated from
// that venue's market-list endpoint.
type VenueMarket struct {
	ExternalID   string // maker-venue market id or hedge-venue condition id
	Slug         string
	Question     string
	YesTokenID   string
	NoTokenID    string
	TickSize     float64
	MinOrderSize float64
	FeeRateBps   int
	NegRisk      bool
	EndDate      time.Time
	Closed       bool
	Active       bool
}

// MarketPair is the stable tuple described in: a matched maker
// market and hedge market believed to reference the same real-world event.
type MarketPair struct {
	MakerMarketID  string
	HedgeCondID    string
	MakerYesToken  string
	MakerNoToken   string
	HedgeYesToken  string
	HedgeNoToken   string
	FeeRateBps     int
	TickSize       float64
	Inverted       bool // true: hedge venue's YES corresponds to maker's NO
	NegRisk        bool
	SettlementDate *time.Time
	Question       string
	MatchedBy      string // "condition_id" | "slug_heuristic" | "generic_slug"
	MatchedAt      time.Time
}

// MakerToken returns the maker-venue token id for the given side.
func (p *MarketPair) MakerToken(side Side) string {
	if side == SideYES {
		return p.MakerYesToken
	}
	return p.MakerNoToken
}

// HedgeToken returns the hedge-venue token id that corresponds to the given
// maker-venue side, honoring the Inverted flag.
func (p *MarketPair) HedgeToken(side Side) string {
	effective := side
	if p.Inverted {
		if side == SideYES {
			effective = SideNO
		} else {
			effective = SideYES
		}
	}
	if effective == SideYES {
		return p.HedgeYesToken
	}
	return p.HedgeNoToken
}
