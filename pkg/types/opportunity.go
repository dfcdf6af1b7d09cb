package types

import "time"

// OppType is the arbitrage shape: buying both legs below $1 (BUY) or
// selling both legs above $1 (SELL).
type OppType string

const (
	OppBuy  OppType = "BUY"
	OppSell OppType = "SELL"
)

// Opportunity is the scanner's per-(market pair, strategy, side, type)
// output. Identity is the tuple (MarketID, ArbSide, Strategy, Type); the
// scanner recomputes and replaces, never mutates in place.
type Opportunity struct {
	MarketID string
	ArbSide  Side
	Strategy Strategy
	Type     OppType

	PredictPrice float64
	HedgePrice   float64
	SpreadBps    int
	MaxQty       float64 // bounded by shallower of the two books

	IsNew      bool
	FirstSeen  time.Time
	LastSeen   time.Time
	ComputedAt time.Time
}

// Key identifies an opportunity slot independent of its current prices.
func (o *Opportunity) Key() string {
	return o.MarketID + "|" + string(o.ArbSide) + "|" + string(o.Strategy) + "|" + string(o.Type)
}

// Stale reports whether the opportunity has not been refreshed within
// maxAge of now, the 5-minute eviction window of
func (o *Opportunity) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(o.LastSeen) > maxAge
}
