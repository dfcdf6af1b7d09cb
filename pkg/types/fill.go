package types

import "time"

// Fill is a single matched quantity delta reported by a venue, either from
// a fill-event stream or inferred from an OrderStatus diff.
type Fill struct {
	Venue     string
	OrderHash string
	TokenID   string
	Qty       float64
	Price     float64
	Side      Side
	At        time.Time
}

// PendingHedgeBatch accumulates maker-leg fills that have not yet been
// reflected in a hedge order incremental hedging. The executor
// drains it whenever accumulated Qty crosses MIN_HEDGE_QTY_SHARES or
// MIN_HEDGE_NOTIONAL_USD.
type PendingHedgeBatch struct {
	TaskID    string
	Qty       float64
	NotionalUSD float64
	Since     time.Time
}

// Add folds a new maker fill into the batch.
func (b *PendingHedgeBatch) Add(f Fill) {
	if b.Qty == 0 {
		b.Since = f.At
	}
	b.Qty += f.Qty
	b.NotionalUSD += f.Qty * f.Price
}

// Ready reports whether the batch has crossed either minimum threshold.
func (b *PendingHedgeBatch) Ready(minQty, minNotional float64) bool {
	return b.Qty >= minQty || b.NotionalUSD >= minNotional
}

// Reset clears the batch after a hedge order has been submitted for it.
func (b *PendingHedgeBatch) Reset() {
	b.Qty = 0
	b.NotionalUSD = 0
	b.Since = time.Time{}
}
