package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// BookSource identifies which transport produced a Book snapshot.
type BookSource string

const (
	SourceWS   BookSource = "ws"
	SourceREST BookSource = "rest"
)

// PriceLevel is a single price/size pair as received over the wire.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookMessage is a raw venue websocket orderbook message (book snapshot or
// incremental price_change), shared across venue implementations.
type BookMessage struct {
	EventType string       `json:"event_type"`
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Timestamp int64        `json:"-"`
	Hash      string       `json:"hash,omitempty"`
	Bids      []PriceLevel `json:"bids,omitempty"`
	Asks      []PriceLevel `json:"asks,omitempty"`
}

// UnmarshalJSON parses the venue's string-encoded timestamp.
func (m *BookMessage) UnmarshalJSON(data []byte) error {
	type alias BookMessage
	aux := &struct {
		TimestampStr string `json:"timestamp"`
		*alias
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if aux.TimestampStr != "" {
		ts, err := strconv.ParseInt(aux.TimestampStr, 10, 64)
		if err != nil {
			return err
		}
		m.Timestamp = ts
	}

	return nil
}

// Book is the unified per-(venue,token) order-book cache entry of
// Levels are kept sorted (bids descending, asks ascending) and de-zeroed.
type Book struct {
	Venue       string
	TokenID     string
	Bids        []PriceLevelF
	Asks        []PriceLevelF
	IngestedAt  time.Time
	Source      BookSource
}

// PriceLevelF is a parsed price level, price in [0,1], size > 0.
type PriceLevelF struct {
	Price float64
	Size  float64
}

// BestBid returns the best (highest) bid level, or false if the book is empty.
func (b *Book) BestBid() (PriceLevelF, bool) {
	if len(b.Bids) == 0 {
		return PriceLevelF{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the best (lowest) ask level, or false if the book is empty.
func (b *Book) BestAsk() (PriceLevelF, bool) {
	if len(b.Asks) == 0 {
		return PriceLevelF{}, false
	}
	return b.Asks[0], true
}

// FreshFor reports whether the book satisfies the given freshness gate at
// the moment now. Used at calc-time, never at ingest-time.
func (b *Book) FreshFor(now time.Time, maxAge time.Duration) bool {
	if b == nil {
		return false
	}
	return now.Sub(b.IngestedAt) <= maxAge
}

// ParseLevels converts raw string price levels into sorted, de-zeroed float
// levels. dir selects descending (bids) or ascending (asks) order.
func ParseLevels(raw []PriceLevel, descending bool) []PriceLevelF {
	out := make([]PriceLevelF, 0, len(raw))
	for _, lvl := range raw {
		price, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil || size <= 0 {
			continue
		}
		if price <= 0 || price >= 1 {
			continue
		}
		out = append(out, PriceLevelF{Price: price, Size: size})
	}
	sortLevels(out, descending)
	return out
}

func sortLevels(levels []PriceLevelF, descending bool) {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0; j-- {
			swap := false
			if descending {
				swap = levels[j].Price > levels[j-1].Price
			} else {
				swap = levels[j].Price < levels[j-1].Price
			}
			if !swap {
				break
			}
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
}
