package clob

import (
	"strconv"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// venueMarketDTO mirrors the venue's /markets list entry.
type venueMarketDTO struct {
	ConditionID  string  `json:"condition_id"`
	Slug         string  `json:"market_slug"`
	Question     string  `json:"question"`
	TickSize     string  `json:"minimum_tick_size"`
	MinOrderSize string  `json:"minimum_order_size"`
	NegRisk      bool    `json:"neg_risk"`
	Closed       bool    `json:"closed"`
	Active       bool    `json:"active"`
	EndDateISO   string  `json:"end_date_iso"`
	Tokens       []tokenDTO `json:"tokens"`
}

type tokenDTO struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

func (m venueMarketDTO) toVenueMarket() types.VenueMarket {
	vm := types.VenueMarket{
		ExternalID: m.ConditionID,
		Slug:       m.Slug,
		Question:   m.Question,
		NegRisk:    m.NegRisk,
		Closed:     m.Closed,
		Active:     m.Active,
	}
	for _, t := range m.Tokens {
		switch t.Outcome {
		case "Yes", "YES":
			vm.YesTokenID = t.TokenID
		case "No", "NO":
			vm.NoTokenID = t.TokenID
		}
	}
	return vm
}

type bookDTO struct {
	Bids []types.PriceLevel `json:"bids"`
	Asks []types.PriceLevel `json:"asks"`
}

type openOrderDTO struct {
	OrderHash  string `json:"id"`
	TokenID    string `json:"asset_id"`
	Status     string `json:"status"`
	SizeMatched string `json:"size_matched"`
	OriginalSize string `json:"original_size"`
	Price      string `json:"price"`
}

func (o openOrderDTO) toOrderStatus(venueName string) types.OrderStatus {
	state := types.OrderLive
	switch o.Status {
	case "MATCHED":
		state = types.OrderMatched
	case "CANCELED", "CANCELLED":
		state = types.OrderCancelled
	case "EXPIRED":
		state = types.OrderExpired
	}
	filled := parseFloat(o.SizeMatched)
	remaining := parseFloat(o.OriginalSize) - filled
	price := parseFloat(o.Price)

	return types.OrderStatus{
		Venue:        venueName,
		OrderHash:    o.OrderHash,
		TokenID:      o.TokenID,
		State:        state,
		FilledQty:    filled,
		RemainingQty: remaining,
		AvgPrice:     price,
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

type orderSubmissionDTO struct {
	Order     *types.SignedOrder `json:"order"`
	Owner     string             `json:"owner"`
	OrderType string             `json:"orderType"`
}

type orderSubmissionResultDTO struct {
	Success   bool    `json:"success"`
	OrderID   string  `json:"orderID"`
	Status    string  `json:"status"`
	FilledQty float64 `json:"filledQty"`
	ErrorMsg  string  `json:"errorMsg"`
}
