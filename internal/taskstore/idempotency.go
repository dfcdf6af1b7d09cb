package taskstore

import (
	"fmt"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// validateCreateInput enforces the per-strategy required-field contract:
// TAKER-BUY requires predictAskPrice/maxTotalCost; TAKER-SELL additionally
// requires predictBidPrice/hedgeMinBid/entryCost; MAKER-SELL requires
// entryCost.
func validateCreateInput(in types.TaskCreateInput) error {
	if in.MarketID == "" {
		return fmt.Errorf("marketId is required")
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	switch {
	case in.Strategy == types.StrategyTaker && in.Type == types.TaskBuy:
		if in.PredictAskPrice <= 0 {
			return fmt.Errorf("TAKER-BUY requires predictAskPrice")
		}
		if in.MaxTotalCost <= 0 {
			return fmt.Errorf("TAKER-BUY requires maxTotalCost")
		}
	case in.Strategy == types.StrategyTaker && in.Type == types.TaskSell:
		if in.PredictBidPrice <= 0 {
			return fmt.Errorf("TAKER-SELL requires predictBidPrice")
		}
		if in.HedgeMinBid <= 0 {
			return fmt.Errorf("TAKER-SELL requires hedgeMinBid")
		}
		if in.EntryCost <= 0 {
			return fmt.Errorf("TAKER-SELL requires entryCost")
		}
	case in.Strategy == types.StrategyMaker && in.Type == types.TaskSell:
		if in.EntryCost <= 0 {
			return fmt.Errorf("MAKER-SELL requires entryCost")
		}
	}

	return nil
}
