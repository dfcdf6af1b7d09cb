package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TaskType is the side the task trades on the maker venue.
type TaskType string

const (
	TaskBuy  TaskType = "BUY"
	TaskSell TaskType = "SELL"
)

// Strategy selects how the maker leg is worked.
type Strategy string

const (
	StrategyMaker Strategy = "MAKER"
	StrategyTaker Strategy = "TAKER"
)

// TaskStatus is the task state-machine position
type TaskStatus string

const (
	StatusPending           TaskStatus = "PENDING"
	StatusPredictSubmitted  TaskStatus = "PREDICT_SUBMITTED"
	StatusPartiallyFilled   TaskStatus = "PARTIALLY_FILLED"
	StatusHedging           TaskStatus = "HEDGING"
	StatusHedgePending      TaskStatus = "HEDGE_PENDING"
	StatusPaused            TaskStatus = "PAUSED"
	StatusCompleted         TaskStatus = "COMPLETED"
	StatusFailed            TaskStatus = "FAILED"
	StatusCancelled         TaskStatus = "CANCELLED"
	StatusTimeoutCancelled  TaskStatus = "TIMEOUT_CANCELLED"
	StatusHedgeFailed       TaskStatus = "HEDGE_FAILED"
	// StatusUnwindCompleted is reserved: present in the enumeration but
	// never emitted by this engine.
	StatusUnwindCompleted TaskStatus = "UNWIND_COMPLETED"
)

// IsTerminal reports whether status admits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimeoutCancelled, StatusHedgeFailed, StatusUnwindCompleted:
		return true
	default:
		return false
	}
}

// Task is the finite-state record tracked by the taskstore.
type Task struct {
	ID       string
	MarketID string
	Type     TaskType
	Strategy Strategy
	ArbSide  Side

	// Size and price policy.
	Quantity      float64
	TotalQuantity float64
	PredictPrice  float64
	HedgeMaxAsk   float64 // BUY
	HedgeMinBid   float64 // SELL
	EntryCost     float64 // required for SELL
	ExpiresAt     *time.Time

	// Progress.
	PredictFilledQty float64
	HedgedQty        float64
	RemainingQty     float64
	AvgPredictPrice  float64
	AvgHedgePrice    float64
	ActualProfit     float64
	UnwindLoss       float64

	// Control.
	CurrentOrderHash    string
	CurrentHedgeOrderID string
	PauseCount          int
	HedgeRetryCount     int
	PhantomDepth        bool
	LastError           string

	Status    TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CheckInvariants validates the at-rest invariants of Returns a
// Logic error describing the first violation found, or nil.
func (t *Task) CheckInvariants() error {
	if t.PredictFilledQty > t.Quantity+1e-9 {
		return NewEngineError(KindLogic, "task.invariant", "", fmt.Errorf("predictFilledQty %v > quantity %v", t.PredictFilledQty, t.Quantity))
	}
	if t.Quantity > t.TotalQuantity+1e-9 {
		return NewEngineError(KindLogic, "task.invariant", "", fmt.Errorf("quantity %v > totalQuantity %v", t.Quantity, t.TotalQuantity))
	}
	if t.HedgedQty > t.PredictFilledQty+1e-9 {
		return NewEngineError(KindLogic, "task.invariant", "", fmt.Errorf("hedgedQty %v > predictFilledQty %v", t.HedgedQty, t.PredictFilledQty))
	}
	want := t.PredictFilledQty - t.HedgedQty
	if diff := t.RemainingQty - want; diff > 1e-6 || diff < -1e-6 {
		return NewEngineError(KindLogic, "task.invariant", "", fmt.Errorf("remainingQty %v != predictFilledQty-hedgedQty %v", t.RemainingQty, want))
	}
	return nil
}

// TaskCreateInput is the input to TaskStore.Create.
type TaskCreateInput struct {
	MarketID      string
	Type          TaskType
	Strategy      Strategy
	ArbSide       Side
	Quantity      float64
	PredictPrice  float64
	HedgeMaxAsk   float64
	HedgeMinBid   float64
	EntryCost     float64
	ExpiresAt     *time.Time

	// Strategy-specific required fields.
	PredictAskPrice float64 // TAKER-BUY
	MaxTotalCost    float64 // TAKER-BUY
	PredictBidPrice float64 // TAKER-SELL
}

// IdempotencyWindow is the 10-second bucket collapsing duplicate create
// calls into one task.
const IdempotencyWindow = 10 * time.Second

// IdempotencyHash is a pure function of (marketId, type, price, qty,
// floor(now/window)), truncated to 16 hex chars. No clock-dependent side
// effects beyond the bucket index itself.
func IdempotencyHash(marketID string, taskType TaskType, price, qty float64, now time.Time) string {
	bucket := now.Unix() / int64(IdempotencyWindow.Seconds())
	raw := fmt.Sprintf("%s|%s|%.6f|%.6f|%d", marketID, taskType, price, qty, bucket)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}
