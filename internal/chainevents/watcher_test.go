package chainevents

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

func encodeOrderFilled(t *testing.T, maker, taker common.Address, makerAmount, takerAmount *big.Int) []byte {
	t.Helper()
	args := abi.Arguments{
		{Name: "maker", Type: mustType("address")},
		{Name: "taker", Type: mustType("address")},
		{Name: "makerAssetId", Type: mustType("uint256")},
		{Name: "takerAssetId", Type: mustType("uint256")},
		{Name: "makerAmountFilled", Type: mustType("uint256")},
		{Name: "takerAmountFilled", Type: mustType("uint256")},
		{Name: "fee", Type: mustType("uint256")},
	}
	data, err := args.Pack(maker, taker, big.NewInt(1), big.NewInt(2), makerAmount, takerAmount, big.NewInt(0))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return data
}

func TestWatcher_DecodeValidLog(t *testing.T) {
	w := &Watcher{logger: zap.NewNop()}
	maker := common.HexToAddress("0x1111111111111111111111111111111111111111")
	taker := common.HexToAddress("0x2222222222222222222222222222222222222222")

	logEntry := gethtypes.Log{
		Topics: []common.Hash{common.HexToHash("0xabc")},
		Data:   encodeOrderFilled(t, maker, taker, big.NewInt(10), big.NewInt(20)),
		TxHash: common.HexToHash("0xdeadbeef"),
		Index:  3,
	}

	fill, ok := w.decode(logEntry)
	if !ok {
		t.Fatalf("expected successful decode")
	}
	if fill.Maker != maker || fill.Taker != taker {
		t.Errorf("maker/taker mismatch: %+v", fill)
	}
	if fill.MakerAmountFilled.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("expected makerAmountFilled 10, got %s", fill.MakerAmountFilled)
	}
	if fill.LogIndex != 3 {
		t.Errorf("expected log index 3, got %d", fill.LogIndex)
	}
}

func TestWatcher_DecodeRejectsMissingTopics(t *testing.T) {
	w := &Watcher{logger: zap.NewNop()}
	_, ok := w.decode(gethtypes.Log{})
	if ok {
		t.Fatalf("expected decode to fail with no topics")
	}
}

func TestWatcher_DedupeByTxHashAndLogIndex(t *testing.T) {
	w := New(Config{Logger: zap.NewNop()})
	f := Fill{TxHash: "0xabc", LogIndex: 1}

	if w.markSeen(f) {
		t.Fatalf("first observation should not be marked seen")
	}
	if !w.markSeen(f) {
		t.Fatalf("repeat of same (txHash, logIndex) should be deduped")
	}

	other := Fill{TxHash: "0xabc", LogIndex: 2}
	if w.markSeen(other) {
		t.Fatalf("different log index on same tx should not be deduped")
	}
}
