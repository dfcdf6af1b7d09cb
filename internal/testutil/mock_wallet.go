// Package testutil holds shared test doubles used across internal
// packages, following the inline mock-client style used throughout this
// codebase's tests (each package used to hand-roll its own; this collects
// the reusable ones).
package testutil

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mselser95/polymarket-arb/pkg/wallet"
)

// MockWalletClient implements circuitbreaker.BalanceFetcher with
// controllable balances and errors.
type MockWalletClient struct {
	mu      sync.Mutex
	usdc    *big.Int
	matic   *big.Int
	allow   *big.Int
	err     error
}

// NewMockWalletClient builds a MockWalletClient with a zero balance.
func NewMockWalletClient() *MockWalletClient {
	return &MockWalletClient{
		usdc:  big.NewInt(0),
		matic: big.NewInt(0),
		allow: big.NewInt(0),
	}
}

// NewUSDCBigInt converts a human USDC amount into the 6-decimal integer
// representation the wallet package works in.
func NewUSDCBigInt(amount float64) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(1e6))
	out, _ := scaled.Int(nil)
	return out
}

// SetUSDCBalance sets the USDC balance returned by GetBalances.
func (m *MockWalletClient) SetUSDCBalance(v *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usdc = v
}

// SetGetBalancesError makes GetBalances return err instead of a balance.
func (m *MockWalletClient) SetGetBalancesError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetBalances implements circuitbreaker.BalanceFetcher.
func (m *MockWalletClient) GetBalances(ctx context.Context, address common.Address) (*wallet.Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &wallet.Balances{
		MATIC:         m.matic,
		USDC:          m.usdc,
		USDCAllowance: m.allow,
	}, nil
}
