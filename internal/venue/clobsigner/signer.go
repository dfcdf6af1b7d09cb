// Package clobsigner isolates EIP-712 order construction and signing
// behind the OrderSigner interface. No other package imports
// go-order-utils directly.
package clobsigner

import (
	"crypto/ecdsa"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// OrderSigner turns venue-agnostic order opts into a signed wire payload.
type OrderSigner interface {
	Sign(opts types.VenueOrderOpts, feeRateBps int) (*types.SignedOrder, error)
	MakerAddress() string
	SignerAddress() string
}

// EIP712Signer signs orders for a Polymarket-CLOB-shaped exchange using
// the builder.ExchangeOrderBuilder from go-order-utils.
type EIP712Signer struct {
	privateKey    *ecdsa.PrivateKey
	address       string
	proxyAddress  string
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	negRiskBuilder builder.ExchangeOrderBuilder
}

// Config configures an EIP712Signer.
type Config struct {
	PrivateKey    string
	ProxyAddress  string
	SignatureType int
	ChainID       int64
}

// NewEIP712Signer parses the hex private key and constructs both the
// standard and neg-risk exchange order builders.
func NewEIP712Signer(cfg Config) (*EIP712Signer, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pub, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key: unexpected type")
	}
	address := crypto.PubkeyToAddress(*pub).Hex()

	chainID := big.NewInt(cfg.ChainID)
	if chainID.Sign() == 0 {
		chainID = big.NewInt(137) // Polygon mainnet default
	}

	return &EIP712Signer{
		privateKey:     pk,
		address:        address,
		proxyAddress:   cfg.ProxyAddress,
		signatureType:  model.SignatureType(cfg.SignatureType),
		orderBuilder:   builder.NewExchangeOrderBuilderImpl(chainID, nil),
		negRiskBuilder: builder.NewExchangeOrderBuilderImpl(chainID, nil),
	}, nil
}

func (s *EIP712Signer) MakerAddress() string {
	if s.proxyAddress != "" {
		return s.proxyAddress
	}
	return s.address
}

func (s *EIP712Signer) SignerAddress() string { return s.address }

// Sign builds a model.OrderData from opts, rounds amounts to the token's
// tick precision, signs it, and returns the wire-ready SignedOrder.
func (s *EIP712Signer) Sign(opts types.VenueOrderOpts, feeRateBps int) (*types.SignedOrder, error) {
	side := model.BUY
	if opts.Direction == types.DirSell {
		side = model.SELL
	}

	sizePrecision, amountPrecision := roundingConfig(opts.TickSize)
	takerTokens := roundAmount(opts.Size, sizePrecision)
	makerUSD := roundAmount(takerTokens*opts.Price, amountPrecision)

	orderData := &model.OrderData{
		Maker:         s.MakerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       opts.TokenID,
		MakerAmount:   usdToRaw(makerUSD),
		TakerAmount:   usdToRaw(takerTokens),
		Side:          side,
		FeeRateBps:    fmt.Sprintf("%d", feeRateBps),
		Nonce:         "0",
		Signer:        s.SignerAddress(),
		Expiration:    expirationString(opts),
		SignatureType: s.signatureType,
	}

	b := s.orderBuilder
	if opts.NegRisk {
		b = s.negRiskBuilder
	}

	signed, err := b.BuildSignedOrder(s.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}

	sideStr := "BUY"
	if signed.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	return &types.SignedOrder{
		Salt:          signed.Salt.String(),
		Maker:         signed.Maker.Hex(),
		Signer:        signed.Signer.Hex(),
		Taker:         signed.Taker.Hex(),
		TokenID:       signed.TokenId.String(),
		MakerAmount:   signed.MakerAmount.String(),
		TakerAmount:   signed.TakerAmount.String(),
		Expiration:    signed.Expiration.String(),
		Nonce:         signed.Nonce.String(),
		FeeRateBps:    signed.FeeRateBps.String(),
		Side:          sideStr,
		SignatureType: int(signed.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(signed.Signature),
	}, nil
}

func expirationString(opts types.VenueOrderOpts) string {
	if opts.Expiration.IsZero() {
		return "0"
	}
	return fmt.Sprintf("%d", opts.Expiration.Unix())
}

// roundingConfig mirrors the venue's published ROUNDING_CONFIG: size is
// always rounded to 2 decimals, amount precision depends on tick size.
func roundingConfig(tickSize float64) (sizePrecision, amountPrecision int) {
	switch tickSize {
	case 0.1:
		return 2, 3
	case 0.01:
		return 2, 4
	case 0.001:
		return 2, 5
	case 0.0001:
		return 2, 6
	default:
		return 2, 4
	}
}

func roundAmount(value float64, decimals int) float64 {
	mult := math.Pow(10, float64(decimals))
	return math.Round(value*mult) / mult
}

func usdToRaw(usd float64) string {
	return fmt.Sprintf("%d", int64(usd*1_000_000))
}
