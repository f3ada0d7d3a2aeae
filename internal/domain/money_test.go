package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney_ToDecimal(t *testing.T) {
	m := NewMoney(10_500_000, "USDT") // 10.50 USDT
	assert.Equal(t, "10.5", m.ToDecimal().String())
}

func TestFromDecimal(t *testing.T) {
	d := decimal.NewFromFloat(10.50)
	assert.Equal(t, int64(10_500_000), FromDecimal(d))
}

func TestRoundToPrecision(t *testing.T) {
	// 1.2345678 is not representable in micros; input is 1.234567.
	assert.Equal(t, int64(1_234_567), RoundToPrecision(1_234_567, 6))
	assert.Equal(t, int64(1_234_600), RoundToPrecision(1_234_567, 4))
	assert.Equal(t, int64(1_230_000), RoundToPrecision(1_234_567, 2))
	assert.Equal(t, int64(1_000_000), RoundToPrecision(1_234_567, 0))
	// Out-of-range precision clamps rather than corrupting the amount.
	assert.Equal(t, int64(1_234_567), RoundToPrecision(1_234_567, 9))
	assert.Equal(t, int64(1_000_000), RoundToPrecision(1_234_567, -3))
}

func TestComputeFee(t *testing.T) {
	// 1% of 100.00 = 1.00
	assert.Equal(t, int64(1_000_000), ComputeFee(100_000_000, 100, 2))
	// 0.25% of 100.00 = 0.25
	assert.Equal(t, int64(250_000), ComputeFee(100_000_000, 25, 2))
	// Zero bps produces exactly zero, no drift.
	assert.Equal(t, int64(0), ComputeFee(100_000_000, 0, 2))
	assert.Equal(t, int64(0), ComputeFee(0, 100, 2))
	// Fee rounds to the currency precision: 1% of 0.333333 at 2 dp.
	assert.Equal(t, int64(0), ComputeFee(333_333, 100, 2))
	assert.Equal(t, int64(3_333), ComputeFee(333_333, 100, 6))
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "10.50 USDT", NewMoney(10_500_000, "USDT").String())
	assert.Equal(t, "0.00 NGN", NewMoney(0, "NGN").String())
}

func TestRouteAllowed(t *testing.T) {
	allowed := [][2]WalletType{
		{WalletTypeFiat, WalletTypeSpot},
		{WalletTypeSpot, WalletTypeFiat},
		{WalletTypeFiat, WalletTypeEco},
		{WalletTypeEco, WalletTypeFiat},
		{WalletTypeSpot, WalletTypeEco},
		{WalletTypeEco, WalletTypeSpot},
		{WalletTypeEco, WalletTypeFutures},
		{WalletTypeFutures, WalletTypeEco},
	}
	for _, pair := range allowed {
		assert.True(t, RouteAllowed(pair[0], pair[1]), "%s -> %s should be allowed", pair[0], pair[1])
	}

	denied := [][2]WalletType{
		{WalletTypeFutures, WalletTypeFiat},
		{WalletTypeFutures, WalletTypeSpot},
		{WalletTypeFiat, WalletTypeFutures},
		{WalletTypeSpot, WalletTypeFutures},
		{WalletTypeSpot, WalletTypeSpot},
		{WalletTypeEco, WalletTypeEco},
	}
	for _, pair := range denied {
		assert.False(t, RouteAllowed(pair[0], pair[1]), "%s -> %s should be denied", pair[0], pair[1])
	}

	assert.False(t, RouteAllowed("FATURES", WalletTypeFiat))
}

func TestWalletType(t *testing.T) {
	assert.True(t, WalletTypeEco.HasChainLedger())
	assert.False(t, WalletTypeFiat.HasChainLedger())
	assert.True(t, WalletTypeFutures.Valid())
	assert.False(t, WalletType("MARGIN").Valid())
}
