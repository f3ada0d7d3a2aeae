package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific currency.
// Amount is stored as BIGINT micros (10^-6) to avoid floating point errors.
type Money struct {
	Amount   int64  // micros
	Currency string
}

const microsPerUnit = 1_000_000

// MaxPrecision is the finest precision representable in micros.
const MaxPrecision = 6

// NewMoney creates a new Money instance from micros.
func NewMoney(amount int64, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// ToDecimal converts the int64 micros to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(microsPerUnit))
}

// FromDecimal converts a decimal.Decimal in currency units to int64 micros.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(microsPerUnit)).IntPart()
}

// RoundToPrecision rounds an amount in micros to the given number of decimal
// places of the currency unit. Precision is clamped to [0, MaxPrecision].
func RoundToPrecision(micros int64, precision int32) int64 {
	if precision >= MaxPrecision {
		return micros
	}
	if precision < 0 {
		precision = 0
	}
	d := decimal.NewFromInt(micros).Div(decimal.NewFromInt(microsPerUnit))
	return FromDecimal(d.Round(precision))
}

// ComputeFee returns the proportional fee in micros for a transfer amount,
// given a fee expressed in basis points (1 bps = 0.01%). The result is
// rounded to the currency precision. A zero bps configuration yields exactly
// zero; no floating point is involved.
func ComputeFee(amountMicros, feeBps int64, precision int32) int64 {
	if feeBps == 0 || amountMicros == 0 {
		return 0
	}
	fee := decimal.NewFromInt(amountMicros).
		Mul(decimal.NewFromInt(feeBps)).
		Div(decimal.NewFromInt(10_000))
	return RoundToPrecision(fee.IntPart(), precision)
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), m.Currency)
}
