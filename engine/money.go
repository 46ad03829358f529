/*
Package engine provides the core types shared by every instrument domain.

PURPOSE:
  This package contains the domain-agnostic building blocks for the
  instrument lifecycle engine: monetary amounts, identifiers, clocks,
  accounts, ledger transaction records, and the error taxonomy. The
  instrument packages (cheque, transfer, deposit, loan) build their
  state machines on top of these types.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A monetary amount backed by decimal.Decimal

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal is used for every monetary value.
     Floats never hold money.
  2. Immutability: Money is a value type; arithmetic returns new values.
  3. Rounding: amounts are rounded to 2 decimal places only at the
     boundaries where they become a ledger delta or persisted figure.

SEE ALSO:
  - transaction.go: Ledger records and balance-moving effects
  - errors.go: Error taxonomy used across the engine
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Monetary amount with decimal precision
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func MoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

// MoneyFromString parses a decimal string. Invalid input returns zero
// money and an InvalidAmountError.
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}, &InvalidAmountError{Reason: "unparseable amount: " + s}
	}
	return Money{Value: d}, nil
}

func MustMoney(s string) Money {
	m, err := MoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money             { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money             { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money   { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money   { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                    { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money                    { return Money{Value: m.Value.Abs()} }
func (m Money) IsNegative() bool              { return m.Value.IsNegative() }
func (m Money) IsZero() bool                  { return m.Value.IsZero() }
func (m Money) IsPositive() bool              { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool      { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool         { return m.Value.LessThan(o.Value) }
func (m Money) Equal(o Money) bool            { return m.Value.Equal(o.Value) }
func (m Money) Round2() Money                 { return Money{Value: m.Value.Round(2)} }
func (m Money) String() string                { return m.Value.StringFixed(2) }

// Percent returns pct% of the amount (e.g. m.Percent(4) is 4% of m).
func (m Money) Percent(pct float64) Money {
	return Money{Value: m.Value.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))}
}

func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

// WithinTolerance reports whether m is within tol of o. Used by schedule
// generation checks where fractional paise can round.
func (m Money) WithinTolerance(o Money, tol float64) bool {
	return m.Sub(o).Abs().Value.LessThanOrEqual(decimal.NewFromFloat(tol))
}
