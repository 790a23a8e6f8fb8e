// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Parsing and JSON encoding go through
// shopspring/decimal so that inputs like 12.345 round half-up to 12.35 and
// outputs are plain JSON numbers with two fractional digits.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Money is a non-negative amount in cents.
type Money struct {
	Cents int64
}

// NewMoney converts a decimal to cents, rounding half-up on the third fractional digit.
func NewMoney(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(maxCents)) || cents.LessThan(decimal.NewFromInt(-maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

const maxCents = (1<<63 - 1) / 100

// ParseMoney parses a decimal string. A comma is accepted as decimal separator.
//
//	ParseMoney("12.34")  -> 1234
//	ParseMoney("12,345") -> 1235
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d)
}

// MustMoney is ParseMoney for constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return &ValidationError{Field: "amount", Message: "Amount must be a positive number", Err: ErrInvalidAmount}
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return &ValidationError{Field: "amount", Message: "Amount must be a number", Err: ErrInvalidAmount}
	}
	v, err := NewMoney(d)
	if err != nil {
		return &ValidationError{Field: "amount", Message: "Amount out of range", Err: err}
	}
	*m = v
	return nil
}

// Percent returns part/total*100 rounded to two decimals. A zero total yields zero.
func Percent(part, total Money) float64 {
	if total.Cents == 0 {
		return 0
	}
	p := decimal.NewFromInt(part.Cents).Mul(hundred).Div(decimal.NewFromInt(total.Cents)).Round(2)
	return p.InexactFloat64()
}
