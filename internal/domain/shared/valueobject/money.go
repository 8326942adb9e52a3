package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	ARS Currency = "ARS" // Argentine Peso (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	BRL Currency = "BRL" // Brazilian Real
	UYU Currency = "UYU" // Uruguayan Peso
)

// DefaultCurrency is the company currency used when none is specified
const DefaultCurrency = ARS

// Money is a value object representing monetary amounts
// It is immutable - all operations return new Money instances
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// NewMoneyARS creates Money in ARS (Argentine Peso)
func NewMoneyARS(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: ARS}
}

// NewMoneyARSFromFloat creates Money in ARS from float64
func NewMoneyARSFromFloat(amount float64) Money {
	return Money{amount: decimal.NewFromFloat(amount), currency: ARS}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// ZeroARS returns a zero-value Money in ARS
func ZeroARS() Money {
	return Zero(ARS)
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Add(other.amount),
		currency: m.currency,
	}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference
// Returns error if currencies don't match
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Sub(other.amount),
		currency: m.currency,
	}, nil
}

// Multiply returns a new Money multiplied by the given factor
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(factor),
		currency: m.currency,
	}
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{
		amount:   m.amount.Neg(),
		currency: m.currency,
	}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	return Money{
		amount:   m.amount.Abs(),
		currency: m.currency,
	}
}

// Round returns a new Money rounded to the specified decimal places
func (m Money) Round(places int32) Money {
	return Money{
		amount:   m.amount.Round(places),
		currency: m.currency,
	}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount.GreaterThan(other.amount), nil
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount.LessThan(other.amount), nil
}

// CalculatePercentage returns the percentage of this Money
func (m Money) CalculatePercentage(percent decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(percent).Div(decimal.NewFromInt(100)),
		currency: m.currency,
	}
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// StringFixed returns the amount as a string with fixed decimal places
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

// Float64 returns the amount as a float64 (may lose precision)
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// An empty currency in the payload falls back to DefaultCurrency so that
// partially-specified records from the console remain usable.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	m.currency = v.Currency
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}
