package handler

import "github.com/shopspring/decimal"

// toDecimal converts a float64 to a decimal.Decimal
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// toDecimalPtr converts an optional float64 to an optional decimal.Decimal
func toDecimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
