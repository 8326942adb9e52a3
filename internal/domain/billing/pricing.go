package billing

import "github.com/shopspring/decimal"

// PricingNormalization is the consistent pricing triple derived from a line
// item as loaded from storage, where the stored fields may be incomplete or
// carry legacy rounding.
type PricingNormalization struct {
	BaseRate        decimal.Decimal
	NetRate         decimal.Decimal
	DiscountAmount  decimal.Decimal
	DiscountPercent decimal.Decimal
}

var pricingTolerance = decimal.NewFromFloat(0.01)

// NormalizePricing reconciles a loaded line item's rate, discount amount,
// discount percent, and list-price reference into one consistent triple.
//
// Resolution order for the base (pre-discount) rate:
//  1. a positive list-price reference is authoritative
//  2. a positive discount amount with positive quantity derives it as
//     netRate + discountAmount/quantity
//  3. a discount percent in (0,100) derives it as netRate / (1 - pct/100)
//  4. otherwise the base rate equals the net rate (no discount)
//
// A derived base rate that is not positive is forced back to the net rate.
// The discount amount is recomputed from the final base rate unless the
// provided value is within 1% of the expected per-line amount, either as-is
// or, for positive quantities, interpreted as a per-unit amount; legacy
// records with slightly different rounding keep their stored value verbatim. The discount percent
// is always recomputed and never trusted from the input.
//
// This runs once, at document load time. Interactive editing goes through
// the LineItem setters instead.
func NormalizePricing(li LineItem) PricingNormalization {
	net := li.Rate
	quantity := li.Quantity.Abs()

	var base decimal.Decimal
	switch {
	case li.PriceListRate.IsPositive():
		base = li.PriceListRate
	case li.DiscountAmount.IsPositive() && quantity.IsPositive():
		base = net.Add(li.DiscountAmount.Div(quantity))
	case li.DiscountPercent.IsPositive() && li.DiscountPercent.LessThan(oneHundred):
		base = net.Div(decimal.NewFromInt(1).Sub(li.DiscountPercent.Div(oneHundred)))
	default:
		base = net
	}
	if !base.IsPositive() {
		base = net
	}

	expected := base.Sub(net).Mul(quantity)
	discount := expected
	if li.DiscountAmount.IsPositive() {
		if withinTolerance(li.DiscountAmount, expected) ||
			(quantity.IsPositive() && withinTolerance(li.DiscountAmount.Mul(quantity), expected)) {
			discount = li.DiscountAmount
		}
	}

	percent := decimal.Zero
	if base.IsPositive() {
		percent = base.Sub(net).Div(base).Mul(oneHundred)
	}

	return PricingNormalization{
		BaseRate:        base,
		NetRate:         net,
		DiscountAmount:  discount,
		DiscountPercent: percent,
	}
}

// ApplyNormalization writes a normalization result back onto the line item
// and recomputes its amount
func (li *LineItem) ApplyNormalization(n PricingNormalization) {
	li.BaseRate = n.BaseRate
	li.Rate = n.NetRate
	li.DiscountAmount = n.DiscountAmount
	li.DiscountPercent = n.DiscountPercent
	li.Refresh()
}

func withinTolerance(provided, expected decimal.Decimal) bool {
	if expected.IsZero() {
		return provided.IsZero()
	}
	diff := provided.Sub(expected).Abs()
	return diff.LessThanOrEqual(expected.Abs().Mul(pricingTolerance))
}
