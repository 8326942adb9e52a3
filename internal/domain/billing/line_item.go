package billing

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// LineItem represents one row of a financial document.
//
// Quantity is always stored as a non-negative magnitude; sign semantics
// (return vs. purchase) are applied by the caller when building the wire
// payload, never here. Rate is the net unit price actually charged
// (post-discount); BaseRate is the pre-discount list price.
type LineItem struct {
	ID              uuid.UUID       `json:"id"`
	ItemCode        string          `json:"item_code"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	Rate            decimal.Decimal `json:"rate"`
	BaseRate        decimal.Decimal `json:"base_rate"`
	PriceListRate   decimal.Decimal `json:"price_list_rate"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
	Amount          decimal.Decimal `json:"amount"`
}

// NewLineItem creates a line item with a generated ID and recomputed amount
func NewLineItem(itemCode, description string, quantity, rate, taxPercent decimal.Decimal) LineItem {
	li := LineItem{
		ID:          uuid.New(),
		ItemCode:    itemCode,
		Description: description,
		Quantity:    quantity.Abs(),
		Rate:        rate,
		BaseRate:    rate,
		TaxPercent:  taxPercent,
	}
	li.Refresh()
	return li
}

// IsCountable reports whether the line participates in document totals.
// Structurally empty placeholder rows are retained in the list but ignored
// by aggregation.
func (li *LineItem) IsCountable() bool {
	return li.ItemCode != "" || strings.TrimSpace(li.Description) != ""
}

// Subtotal returns quantity * net rate, before any discount
func (li *LineItem) Subtotal() decimal.Decimal {
	return li.Quantity.Mul(li.Rate)
}

// EffectiveDiscount returns the discount amount clamped to [0, subtotal].
// A discount can never exceed or invert the line subtotal.
func (li *LineItem) EffectiveDiscount() decimal.Decimal {
	subtotal := li.Subtotal()
	switch {
	case li.DiscountAmount.IsNegative():
		return decimal.Zero
	case li.DiscountAmount.GreaterThan(subtotal):
		return subtotal
	default:
		return li.DiscountAmount
	}
}

// TaxableBase returns the line subtotal after discount, before tax
func (li *LineItem) TaxableBase() decimal.Decimal {
	return li.Subtotal().Sub(li.EffectiveDiscount())
}

// TaxAmount returns the flat-percentage tax computed on the taxable base
func (li *LineItem) TaxAmount() decimal.Decimal {
	return li.TaxableBase().Mul(li.TaxPercent).Div(oneHundred)
}

// ComputeAmount returns the final line total including tax, rounded to two
// decimal places at the point of computation
func (li *LineItem) ComputeAmount() decimal.Decimal {
	return li.TaxableBase().Add(li.TaxAmount()).Round(2)
}

// Refresh recomputes the stored Amount from the current fields
func (li *LineItem) Refresh() {
	li.Amount = li.ComputeAmount()
}

// SetQuantity stores the quantity as a non-negative magnitude and rederives
// the discount amount from the discount percent against the new subtotal
func (li *LineItem) SetQuantity(quantity decimal.Decimal) {
	li.Quantity = quantity.Abs()
	li.rederiveDiscountFromPercent()
	li.Refresh()
}

// SetRate sets the net unit rate and rederives the discount amount from the
// discount percent against the new subtotal
func (li *LineItem) SetRate(rate decimal.Decimal) {
	li.Rate = rate
	li.rederiveDiscountFromPercent()
	li.Refresh()
}

// SetDiscountPercent makes the percent representation authoritative and
// recomputes the discount amount from the current subtotal
func (li *LineItem) SetDiscountPercent(percent decimal.Decimal) {
	li.DiscountPercent = percent
	li.DiscountAmount = li.Subtotal().Mul(percent).Div(oneHundred)
	li.Refresh()
}

// SetDiscountAmount makes the amount representation authoritative and
// recomputes the discount percent from the current subtotal
func (li *LineItem) SetDiscountAmount(amount decimal.Decimal) {
	li.DiscountAmount = amount
	subtotal := li.Subtotal()
	if subtotal.IsPositive() {
		li.DiscountPercent = amount.Div(subtotal).Mul(oneHundred)
	} else {
		li.DiscountPercent = decimal.Zero
	}
	li.Refresh()
}

// SetTaxPercent sets the flat tax percentage applied to the taxable base
func (li *LineItem) SetTaxPercent(percent decimal.Decimal) {
	li.TaxPercent = percent
	li.Refresh()
}

// LineEdit describes a partial interactive edit of a line item. Only the
// non-nil fields are applied. When both discount representations are present
// the percent is authoritative and the amount is rederived.
type LineEdit struct {
	ItemCode        *string
	Description     *string
	Quantity        *decimal.Decimal
	Rate            *decimal.Decimal
	DiscountAmount  *decimal.Decimal
	DiscountPercent *decimal.Decimal
	TaxPercent      *decimal.Decimal
}

// ApplyEdit applies an interactive edit, keeping the two discount
// representations mutually derived and recomputing the amount last
func (li *LineItem) ApplyEdit(e LineEdit) {
	if e.ItemCode != nil {
		li.ItemCode = *e.ItemCode
	}
	if e.Description != nil {
		li.Description = *e.Description
	}
	if e.TaxPercent != nil {
		li.TaxPercent = *e.TaxPercent
	}
	if e.Quantity != nil {
		li.SetQuantity(*e.Quantity)
	}
	if e.Rate != nil {
		li.SetRate(*e.Rate)
	}
	switch {
	case e.DiscountPercent != nil:
		li.SetDiscountPercent(*e.DiscountPercent)
	case e.DiscountAmount != nil:
		li.SetDiscountAmount(*e.DiscountAmount)
	}
	li.Refresh()
}

func (li *LineItem) rederiveDiscountFromPercent() {
	li.DiscountAmount = li.Subtotal().Mul(li.DiscountPercent).Div(oneHundred)
}
