package billing

import "github.com/shopspring/decimal"

// DocumentTotals is the result of folding the countable lines of a document
type DocumentTotals struct {
	// Subtotal is the sum of final line amounts (tax included), before the
	// document-level discount
	Subtotal decimal.Decimal `json:"subtotal"`
	// TaxableNet (net gravado) is the sum of post-discount line bases
	TaxableNet decimal.Decimal `json:"taxable_net"`
	// TotalTax is the sum of per-line tax amounts, each computed on its own
	// post-discount base; there is no blended rate across lines
	TotalTax decimal.Decimal `json:"total_tax"`
	// GrandTotal = TaxableNet + TotalTax - document discount + perceptions
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Totals folds the countable lines into document totals. It is a pure
// function of the current snapshot: calling it twice on an unchanged
// document yields identical results.
func (d *Document) Totals() DocumentTotals {
	subtotal := decimal.Zero
	taxableNet := decimal.Zero
	totalTax := decimal.Zero

	for i := range d.Lines {
		li := d.Lines[i]
		if !li.IsCountable() {
			continue
		}
		subtotal = subtotal.Add(li.ComputeAmount())
		taxableNet = taxableNet.Add(li.TaxableBase())
		totalTax = totalTax.Add(li.TaxAmount())
	}

	perceptions := decimal.Zero
	for i := range d.Perceptions {
		perceptions = perceptions.Add(d.Perceptions[i].TotalAmount)
	}

	return DocumentTotals{
		Subtotal:   subtotal,
		TaxableNet: taxableNet,
		TotalTax:   totalTax,
		GrandTotal: taxableNet.Add(totalTax).Sub(d.DiscountAmount).Add(perceptions),
	}
}
