package billing

import "github.com/shopspring/decimal"

// ClampResult is the outcome of running the credit capacity clamp
type ClampResult struct {
	Allocations       []Allocation    `json:"allocations"`
	AppliedTotal      decimal.Decimal `json:"applied_total"`
	AvailableCapacity decimal.Decimal `json:"available_capacity"`
}

// ClampAllocations reduces proposed allocations so their sum never exceeds
// the document's value.
//
// For credit notes the capacity is the absolute grand total, and the
// allocations are walked in their existing, caller-defined order: each
// receives min(requested, remaining) rounded to two decimals (down whenever
// rounding up would overshoot what remains), and remaining shrinks
// accordingly. The clamp is greedy, order-preserving, and
// non-redistributing - capacity consumed by an earlier allocation is never
// taken back for a later one, so reordering the input changes the result.
//
// For any other document kind allocations pass through unchanged.
func ClampAllocations(kind DocumentKind, grandTotal decimal.Decimal, allocations []Allocation) ClampResult {
	capacity := grandTotal.Abs()

	if !kind.RequiresAllocation() {
		passed := append([]Allocation{}, allocations...)
		total := decimal.Zero
		for i := range passed {
			total = total.Add(passed[i].Amount)
		}
		return ClampResult{
			Allocations:       passed,
			AppliedTotal:      total.Round(2),
			AvailableCapacity: capacity,
		}
	}

	remaining := capacity
	clamped := make([]Allocation, len(allocations))
	appliedTotal := decimal.Zero
	for i := range allocations {
		a := allocations[i]
		requested := a.RequestedAmount
		if requested.IsZero() {
			// Callers that build allocations by hand may only fill Amount
			requested = a.Amount
		}
		allowed := decimal.Min(requested, remaining)
		// Half-up rounding must never spend more capacity than remains,
		// so a sub-cent remainder rounds down instead
		if rounded := allowed.Round(2); rounded.GreaterThan(remaining) {
			allowed = allowed.RoundDown(2)
		} else {
			allowed = rounded
		}
		if allowed.IsNegative() {
			allowed = decimal.Zero
		}
		a.Amount = allowed
		a.AllocatedAmount = allowed
		clamped[i] = a
		remaining = remaining.Sub(allowed)
		appliedTotal = appliedTotal.Add(allowed)
	}

	return ClampResult{
		Allocations:       clamped,
		AppliedTotal:      appliedTotal.Round(2),
		AvailableCapacity: capacity,
	}
}
