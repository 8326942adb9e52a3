package billing

import (
	"github.com/facturante/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutstandingDocument is a candidate allocation target supplied by the
// outstanding-documents/reconciliation lookup collaborator. The grouping of
// documents into reconciliation groups is upstream data; the group id is
// treated as opaque here.
type OutstandingDocument struct {
	Name                  string          `json:"name"`
	OutstandingAmount     decimal.Decimal `json:"outstanding_amount"`
	ReconciliationGroupID string          `json:"reconciliation_group_id,omitempty"`
}

// Allocation is a proposed application of credit-note value against one
// outstanding source document. Amounts are always non-negative magnitudes.
//
// RequestedAmount is the outstanding amount captured at selection time and
// is what the clamp consumes; Amount is the clamp-adjusted value the UI
// shows, and AllocatedAmount mirrors it for callers whose record shape
// carries that alias. Re-running the clamp after an unrelated edit can raise
// Amount back up toward RequestedAmount when capacity allows.
type Allocation struct {
	ID                    uuid.UUID       `json:"id"`
	SourceDocumentID      string          `json:"source_document_id"`
	RequestedAmount       decimal.Decimal `json:"requested_amount"`
	Amount                decimal.Decimal `json:"amount"`
	AllocatedAmount       decimal.Decimal `json:"allocated_amount"`
	ReconciliationGroupID string          `json:"reconciliation_group_id,omitempty"`
}

// NewAllocation creates a provisional allocation for an outstanding document.
// The amount starts at the absolute outstanding amount in company currency
// and is immediately subject to clamping.
func NewAllocation(candidate OutstandingDocument) Allocation {
	amount := candidate.OutstandingAmount.Abs()
	return Allocation{
		ID:                    uuid.New(),
		SourceDocumentID:      candidate.Name,
		RequestedAmount:       amount,
		Amount:                amount,
		AllocatedAmount:       amount,
		ReconciliationGroupID: candidate.ReconciliationGroupID,
	}
}

// ToggleAllocation adds or removes a single outstanding document from the
// allocation list, returning a new list.
//
// Before adding, the set of reconciliation-group ids represented in the
// current allocations plus the candidate is computed; more than one distinct
// non-empty id rejects the add with ErrMixedReconciliationGroup and the
// returned list is the prior state, unchanged. Removal never triggers the
// group-mixing check.
func ToggleAllocation(current []Allocation, candidate OutstandingDocument, selecting bool) ([]Allocation, error) {
	if !selecting {
		next := make([]Allocation, 0, len(current))
		for i := range current {
			if current[i].SourceDocumentID != candidate.Name {
				next = append(next, current[i])
			}
		}
		return next, nil
	}

	for i := range current {
		if current[i].SourceDocumentID == candidate.Name {
			// Already selected; selection is idempotent
			return append([]Allocation{}, current...), nil
		}
	}

	if mixesGroups(current, candidate.ReconciliationGroupID) {
		return append([]Allocation{}, current...), shared.ErrMixedReconciliationGroup
	}

	return append(append([]Allocation{}, current...), NewAllocation(candidate)), nil
}

// ToggleGroup replaces or removes every allocation belonging to the
// reconciliation group as one atomic set operation, returning a new list.
// Selecting a group while a different group is already represented is
// rejected the same way as a single mixed add.
func ToggleGroup(current []Allocation, groupID string, members []OutstandingDocument, selecting bool) ([]Allocation, error) {
	next := make([]Allocation, 0, len(current))
	for i := range current {
		if current[i].ReconciliationGroupID != groupID {
			next = append(next, current[i])
		}
	}
	if !selecting {
		return next, nil
	}

	if mixesGroups(next, groupID) {
		return append([]Allocation{}, current...), shared.ErrMixedReconciliationGroup
	}

	for i := range members {
		if members[i].ReconciliationGroupID == groupID {
			next = append(next, NewAllocation(members[i]))
		}
	}
	return next, nil
}

// mixesGroups reports whether adding candidateGroup to the groups already
// represented in current would span more than one distinct non-empty
// reconciliation group
func mixesGroups(current []Allocation, candidateGroup string) bool {
	groups := make(map[string]struct{})
	if candidateGroup != "" {
		groups[candidateGroup] = struct{}{}
	}
	for i := range current {
		if g := current[i].ReconciliationGroupID; g != "" {
			groups[g] = struct{}{}
		}
	}
	return len(groups) > 1
}
