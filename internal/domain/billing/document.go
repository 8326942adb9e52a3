package billing

import (
	"time"

	"github.com/facturante/backend/internal/domain/shared"
	"github.com/facturante/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind determines sign conventions and whether credit allocation
// applies to the document
type DocumentKind string

const (
	DocumentKindInvoice    DocumentKind = "INVOICE"
	DocumentKindCreditNote DocumentKind = "CREDIT_NOTE"
	DocumentKindDebitNote  DocumentKind = "DEBIT_NOTE"
)

// IsValid checks if the kind is a valid DocumentKind
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentKindInvoice, DocumentKindCreditNote, DocumentKindDebitNote:
		return true
	}
	return false
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// RequiresAllocation returns true if the document's value is allocated
// against outstanding source documents
func (k DocumentKind) RequiresAllocation() bool {
	return k == DocumentKindCreditNote
}

// Perception is a flat additional charge (withholding-style) applied at the
// document level and summed separately from per-line tax
type Perception struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Document represents the purchase invoice / credit note being edited.
// A Document is owned exclusively by the editing session that created it;
// every mutation method recomputes derived state fully from the current
// snapshot, so there is no incremental patching to get stale.
type Document struct {
	ID                  uuid.UUID            `json:"id"`
	Kind                DocumentKind         `json:"kind"`
	Currency            valueobject.Currency `json:"currency"`
	SupplierName        string               `json:"supplier_name"`
	PaymentTerm         string               `json:"payment_term"`
	PostingDate         time.Time            `json:"posting_date"`
	DueDate             time.Time            `json:"due_date"`
	Lines               []LineItem           `json:"lines"`
	DiscountAmount      decimal.Decimal      `json:"discount_amount"`
	Perceptions         []Perception         `json:"perceptions"`
	SelectedAllocations []Allocation         `json:"selected_allocations"`
	AppliedTotal        decimal.Decimal      `json:"applied_total"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// NewDocument creates an empty document of the given kind
func NewDocument(kind DocumentKind, currency valueobject.Currency, supplierName string) (*Document, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Unknown document kind")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	now := time.Now()
	return &Document{
		ID:                  uuid.New(),
		Kind:                kind,
		Currency:            currency,
		SupplierName:        supplierName,
		PostingDate:         now,
		Lines:               make([]LineItem, 0),
		Perceptions:         make([]Perception, 0),
		SelectedAllocations: make([]Allocation, 0),
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Normalize reconciles the pricing fields of every line, as loaded from
// storage, into consistent triples. Runs once at load time.
func (d *Document) Normalize() {
	lines := make([]LineItem, len(d.Lines))
	for i, li := range d.Lines {
		li.Quantity = li.Quantity.Abs()
		li.ApplyNormalization(NormalizePricing(li))
		lines[i] = li
	}
	d.Lines = lines
	d.Recalculate()
}

// Recalculate refreshes every line amount and, for credit notes, re-runs the
// capacity clamp so the selected allocations are always consistent with the
// document's current total. It is invoked after every mutation.
func (d *Document) Recalculate() DocumentTotals {
	lines := make([]LineItem, len(d.Lines))
	for i, li := range d.Lines {
		li.Refresh()
		lines[i] = li
	}
	d.Lines = lines

	totals := d.Totals()
	result := ClampAllocations(d.Kind, totals.GrandTotal, d.SelectedAllocations)
	d.SelectedAllocations = result.Allocations
	d.AppliedTotal = result.AppliedTotal
	d.UpdatedAt = time.Now()
	return totals
}

// AddLine appends a line and recomputes derived state
func (d *Document) AddLine(li LineItem) LineItem {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	li.Quantity = li.Quantity.Abs()
	li.Refresh()
	d.Lines = append(append([]LineItem{}, d.Lines...), li)
	d.Recalculate()
	return li
}

// UpdateLine applies an interactive edit to the identified line
func (d *Document) UpdateLine(lineID uuid.UUID, edit LineEdit) (LineItem, error) {
	idx := d.lineIndex(lineID)
	if idx < 0 {
		return LineItem{}, shared.NewDomainError("LINE_NOT_FOUND", "Line item not found in document")
	}
	lines := append([]LineItem{}, d.Lines...)
	lines[idx].ApplyEdit(edit)
	d.Lines = lines
	d.Recalculate()
	return d.Lines[idx], nil
}

// RemoveLine removes the identified line and recomputes derived state
func (d *Document) RemoveLine(lineID uuid.UUID) error {
	idx := d.lineIndex(lineID)
	if idx < 0 {
		return shared.NewDomainError("LINE_NOT_FOUND", "Line item not found in document")
	}
	lines := make([]LineItem, 0, len(d.Lines)-1)
	lines = append(lines, d.Lines[:idx]...)
	lines = append(lines, d.Lines[idx+1:]...)
	d.Lines = lines
	d.Recalculate()
	return nil
}

// SetDiscountAmount sets the document-level discount, subtracted after tax
func (d *Document) SetDiscountAmount(amount decimal.Decimal) {
	d.DiscountAmount = amount
	d.Recalculate()
}

// SetPaymentTerm records the payment term and the due date derived from it
func (d *Document) SetPaymentTerm(name string, dueDate time.Time) {
	d.PaymentTerm = name
	d.DueDate = dueDate
	d.UpdatedAt = time.Now()
}

// AddPerception appends a document-level perception charge
func (d *Document) AddPerception(name string, totalAmount decimal.Decimal) Perception {
	p := Perception{
		ID:          uuid.New(),
		Name:        name,
		TotalAmount: totalAmount,
	}
	d.Perceptions = append(append([]Perception{}, d.Perceptions...), p)
	d.Recalculate()
	return p
}

// RemovePerception removes the identified perception
func (d *Document) RemovePerception(perceptionID uuid.UUID) error {
	idx := -1
	for i := range d.Perceptions {
		if d.Perceptions[i].ID == perceptionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.NewDomainError("PERCEPTION_NOT_FOUND", "Perception not found in document")
	}
	perceptions := make([]Perception, 0, len(d.Perceptions)-1)
	perceptions = append(perceptions, d.Perceptions[:idx]...)
	perceptions = append(perceptions, d.Perceptions[idx+1:]...)
	d.Perceptions = perceptions
	d.Recalculate()
	return nil
}

// SelectOutstanding adds an allocation against the candidate outstanding
// document, subject to the single-reconciliation-group rule, then re-runs the
// clamp. On rejection the allocation list is left unchanged.
func (d *Document) SelectOutstanding(candidate OutstandingDocument) error {
	next, err := ToggleAllocation(d.SelectedAllocations, candidate, true)
	if err != nil {
		return err
	}
	d.SelectedAllocations = next
	d.Recalculate()
	return nil
}

// DeselectOutstanding removes the allocation against the named source
// document. Removal never triggers the group-mixing check.
func (d *Document) DeselectOutstanding(sourceDocumentID string) {
	next, _ := ToggleAllocation(d.SelectedAllocations, OutstandingDocument{Name: sourceDocumentID}, false)
	d.SelectedAllocations = next
	d.Recalculate()
}

// SelectGroup atomically replaces the allocations of a whole reconciliation
// group with the given members, then re-runs the clamp
func (d *Document) SelectGroup(groupID string, members []OutstandingDocument) error {
	next, err := ToggleGroup(d.SelectedAllocations, groupID, members, true)
	if err != nil {
		return err
	}
	d.SelectedAllocations = next
	d.Recalculate()
	return nil
}

// DeselectGroup atomically removes every allocation of the reconciliation group
func (d *Document) DeselectGroup(groupID string) {
	next, _ := ToggleGroup(d.SelectedAllocations, groupID, nil, false)
	d.SelectedAllocations = next
	d.Recalculate()
}

// DocumentSnapshot is the final state handed to the external
// persistence/submission collaborator
type DocumentSnapshot struct {
	Lines               []LineItem        `json:"lines"`
	DiscountAmount      decimal.Decimal   `json:"discount_amount"`
	Perceptions         []Perception      `json:"perceptions"`
	SelectedAllocations []Allocation      `json:"selected_allocations"`
	AppliedTotal        decimal.Decimal   `json:"applied_total"`
	Totals              DocumentTotals    `json:"totals"`
	AppliedTotalMoney   valueobject.Money `json:"applied_total_money"`
}

// Snapshot returns the submission snapshot for the current document state
func (d *Document) Snapshot() DocumentSnapshot {
	totals := d.Totals()
	return DocumentSnapshot{
		Lines:               append([]LineItem{}, d.Lines...),
		DiscountAmount:      d.DiscountAmount,
		Perceptions:         append([]Perception{}, d.Perceptions...),
		SelectedAllocations: append([]Allocation{}, d.SelectedAllocations...),
		AppliedTotal:        d.AppliedTotal,
		Totals:              totals,
		AppliedTotalMoney:   mustMoney(d.AppliedTotal, d.Currency),
	}
}

func (d *Document) lineIndex(lineID uuid.UUID) int {
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func mustMoney(amount decimal.Decimal, currency valueobject.Currency) valueobject.Money {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	m, _ := valueobject.NewMoney(amount, currency)
	return m
}
