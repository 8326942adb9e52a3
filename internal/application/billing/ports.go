package billing

import (
	"context"

	"github.com/facturante/backend/internal/domain/billing"
)

// PaymentTermDirectory supplies the payment-term reference records consumed
// by the due-date calculation. Owned by the external payment-terms
// collaborator; this layer only reads it.
type PaymentTermDirectory interface {
	PaymentTerms(ctx context.Context) ([]billing.PaymentTerm, error)
}

// OutstandingDocumentLookup supplies candidate allocation targets for a
// supplier's credit note. The reconciliation grouping arrives as upstream
// data; it is never computed here.
type OutstandingDocumentLookup interface {
	// OutstandingForSupplier lists every outstanding document for a supplier
	OutstandingForSupplier(ctx context.Context, supplierName string) ([]billing.OutstandingDocument, error)
	// Outstanding resolves a single outstanding document by name
	Outstanding(ctx context.Context, name string) (billing.OutstandingDocument, error)
}
