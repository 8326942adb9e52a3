// Package directory provides in-memory reference-data adapters backing the
// editor's payment-term and outstanding-document lookups. Records come from
// seed fixtures or JSON files under the configured data directory; in a full
// deployment they would be fed from the accounting system of record.
package directory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/facturante/backend/internal/domain/billing"
	"github.com/facturante/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentTermDirectory serves payment-term records from memory
type PaymentTermDirectory struct {
	mu    sync.RWMutex
	terms []billing.PaymentTerm
}

// NewPaymentTermDirectory creates a directory with the given records
func NewPaymentTermDirectory(terms []billing.PaymentTerm) *PaymentTermDirectory {
	return &PaymentTermDirectory{terms: terms}
}

// PaymentTerms returns every payment-term record
func (d *PaymentTermDirectory) PaymentTerms(ctx context.Context) ([]billing.PaymentTerm, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]billing.PaymentTerm, len(d.terms))
	copy(out, d.terms)
	return out, nil
}

// Replace swaps the full record set
func (d *PaymentTermDirectory) Replace(terms []billing.PaymentTerm) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.terms = terms
}

// OutstandingDirectory serves outstanding documents keyed by supplier
type OutstandingDirectory struct {
	mu         sync.RWMutex
	bySupplier map[string][]billing.OutstandingDocument
	byName     map[string]billing.OutstandingDocument
}

// NewOutstandingDirectory creates an empty directory
func NewOutstandingDirectory() *OutstandingDirectory {
	return &OutstandingDirectory{
		bySupplier: make(map[string][]billing.OutstandingDocument),
		byName:     make(map[string]billing.OutstandingDocument),
	}
}

// Add registers an outstanding document for a supplier. A document with the
// same name replaces the previous record.
func (d *OutstandingDirectory) Add(supplierName string, doc billing.OutstandingDocument) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := supplierKey(supplierName)
	docs := d.bySupplier[key]
	replaced := false
	for i, existing := range docs {
		if existing.Name == doc.Name {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, doc)
	}
	d.bySupplier[key] = docs
	d.byName[doc.Name] = doc
}

// OutstandingForSupplier lists every outstanding document for a supplier
func (d *OutstandingDirectory) OutstandingForSupplier(ctx context.Context, supplierName string) ([]billing.OutstandingDocument, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	docs := d.bySupplier[supplierKey(supplierName)]
	out := make([]billing.OutstandingDocument, len(docs))
	copy(out, docs)
	return out, nil
}

// Outstanding resolves a single outstanding document by name
func (d *OutstandingDirectory) Outstanding(ctx context.Context, name string) (billing.OutstandingDocument, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.byName[name]
	if !ok {
		return billing.OutstandingDocument{}, shared.NewDomainError("OUTSTANDING_NOT_FOUND", "Outstanding document not found")
	}
	return doc, nil
}

func supplierKey(supplierName string) string {
	return strings.ToLower(strings.TrimSpace(supplierName))
}

// paymentTermFile mirrors the on-disk shape of payment_terms.json
type paymentTermFile struct {
	Terms []struct {
		Name  string `json:"name"`
		Rules []struct {
			CreditDays int `json:"credit_days"`
		} `json:"rules"`
	} `json:"terms"`
}

// LoadPaymentTerms reads payment-term records from payment_terms.json in
// dataDir. A missing file yields an empty directory, not an error.
func LoadPaymentTerms(dataDir string) (*PaymentTermDirectory, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "payment_terms.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return NewPaymentTermDirectory(nil), nil
		}
		return nil, err
	}

	var file paymentTermFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}

	terms := make([]billing.PaymentTerm, 0, len(file.Terms))
	for _, t := range file.Terms {
		term := billing.PaymentTerm{Name: t.Name}
		for _, r := range t.Rules {
			term.Terms = append(term.Terms, billing.PaymentTermRule{CreditDays: r.CreditDays})
		}
		terms = append(terms, term)
	}
	return NewPaymentTermDirectory(terms), nil
}

// outstandingFile mirrors the on-disk shape of outstanding_documents.json
type outstandingFile struct {
	Documents []struct {
		SupplierName          string `json:"supplier_name"`
		Name                  string `json:"name"`
		OutstandingAmount     string `json:"outstanding_amount"`
		ReconciliationGroupID string `json:"reconciliation_group_id"`
	} `json:"documents"`
}

// LoadOutstandingDocuments reads outstanding documents from
// outstanding_documents.json in dataDir. A missing file yields an empty
// directory, not an error.
func LoadOutstandingDocuments(dataDir string) (*OutstandingDirectory, error) {
	dir := NewOutstandingDirectory()

	raw, err := os.ReadFile(filepath.Join(dataDir, "outstanding_documents.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return dir, nil
		}
		return nil, err
	}

	var file outstandingFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}

	for _, rec := range file.Documents {
		amount, err := decimal.NewFromString(rec.OutstandingAmount)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_FIXTURE", "Outstanding amount is not a valid decimal: "+rec.OutstandingAmount)
		}
		dir.Add(rec.SupplierName, billing.OutstandingDocument{
			Name:                  rec.Name,
			OutstandingAmount:     amount,
			ReconciliationGroupID: rec.ReconciliationGroupID,
		})
	}
	return dir, nil
}
