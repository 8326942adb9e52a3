package handler

import (
	"time"

	appbilling "github.com/facturante/backend/internal/application/billing"
	"github.com/facturante/backend/internal/domain/billing"
	"github.com/facturante/backend/internal/domain/shared/valueobject"
)

// OpenSessionRequest opens an editing session for a document
type OpenSessionRequest struct {
	Kind           string            `json:"kind" binding:"required,oneof=INVOICE CREDIT_NOTE DEBIT_NOTE"`
	Currency       string            `json:"currency" binding:"omitempty,iso_currency"`
	SupplierName   string            `json:"supplier_name"`
	PaymentTerm    string            `json:"payment_term"`
	PostingDate    *time.Time        `json:"posting_date"`
	DiscountAmount float64           `json:"discount_amount" binding:"omitempty,gte=0"`
	Lines          []LineItemRequest `json:"lines"`
}

// LineItemRequest carries one document line as entered
type LineItemRequest struct {
	ItemCode        string   `json:"item_code"`
	Description     string   `json:"description"`
	Quantity        float64  `json:"quantity"`
	Rate            float64  `json:"rate"`
	PriceListRate   float64  `json:"price_list_rate"`
	DiscountAmount  float64  `json:"discount_amount"`
	DiscountPercent float64  `json:"discount_percent"`
	TaxPercent      *float64 `json:"tax_percent"`
}

// LineEditRequest carries a partial line edit; absent fields stay unchanged
type LineEditRequest struct {
	ItemCode        *string  `json:"item_code"`
	Description     *string  `json:"description"`
	Quantity        *float64 `json:"quantity"`
	Rate            *float64 `json:"rate"`
	DiscountAmount  *float64 `json:"discount_amount"`
	DiscountPercent *float64 `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
	TaxPercent      *float64 `json:"tax_percent" binding:"omitempty,gte=0"`
}

// DiscountRequest sets the document-level discount
type DiscountRequest struct {
	Amount float64 `json:"amount" binding:"gte=0"`
}

// PerceptionRequest adds a document-level perception charge
type PerceptionRequest struct {
	Name   string  `json:"name" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
}

// AllocationToggleRequest selects or deselects one outstanding document
type AllocationToggleRequest struct {
	SourceDocumentID string `json:"source_document_id" binding:"required"`
	Selected         bool   `json:"selected"`
}

// AllocationGroupRequest selects or deselects a reconciliation group
type AllocationGroupRequest struct {
	GroupID  string `json:"group_id" binding:"required"`
	Selected bool   `json:"selected"`
}

// PaymentTermRequest applies a payment term to the document
type PaymentTermRequest struct {
	Name string `json:"name" binding:"required"`
}

// AllocationRequest is one pre-selected allocation in a preview payload
type AllocationRequest struct {
	SourceDocumentID      string  `json:"source_document_id" binding:"required"`
	Amount                float64 `json:"amount" binding:"required"`
	ReconciliationGroupID string  `json:"reconciliation_group_id"`
}

// DocumentPreviewRequest computes a document without opening a session
type DocumentPreviewRequest struct {
	OpenSessionRequest
	Allocations []AllocationRequest `json:"allocations"`
}

// DueDateRequest derives a due date from a payment term
type DueDateRequest struct {
	PaymentTerm string     `json:"payment_term" binding:"required"`
	BaseDate    *time.Time `json:"base_date"`
}

// DueDateResponse carries the derived due date
type DueDateResponse struct {
	PaymentTerm string    `json:"payment_term"`
	BaseDate    time.Time `json:"base_date"`
	DueDate     time.Time `json:"due_date"`
}

// LineItemResponse is one computed document line
type LineItemResponse struct {
	ID              string  `json:"id"`
	ItemCode        string  `json:"item_code"`
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity" example:"2"`
	Rate            float64 `json:"rate" example:"100.00"`
	BaseRate        float64 `json:"base_rate" example:"125.00"`
	PriceListRate   float64 `json:"price_list_rate" example:"125.00"`
	DiscountAmount  float64 `json:"discount_amount" example:"25.00"`
	DiscountPercent float64 `json:"discount_percent" example:"20"`
	TaxPercent      float64 `json:"tax_percent" example:"21"`
	Amount          float64 `json:"amount" example:"242.00"`
}

// PerceptionResponse is one document-level perception charge
type PerceptionResponse struct {
	ID     string  `json:"id"`
	Name   string  `json:"name" example:"IIBB CABA"`
	Amount float64 `json:"amount" example:"10.50"`
}

// AllocationResponse is one clamped credit allocation
type AllocationResponse struct {
	ID                    string  `json:"id"`
	SourceDocumentID      string  `json:"source_document_id" example:"FC-0001"`
	RequestedAmount       float64 `json:"requested_amount" example:"150.00"`
	Amount                float64 `json:"amount" example:"92.00"`
	ReconciliationGroupID string  `json:"reconciliation_group_id,omitempty"`
}

// TotalsResponse carries the derived document totals
type TotalsResponse struct {
	Subtotal   float64 `json:"subtotal" example:"242.00"`
	TaxableNet float64 `json:"taxable_net" example:"200.00"`
	TotalTax   float64 `json:"total_tax" example:"42.00"`
	GrandTotal float64 `json:"grand_total" example:"242.00"`
}

// OutstandingDocumentResponse is one allocation candidate
type OutstandingDocumentResponse struct {
	Name                  string  `json:"name" example:"FC-0001"`
	OutstandingAmount     float64 `json:"outstanding_amount" example:"150.00"`
	ReconciliationGroupID string  `json:"reconciliation_group_id,omitempty"`
}

// DocumentResponse is the computed document view
type DocumentResponse struct {
	Kind           string               `json:"kind" example:"CREDIT_NOTE"`
	Currency       string               `json:"currency" example:"ARS"`
	SupplierName   string               `json:"supplier_name,omitempty"`
	PaymentTerm    string               `json:"payment_term,omitempty"`
	PostingDate    *time.Time           `json:"posting_date,omitempty"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	Lines          []LineItemResponse   `json:"lines"`
	DiscountAmount float64              `json:"discount_amount"`
	Perceptions    []PerceptionResponse `json:"perceptions,omitempty"`
	Allocations    []AllocationResponse `json:"allocations,omitempty"`
	AppliedTotal   float64              `json:"applied_total"`
	Totals         TotalsResponse       `json:"totals"`
}

// SessionResponse is the full editing-session view returned after every
// mutation
type SessionResponse struct {
	SessionID string `json:"session_id"`
	DocumentResponse
}

func toLineItemResponse(li billing.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:              li.ID.String(),
		ItemCode:        li.ItemCode,
		Description:     li.Description,
		Quantity:        li.Quantity.InexactFloat64(),
		Rate:            li.Rate.InexactFloat64(),
		BaseRate:        li.BaseRate.InexactFloat64(),
		PriceListRate:   li.PriceListRate.InexactFloat64(),
		DiscountAmount:  li.DiscountAmount.InexactFloat64(),
		DiscountPercent: li.DiscountPercent.InexactFloat64(),
		TaxPercent:      li.TaxPercent.InexactFloat64(),
		Amount:          li.Amount.InexactFloat64(),
	}
}

func toSessionResponse(session *appbilling.Session) SessionResponse {
	session.Lock()
	defer session.Unlock()
	return SessionResponse{
		SessionID:        session.ID.String(),
		DocumentResponse: toDocumentResponse(session.Document),
	}
}

func toDocumentResponse(doc *billing.Document) DocumentResponse {
	totals := doc.Totals()

	resp := DocumentResponse{
		Kind:           doc.Kind.String(),
		Currency:       string(doc.Currency),
		SupplierName:   doc.SupplierName,
		PaymentTerm:    doc.PaymentTerm,
		DiscountAmount: doc.DiscountAmount.InexactFloat64(),
		AppliedTotal:   doc.AppliedTotal.InexactFloat64(),
		Totals: TotalsResponse{
			Subtotal:   totals.Subtotal.InexactFloat64(),
			TaxableNet: totals.TaxableNet.InexactFloat64(),
			TotalTax:   totals.TotalTax.InexactFloat64(),
			GrandTotal: totals.GrandTotal.InexactFloat64(),
		},
	}
	if !doc.PostingDate.IsZero() {
		d := doc.PostingDate
		resp.PostingDate = &d
	}
	if !doc.DueDate.IsZero() {
		d := doc.DueDate
		resp.DueDate = &d
	}

	resp.Lines = make([]LineItemResponse, 0, len(doc.Lines))
	for _, li := range doc.Lines {
		resp.Lines = append(resp.Lines, toLineItemResponse(li))
	}
	for _, p := range doc.Perceptions {
		resp.Perceptions = append(resp.Perceptions, PerceptionResponse{
			ID:     p.ID.String(),
			Name:   p.Name,
			Amount: p.TotalAmount.InexactFloat64(),
		})
	}
	for _, a := range doc.SelectedAllocations {
		resp.Allocations = append(resp.Allocations, AllocationResponse{
			ID:                    a.ID.String(),
			SourceDocumentID:      a.SourceDocumentID,
			RequestedAmount:       a.RequestedAmount.InexactFloat64(),
			Amount:                a.Amount.InexactFloat64(),
			ReconciliationGroupID: a.ReconciliationGroupID,
		})
	}
	return resp
}

// toDocument builds an unnormalized document from the request payload.
// Normalization and recomputation happen in the domain layer.
func toDocument(req OpenSessionRequest, defaultTaxPercent float64) (*billing.Document, error) {
	doc, err := billing.NewDocument(billing.DocumentKind(req.Kind), valueobject.Currency(req.Currency), req.SupplierName)
	if err != nil {
		return nil, err
	}
	doc.PaymentTerm = req.PaymentTerm
	if req.PostingDate != nil {
		doc.PostingDate = *req.PostingDate
	}
	doc.DiscountAmount = toDecimal(req.DiscountAmount)
	for _, lr := range req.Lines {
		doc.Lines = append(doc.Lines, toLineItem(lr, defaultTaxPercent))
	}
	return doc, nil
}

func toLineItem(req LineItemRequest, defaultTaxPercent float64) billing.LineItem {
	taxPercent := defaultTaxPercent
	if req.TaxPercent != nil {
		taxPercent = *req.TaxPercent
	}
	li := billing.NewLineItem(req.ItemCode, req.Description,
		toDecimal(req.Quantity), toDecimal(req.Rate), toDecimal(taxPercent))
	li.PriceListRate = toDecimal(req.PriceListRate)
	li.DiscountAmount = toDecimal(req.DiscountAmount)
	li.DiscountPercent = toDecimal(req.DiscountPercent)
	return li
}

func toLineEdit(req LineEditRequest) billing.LineEdit {
	return billing.LineEdit{
		ItemCode:        req.ItemCode,
		Description:     req.Description,
		Quantity:        toDecimalPtr(req.Quantity),
		Rate:            toDecimalPtr(req.Rate),
		DiscountAmount:  toDecimalPtr(req.DiscountAmount),
		DiscountPercent: toDecimalPtr(req.DiscountPercent),
		TaxPercent:      toDecimalPtr(req.TaxPercent),
	}
}
