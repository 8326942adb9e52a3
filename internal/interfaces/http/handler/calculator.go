package handler

import (
	"time"

	appbilling "github.com/facturante/backend/internal/application/billing"
	"github.com/facturante/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
)

// CalculatorHandler exposes stateless document computations. Unlike the
// editor endpoints nothing is stored; the caller sends a full payload and
// gets back the normalized, recomputed view.
type CalculatorHandler struct {
	BaseHandler
	service           *appbilling.EditorService
	defaultTaxPercent float64
}

// NewCalculatorHandler creates a calculator handler
func NewCalculatorHandler(service *appbilling.EditorService, defaultTaxPercent float64) *CalculatorHandler {
	return &CalculatorHandler{
		service:           service,
		defaultTaxPercent: defaultTaxPercent,
	}
}

// RegisterRoutes registers calculator routes
func (h *CalculatorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	calc := rg.Group("/billing")
	{
		calc.POST("/preview", h.Preview)
		calc.POST("/due-date", h.DueDate)
	}
}

// Preview normalizes a document payload and returns the recomputed view,
// including clamped allocations for credit notes. The document is never
// persisted and no session is opened.
func (h *CalculatorHandler) Preview(c *gin.Context) {
	var req DocumentPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := toDocument(req.OpenSessionRequest, h.defaultTaxPercent)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	for _, ar := range req.Allocations {
		candidate := billing.OutstandingDocument{
			Name:                  ar.SourceDocumentID,
			OutstandingAmount:     toDecimal(ar.Amount),
			ReconciliationGroupID: ar.ReconciliationGroupID,
		}
		next, err := billing.ToggleAllocation(doc.SelectedAllocations, candidate, true)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		doc.SelectedAllocations = next
	}

	doc.Normalize()
	if doc.PaymentTerm != "" {
		due, err := h.service.DueDate(c.Request.Context(), doc.PaymentTerm, doc.PostingDate)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		doc.DueDate = due
	}
	h.Success(c, toDocumentResponse(doc))
}

// DueDate derives a due date from a payment term name and a base date. The
// base date defaults to today.
func (h *CalculatorHandler) DueDate(c *gin.Context) {
	var req DueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	base := time.Now()
	if req.BaseDate != nil {
		base = *req.BaseDate
	}
	due, err := h.service.DueDate(c.Request.Context(), req.PaymentTerm, base)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DueDateResponse{
		PaymentTerm: req.PaymentTerm,
		BaseDate:    base,
		DueDate:     due,
	})
}
