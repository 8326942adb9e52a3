package handler

import (
	appbilling "github.com/facturante/backend/internal/application/billing"
	"github.com/facturante/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EditorHandler exposes the document editing sessions over HTTP. Every
// mutating endpoint returns the full recomputed session view so clients
// never have to re-derive totals or allocations themselves.
type EditorHandler struct {
	BaseHandler
	service           *appbilling.EditorService
	defaultTaxPercent float64
}

// NewEditorHandler creates an editor handler
func NewEditorHandler(service *appbilling.EditorService, defaultTaxPercent float64) *EditorHandler {
	return &EditorHandler{
		service:           service,
		defaultTaxPercent: defaultTaxPercent,
	}
}

// RegisterRoutes registers editor routes
func (h *EditorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/editor/sessions")
	{
		sessions.POST("", h.OpenSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.CloseSession)

		sessions.POST("/:id/lines", h.AddLine)
		sessions.PATCH("/:id/lines/:lineId", h.UpdateLine)
		sessions.DELETE("/:id/lines/:lineId", h.RemoveLine)

		sessions.PUT("/:id/discount", h.SetDiscount)
		sessions.POST("/:id/perceptions", h.AddPerception)
		sessions.DELETE("/:id/perceptions/:perceptionId", h.RemovePerception)

		sessions.GET("/:id/outstanding", h.ListOutstanding)
		sessions.POST("/:id/allocations", h.ToggleAllocation)
		sessions.POST("/:id/allocation-groups", h.ToggleAllocationGroup)

		sessions.PUT("/:id/payment-term", h.ApplyPaymentTerm)
	}
}

// OpenSession creates an editing session from a document payload
func (h *EditorHandler) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := toDocument(req, h.defaultTaxPercent)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	session, err := h.service.OpenSession(c.Request.Context(), doc)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.GetGinLogger(c).Info("editing session created",
		zap.String("session_id", session.ID.String()),
		zap.String("kind", req.Kind),
	)
	h.Created(c, toSessionResponse(session))
}

// GetSession returns the current session view
func (h *EditorHandler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.Success(c, toSessionResponse(session))
}

// CloseSession discards the session
func (h *EditorHandler) CloseSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.service.CloseSession(sessionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddLine appends a line to the document
func (h *EditorHandler) AddLine(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req LineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if _, err := h.service.AddLine(c.Request.Context(), sessionID, toLineItem(req, h.defaultTaxPercent)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondWithSession(c, sessionID)
}

// UpdateLine applies a partial edit to one line
func (h *EditorHandler) UpdateLine(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID")
		return
	}
	var req LineEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if _, err := h.service.UpdateLine(c.Request.Context(), sessionID, lineID, toLineEdit(req)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondWithSession(c, sessionID)
}

// RemoveLine removes one line from the document
func (h *EditorHandler) RemoveLine(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID")
		return
	}

	if err := h.service.RemoveLine(c.Request.Context(), sessionID, lineID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondWithSession(c, sessionID)
}

// SetDiscount sets the document-level discount
func (h *EditorHandler) SetDiscount(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.service.SetDocumentDiscount(c.Request.Context(), sessionID, toDecimal(req.Amount)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondWithSession(c, sessionID)
}

// AddPerception appends a perception charge
func (h *EditorHandler) AddPerception(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req PerceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if _, err := h.service.AddPerception(c.Request.Context(), sessionID, req.Name, toDecimal(req.Amount)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondWithSession(c, sessionID)
}

// RemovePerception removes a perception charge
func (h *EditorHandler) RemovePerception(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	perceptionID, err := uuid.Parse(c.Param("perceptionId"))
	if err != nil {
		h.BadRequest(c, "Invalid perception ID")
		return
	}

	if err := h.service.RemovePerception(c.Request.Context(), sessionID, perceptionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondWithSession(c, sessionID)
}

// ListOutstanding lists the allocation candidates for the session's supplier
func (h *EditorHandler) ListOutstanding(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	docs, err := h.service.ListOutstanding(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]OutstandingDocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, OutstandingDocumentResponse{
			Name:                  doc.Name,
			OutstandingAmount:     doc.OutstandingAmount.InexactFloat64(),
			ReconciliationGroupID: doc.ReconciliationGroupID,
		})
	}
	h.Success(c, resp)
}

// ToggleAllocation selects or deselects a single outstanding document
func (h *EditorHandler) ToggleAllocation(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req AllocationToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.service.ToggleAllocation(c.Request.Context(), sessionID, req.SourceDocumentID, req.Selected); err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondWithSession(c, sessionID)
}

// ToggleAllocationGroup selects or deselects a whole reconciliation group
func (h *EditorHandler) ToggleAllocationGroup(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req AllocationGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.service.ToggleAllocationGroup(c.Request.Context(), sessionID, req.GroupID, req.Selected); err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondWithSession(c, sessionID)
}

// ApplyPaymentTerm applies a payment term and derives the due date
func (h *EditorHandler) ApplyPaymentTerm(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req PaymentTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if _, err := h.service.ApplyPaymentTerm(c.Request.Context(), sessionID, req.Name); err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondWithSession(c, sessionID)
}

// sessionID parses the :id path parameter
func (h *EditorHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// session resolves the session from the :id path parameter
func (h *EditorHandler) session(c *gin.Context) (*appbilling.Session, bool) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return nil, false
	}
	session, err := h.service.Session(sessionID)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return session, true
}

// respondWithSession sends the recomputed session view
func (h *EditorHandler) respondWithSession(c *gin.Context, sessionID uuid.UUID) {
	session, err := h.service.Session(sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSessionResponse(session))
}
