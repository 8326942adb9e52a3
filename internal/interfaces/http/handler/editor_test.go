package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	appbilling "github.com/facturante/backend/internal/application/billing"
	"github.com/facturante/backend/internal/domain/billing"
	"github.com/facturante/backend/internal/domain/shared"
	"github.com/facturante/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTermDirectory struct{}

func (s *stubTermDirectory) PaymentTerms(ctx context.Context) ([]billing.PaymentTerm, error) {
	return []billing.PaymentTerm{
		{Name: "30 Dias", Terms: []billing.PaymentTermRule{{CreditDays: 30}}},
	}, nil
}

type stubOutstandingLookup struct {
	documents []billing.OutstandingDocument
}

func (s *stubOutstandingLookup) OutstandingForSupplier(ctx context.Context, supplierName string) ([]billing.OutstandingDocument, error) {
	return s.documents, nil
}

func (s *stubOutstandingLookup) Outstanding(ctx context.Context, name string) (billing.OutstandingDocument, error) {
	for _, doc := range s.documents {
		if doc.Name == name {
			return doc, nil
		}
	}
	return billing.OutstandingDocument{}, shared.NewDomainError("OUTSTANDING_NOT_FOUND", "Outstanding document not found")
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	outstanding := &stubOutstandingLookup{documents: []billing.OutstandingDocument{
		{Name: "FC-0001", OutstandingAmount: decimal.NewFromInt(150)},
		{Name: "FC-0002", OutstandingAmount: decimal.NewFromInt(150)},
		{Name: "FC-0003", OutstandingAmount: decimal.NewFromInt(60), ReconciliationGroupID: "grp-a"},
		{Name: "FC-0004", OutstandingAmount: decimal.NewFromInt(25), ReconciliationGroupID: "grp-b"},
	}}
	service := appbilling.NewEditorService(&stubTermDirectory{}, outstanding, zap.NewNop())

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewEditorHandler(service, 21).RegisterRoutes(api)
	NewCalculatorHandler(service, 21).RegisterRoutes(api)
	return engine
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    SessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func openCreditNote(t *testing.T, router *gin.Engine) SessionResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/editor/sessions", OpenSessionRequest{
		Kind:         "CREDIT_NOTE",
		SupplierName: "Proveedor SA",
		Lines: []LineItemRequest{
			{ItemCode: "SKU-1", Description: "Servicio", Quantity: 2, Rate: 100},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeSession(t, w)
}

func TestOpenSession(t *testing.T) {
	router := newTestRouter(t)

	t.Run("computes totals with default tax", func(t *testing.T) {
		session := openCreditNote(t, router)
		assert.NotEmpty(t, session.SessionID)
		assert.Equal(t, "CREDIT_NOTE", session.Kind)
		assert.Equal(t, "ARS", session.Currency)
		require.Len(t, session.Lines, 1)
		assert.InDelta(t, 242.00, session.Lines[0].Amount, 0.001)
		assert.InDelta(t, 242.00, session.Totals.GrandTotal, 0.001)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/editor/sessions", map[string]any{
			"kind": "QUOTE",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("honors explicit tax percent", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/editor/sessions", map[string]any{
			"kind": "INVOICE",
			"lines": []map[string]any{
				{"item_code": "SKU-9", "quantity": 1, "rate": 100, "tax_percent": 0},
			},
		})
		require.Equal(t, http.StatusCreated, w.Code)
		session := decodeSession(t, w)
		assert.InDelta(t, 100.00, session.Totals.GrandTotal, 0.001)
	})
}

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(t)
	session := openCreditNote(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/editor/sessions/"+session.SessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/editor/sessions/"+session.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/editor/sessions/"+session.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/editor/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLineEndpoints(t *testing.T) {
	router := newTestRouter(t)
	session := openCreditNote(t, router)
	base := "/api/v1/editor/sessions/" + session.SessionID

	t.Run("add line", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/lines", map[string]any{
			"item_code": "SKU-2", "quantity": 1, "rate": 58, "tax_percent": 0,
		})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeSession(t, w)
		require.Len(t, resp.Lines, 2)
		assert.InDelta(t, 300.00, resp.Totals.GrandTotal, 0.001)
	})

	t.Run("update line rederives amounts", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPatch,
			fmt.Sprintf("%s/lines/%s", base, session.Lines[0].ID),
			map[string]any{"quantity": 3})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeSession(t, w)
		assert.InDelta(t, 363.00, resp.Lines[0].Amount, 0.001)
	})

	t.Run("remove line", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, base, nil)
		resp := decodeSession(t, w)
		lineID := resp.Lines[1].ID

		w = doJSON(t, router, http.MethodDelete, base+"/lines/"+lineID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp = decodeSession(t, w)
		assert.Len(t, resp.Lines, 1)
	})

	t.Run("unknown line yields 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPatch,
			base+"/lines/00000000-0000-0000-0000-000000000099",
			map[string]any{"rate": 1})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDiscountAndPerceptions(t *testing.T) {
	router := newTestRouter(t)
	session := openCreditNote(t, router)
	base := "/api/v1/editor/sessions/" + session.SessionID

	w := doJSON(t, router, http.MethodPut, base+"/discount", map[string]any{"amount": 42})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSession(t, w)
	assert.InDelta(t, 200.00, resp.Totals.GrandTotal, 0.001)

	w = doJSON(t, router, http.MethodPost, base+"/perceptions", map[string]any{
		"name": "IIBB CABA", "amount": 10.5,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeSession(t, w)
	require.Len(t, resp.Perceptions, 1)
	assert.InDelta(t, 210.50, resp.Totals.GrandTotal, 0.001)

	w = doJSON(t, router, http.MethodDelete, base+"/perceptions/"+resp.Perceptions[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeSession(t, w)
	assert.Empty(t, resp.Perceptions)
	assert.InDelta(t, 200.00, resp.Totals.GrandTotal, 0.001)
}

func TestAllocationEndpoints(t *testing.T) {
	router := newTestRouter(t)
	session := openCreditNote(t, router)
	base := "/api/v1/editor/sessions/" + session.SessionID

	t.Run("lists candidates", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, base+"/outstanding", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var envelope struct {
			Data []OutstandingDocumentResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.Len(t, envelope.Data, 4)
	})

	t.Run("selection is clamped in order", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/allocations", map[string]any{
			"source_document_id": "FC-0001", "selected": true,
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodPost, base+"/allocations", map[string]any{
			"source_document_id": "FC-0002", "selected": true,
		})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeSession(t, w)
		require.Len(t, resp.Allocations, 2)
		assert.InDelta(t, 150.00, resp.Allocations[0].Amount, 0.001)
		assert.InDelta(t, 92.00, resp.Allocations[1].Amount, 0.001)
		assert.InDelta(t, 242.00, resp.AppliedTotal, 0.001)
	})

	t.Run("deselect restores capacity", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/allocations", map[string]any{
			"source_document_id": "FC-0001", "selected": false,
		})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeSession(t, w)
		require.Len(t, resp.Allocations, 1)
		assert.Equal(t, "FC-0002", resp.Allocations[0].SourceDocumentID)
		assert.InDelta(t, 150.00, resp.Allocations[0].Amount, 0.001)
	})

	t.Run("mixed reconciliation groups rejected with 422", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/allocations", map[string]any{
			"source_document_id": "FC-0003", "selected": true,
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var envelope struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.Equal(t, "ERR_MIXED_RECONCILIATION_GROUP", envelope.Error.Code)
	})

	t.Run("group toggle replaces selection atomically", func(t *testing.T) {
		// clear the ungrouped allocation first
		w := doJSON(t, router, http.MethodPost, base+"/allocations", map[string]any{
			"source_document_id": "FC-0002", "selected": false,
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodPost, base+"/allocation-groups", map[string]any{
			"group_id": "grp-a", "selected": true,
		})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeSession(t, w)
		require.Len(t, resp.Allocations, 1)
		assert.Equal(t, "FC-0003", resp.Allocations[0].SourceDocumentID)

		w = doJSON(t, router, http.MethodPost, base+"/allocation-groups", map[string]any{
			"group_id": "grp-a", "selected": false,
		})
		require.Equal(t, http.StatusOK, w.Code)
		resp = decodeSession(t, w)
		assert.Empty(t, resp.Allocations)
	})

	t.Run("unknown candidate yields 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/allocations", map[string]any{
			"source_document_id": "FC-9999", "selected": true,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestApplyPaymentTerm(t *testing.T) {
	router := newTestRouter(t)
	session := openCreditNote(t, router)
	base := "/api/v1/editor/sessions/" + session.SessionID

	w := doJSON(t, router, http.MethodPut, base+"/payment-term", map[string]any{"name": "30 Dias"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSession(t, w)
	assert.Equal(t, "30 Dias", resp.PaymentTerm)
	require.NotNil(t, resp.DueDate)
	require.NotNil(t, resp.PostingDate)
	assert.Equal(t, resp.PostingDate.AddDate(0, 0, 30), *resp.DueDate)
}
