package billing

import (
	"testing"

	"github.com/facturante/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	t.Run("valid kinds", func(t *testing.T) {
		for _, kind := range []DocumentKind{DocumentKindInvoice, DocumentKindCreditNote, DocumentKindDebitNote} {
			doc, err := NewDocument(kind, valueobject.ARS, "Proveedor SA")
			require.NoError(t, err)
			assert.Equal(t, kind, doc.Kind)
			assert.NotEqual(t, uuid.Nil, doc.ID)
		}
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		_, err := NewDocument("RECEIPT", valueobject.ARS, "Proveedor SA")
		require.Error(t, err)
	})

	t.Run("empty currency defaults to company currency", func(t *testing.T) {
		doc, err := NewDocument(DocumentKindInvoice, "", "Proveedor SA")
		require.NoError(t, err)
		assert.Equal(t, valueobject.DefaultCurrency, doc.Currency)
	})

	t.Run("only credit notes require allocation", func(t *testing.T) {
		assert.True(t, DocumentKindCreditNote.RequiresAllocation())
		assert.False(t, DocumentKindInvoice.RequiresAllocation())
		assert.False(t, DocumentKindDebitNote.RequiresAllocation())
	})
}

func TestDocumentNormalize(t *testing.T) {
	doc := newTestDocument(t, DocumentKindInvoice)
	doc.Lines = []LineItem{
		{
			ID:            uuid.New(),
			ItemCode:      "A-01",
			Quantity:      d("2"),
			Rate:          d("90"),
			PriceListRate: d("100"),
			TaxPercent:    d("21"),
		},
		{
			ID:         uuid.New(),
			ItemCode:   "B-02",
			Quantity:   d("-1"),
			Rate:       d("50"),
			TaxPercent: d("0"),
		},
	}
	doc.Normalize()

	assert.Equal(t, "100.00", doc.Lines[0].BaseRate.StringFixed(2))
	assert.Equal(t, "20.00", doc.Lines[0].DiscountAmount.StringFixed(2))
	assert.Equal(t, "193.60", doc.Lines[0].Amount.StringFixed(2))
	assert.Equal(t, "1", doc.Lines[1].Quantity.String())
	assert.Equal(t, "50.00", doc.Lines[1].Amount.StringFixed(2))
}

func TestDocumentLineOperations(t *testing.T) {
	t.Run("update line recomputes amount", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindInvoice)
		li := doc.AddLine(NewLineItem("A-01", "Widget", d("1"), d("100"), d("21")))

		qty := d("3")
		updated, err := doc.UpdateLine(li.ID, LineEdit{Quantity: &qty})
		require.NoError(t, err)
		assert.Equal(t, "363.00", updated.Amount.StringFixed(2))
	})

	t.Run("update unknown line", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindInvoice)
		_, err := doc.UpdateLine(uuid.New(), LineEdit{})
		require.Error(t, err)
	})

	t.Run("remove line", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindInvoice)
		li := doc.AddLine(NewLineItem("A-01", "Widget", d("1"), d("100"), d("0")))
		doc.AddLine(NewLineItem("B-02", "Gadget", d("1"), d("50"), d("0")))

		require.NoError(t, doc.RemoveLine(li.ID))
		assert.Len(t, doc.Lines, 1)
		assert.Equal(t, "50.00", doc.Totals().GrandTotal.StringFixed(2))
		assert.Error(t, doc.RemoveLine(li.ID))
	})

	t.Run("remove perception", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindInvoice)
		doc.AddLine(NewLineItem("A-01", "Widget", d("1"), d("100"), d("0")))
		p := doc.AddPerception("IIBB", d("5"))
		assert.Equal(t, "105.00", doc.Totals().GrandTotal.StringFixed(2))

		require.NoError(t, doc.RemovePerception(p.ID))
		assert.Equal(t, "100.00", doc.Totals().GrandTotal.StringFixed(2))
		assert.Error(t, doc.RemovePerception(p.ID))
	})
}

func TestCreditNoteAllocationLifecycle(t *testing.T) {
	t.Run("end to end scenario", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindCreditNote)
		doc.AddLine(NewLineItem("A-01", "Widget", d("2"), d("100"), d("21")))
		assert.Equal(t, "242.00", doc.Totals().GrandTotal.StringFixed(2))

		require.NoError(t, doc.SelectOutstanding(OutstandingDocument{Name: "FC-0001", OutstandingAmount: d("150")}))
		require.NoError(t, doc.SelectOutstanding(OutstandingDocument{Name: "FC-0002", OutstandingAmount: d("150")}))

		require.Len(t, doc.SelectedAllocations, 2)
		assert.Equal(t, "150.00", doc.SelectedAllocations[0].Amount.StringFixed(2))
		assert.Equal(t, "92.00", doc.SelectedAllocations[1].Amount.StringFixed(2))
		assert.Equal(t, "242.00", doc.AppliedTotal.StringFixed(2))
	})

	t.Run("line edit re-runs the clamp", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindCreditNote)
		li := doc.AddLine(NewLineItem("A-01", "Widget", d("2"), d("100"), d("21")))
		require.NoError(t, doc.SelectOutstanding(OutstandingDocument{Name: "FC-0001", OutstandingAmount: d("300")}))
		assert.Equal(t, "242.00", doc.AppliedTotal.StringFixed(2))

		qty := d("1")
		_, err := doc.UpdateLine(li.ID, LineEdit{Quantity: &qty})
		require.NoError(t, err)
		assert.Equal(t, "121.00", doc.SelectedAllocations[0].Amount.StringFixed(2))
		assert.Equal(t, "121.00", doc.AppliedTotal.StringFixed(2))
	})

	t.Run("document discount edit re-runs the clamp", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindCreditNote)
		doc.AddLine(NewLineItem("A-01", "Widget", d("1"), d("100"), d("0")))
		require.NoError(t, doc.SelectOutstanding(OutstandingDocument{Name: "FC-0001", OutstandingAmount: d("100")}))
		assert.Equal(t, "100.00", doc.AppliedTotal.StringFixed(2))

		doc.SetDiscountAmount(d("40"))
		assert.Equal(t, "60.00", doc.AppliedTotal.StringFixed(2))
	})

	t.Run("mixed group selection leaves document unchanged", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindCreditNote)
		doc.AddLine(NewLineItem("A-01", "Widget", d("10"), d("100"), d("0")))
		require.NoError(t, doc.SelectOutstanding(OutstandingDocument{
			Name: "FC-0001", OutstandingAmount: d("100"), ReconciliationGroupID: "G1",
		}))

		err := doc.SelectOutstanding(OutstandingDocument{
			Name: "FC-0002", OutstandingAmount: d("100"), ReconciliationGroupID: "G2",
		})
		require.Error(t, err)
		require.Len(t, doc.SelectedAllocations, 1)
		assert.Equal(t, "FC-0001", doc.SelectedAllocations[0].SourceDocumentID)
	})

	t.Run("deselect then reselect restores clamp share", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindCreditNote)
		doc.AddLine(NewLineItem("A-01", "Widget", d("1"), d("100"), d("0")))
		require.NoError(t, doc.SelectOutstanding(OutstandingDocument{Name: "FC-0001", OutstandingAmount: d("40")}))
		require.NoError(t, doc.SelectOutstanding(OutstandingDocument{Name: "FC-0002", OutstandingAmount: d("80")}))
		assert.Equal(t, "100.00", doc.AppliedTotal.StringFixed(2))

		doc.DeselectOutstanding("FC-0001")
		require.Len(t, doc.SelectedAllocations, 1)
		assert.Equal(t, "80.00", doc.AppliedTotal.StringFixed(2))
	})

	t.Run("group lifecycle on document", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindCreditNote)
		doc.AddLine(NewLineItem("A-01", "Widget", d("5"), d("100"), d("0")))
		members := []OutstandingDocument{
			{Name: "FC-0001", OutstandingAmount: d("200"), ReconciliationGroupID: "G1"},
			{Name: "FC-0002", OutstandingAmount: d("400"), ReconciliationGroupID: "G1"},
		}

		require.NoError(t, doc.SelectGroup("G1", members))
		require.Len(t, doc.SelectedAllocations, 2)
		assert.Equal(t, "200.00", doc.SelectedAllocations[0].Amount.StringFixed(2))
		assert.Equal(t, "300.00", doc.SelectedAllocations[1].Amount.StringFixed(2))
		assert.Equal(t, "500.00", doc.AppliedTotal.StringFixed(2))

		doc.DeselectGroup("G1")
		assert.Empty(t, doc.SelectedAllocations)
		assert.True(t, doc.AppliedTotal.IsZero())
	})

	t.Run("invoices never clamp their allocations", func(t *testing.T) {
		doc := newTestDocument(t, DocumentKindInvoice)
		doc.AddLine(NewLineItem("A-01", "Widget", d("1"), d("10"), d("0")))
		doc.SelectedAllocations = []Allocation{{SourceDocumentID: "X", Amount: d("500")}}
		doc.Recalculate()
		assert.Equal(t, "500.00", doc.SelectedAllocations[0].Amount.StringFixed(2))
	})
}

func TestDocumentSnapshot(t *testing.T) {
	doc := newTestDocument(t, DocumentKindCreditNote)
	doc.AddLine(NewLineItem("A-01", "Widget", d("2"), d("100"), d("21")))
	doc.AddPerception("IIBB", d("10"))
	require.NoError(t, doc.SelectOutstanding(OutstandingDocument{Name: "FC-0001", OutstandingAmount: d("500")}))

	snap := doc.Snapshot()
	assert.Len(t, snap.Lines, 1)
	assert.Len(t, snap.Perceptions, 1)
	assert.Len(t, snap.SelectedAllocations, 1)
	assert.Equal(t, "252.00", snap.AppliedTotal.StringFixed(2))
	assert.Equal(t, "252.00", snap.Totals.GrandTotal.StringFixed(2))
	assert.Equal(t, valueobject.ARS, snap.AppliedTotalMoney.Currency())

	// Snapshot slices are copies of the document state
	snap.Lines[0].Rate = d("1")
	assert.Equal(t, "100.00", doc.Lines[0].Rate.StringFixed(2))
}
