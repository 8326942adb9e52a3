package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueDate(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	terms := []PaymentTerm{
		{Name: "30 days", Terms: []PaymentTermRule{{CreditDays: 30}}},
		{Name: "60 days", Terms: []PaymentTermRule{{CreditDays: 60}, {CreditDays: 90}}},
		{Name: "Sin reglas"},
	}

	t.Run("named term uses first credit-days rule", func(t *testing.T) {
		due := DueDate("30 days", base, terms)
		assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), due)
	})

	t.Run("only the first rule counts", func(t *testing.T) {
		due := DueDate("60 days", base, terms)
		assert.Equal(t, base.AddDate(0, 0, 60), due)
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		due := DueDate("30 DAYS", base, terms)
		assert.Equal(t, base.AddDate(0, 0, 30), due)
	})

	t.Run("unknown contado term means cash", func(t *testing.T) {
		due := DueDate("Contado", base, nil)
		assert.Equal(t, base, due)
	})

	t.Run("contado embedded in a longer name", func(t *testing.T) {
		due := DueDate("Pago CONTADO efectivo", base, terms)
		assert.Equal(t, base, due)
	})

	t.Run("unknown term defaults to zero days", func(t *testing.T) {
		due := DueDate("whatever", base, terms)
		assert.Equal(t, base, due)
	})

	t.Run("term without rules defaults to zero days", func(t *testing.T) {
		due := DueDate("Sin reglas", base, terms)
		assert.Equal(t, base, due)
	})

	t.Run("calendar days, no business-day logic", func(t *testing.T) {
		// 2024-01-05 + 2 days lands on a Sunday and stays there
		friday := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
		two := []PaymentTerm{{Name: "2 days", Terms: []PaymentTermRule{{CreditDays: 2}}}}
		assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), DueDate("2 days", friday, two))
	})
}
