package billing

import (
	"strings"
	"time"
)

// PaymentTermRule is one credit-days rule inside a payment term
type PaymentTermRule struct {
	CreditDays int `json:"credit_days"`
}

// PaymentTerm is a read-only reference record owned by the payment-terms
// directory collaborator
type PaymentTerm struct {
	Name  string            `json:"name"`
	Terms []PaymentTermRule `json:"terms"`
}

// DueDate derives a due date from a payment term's credit days and a base
// date. The named term's first credit-days rule wins; a term that is not in
// the reference list but whose name contains "contado" (cash) counts as zero
// credit days, as does anything else unknown. Days are calendar days, with
// no business-day logic.
func DueDate(termName string, baseDate time.Time, terms []PaymentTerm) time.Time {
	days := 0
	found := false
	for i := range terms {
		if strings.EqualFold(terms[i].Name, termName) {
			found = true
			if len(terms[i].Terms) > 0 {
				days = terms[i].Terms[0].CreditDays
			}
			break
		}
	}
	if !found && strings.Contains(strings.ToLower(termName), "contado") {
		days = 0
	}
	return baseDate.AddDate(0, 0, days)
}
