// Package billing provides the domain model for the purchase-invoice and
// credit-note editor: financial documents, line-item pricing, document totals,
// payment-term due dates, and credit allocation against outstanding documents.
//
// Key Aggregates:
//   - Document: The invoice/credit-note being edited, with its lines,
//     document-level discount, perceptions, and selected allocations
//
// Value Objects:
//   - LineItem: One row of a financial document with derived pricing fields
//   - Allocation: A portion of a credit note's value applied to one
//     outstanding source document
//   - PaymentTerm: Read-only reference record supplying credit days
//
// Core algorithms:
//   - NormalizePricing: Reconciles partially-specified pricing fields loaded
//     from storage into one consistent (base rate, net rate, discount) triple
//   - Document.Totals: Pure fold producing subtotal, taxable net, tax total,
//     and grand total
//   - ClampAllocations: Greedy, order-preserving reduction of proposed
//     allocations so their sum never exceeds the credit note's value
//
// Every derivation in this package is a total function over its inputs;
// missing or malformed numeric values degrade to zero rather than failing.
// The only refusable mutation is adding an allocation that would span two
// reconciliation groups.
package billing
