/*
Package billing provides the invoice computation engine.

PURPOSE:
  This package contains the core types and algorithms for clinic invoicing:
  line items with chained percentage discounts, derived per-item amounts,
  and dual-currency (USD/KHR) invoice totals.

KEY CONCEPTS IN THIS FILE (types.go):
  - LineItem: A billable entry (description, quantity, rate, discounts)
  - Invoice:  An ordered sequence of line items with cached totals
  - Totals:   The invoice aggregate in USD and KHR
  - Currency: USD or KHR (KHR amounts derive from USD via exchange rate)

DESIGN PRINCIPLES:
  1. Derived values are never set directly: LineItem.Amount and
     Invoice.Totals only change via Recompute (engine.go)
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Purity: Operations take a snapshot and return a new value; on error
     the input is returned unchanged

USAGE:
  inv := billing.NewInvoice("INV-2603-412", time.Now())
  inv = billing.AddItem(inv)
  inv, err := billing.UpdateItem(inv, 0, billing.ItemPatch{
      Quantity: billing.Dec("2"),
      Rate:     billing.Dec("50"),
  }, rate)

SEE ALSO:
  - engine.go:    Mutation operations and the recompute funnel
  - numbering.go: Reference-number generation
  - errors.go:    Error types shared across the engine
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENCY
// =============================================================================

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyKHR Currency = "KHR"
)

// Valid reports whether c is a known currency.
func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyKHR
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// InvoiceID is the storage identifier of an invoice. The human-facing
// invoice number (Invoice.Number) is a separate, immutable field.
type InvoiceID string

// =============================================================================
// INVOICE STATUS
// =============================================================================

// InvoiceStatus is freely settable by the caller; it is not derived from
// payment records.
type InvoiceStatus string

const (
	StatusUnpaid        InvoiceStatus = "Unpaid"
	StatusPaid          InvoiceStatus = "Paid"
	StatusPartiallyPaid InvoiceStatus = "PartiallyPaid"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPaid, StatusPartiallyPaid:
		return true
	}
	return false
}

// =============================================================================
// LINE ITEM
// =============================================================================

// LineItem is a single billable entry. Amount is derived:
//
//	Amount = Quantity * Rate * (1 - Discount1/100) * (1 - Discount2/100)
//
// A zero discount is treated as absent. Amount is recomputed by the engine
// on every numeric change and must never be written directly.
//
// Discounts are expected in [0,100]. The engine does not reject values
// outside that range; constraining input is the caller's responsibility.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal // unit price in USD
	Discount1   decimal.Decimal // percent, applied first
	Discount2   decimal.Decimal // percent, applied after Discount1
	Amount      decimal.Decimal // derived, USD
}

// =============================================================================
// TOTALS - Cached dual-currency aggregate
// =============================================================================

// Totals holds the invoice aggregate. USD is the sum of item amounts;
// KHR is exactly USD multiplied by the facility exchange rate.
type Totals struct {
	USD decimal.Decimal
	KHR decimal.Decimal
}

// =============================================================================
// INVOICE
// =============================================================================

// Invoice owns its line items exclusively. Items keep insertion order, and
// Totals is a cached projection kept consistent by funnelling every
// mutation through Recompute.
type Invoice struct {
	ID         InvoiceID
	Number     string // generated at creation, immutable
	Date       time.Time
	Status     InvoiceStatus
	FacilityID string // owning facility, empty means defaults apply
	Items      []LineItem

	Totals Totals

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInvoice returns an empty Unpaid invoice with zero totals.
func NewInvoice(number string, date time.Time) Invoice {
	return Invoice{
		Number: number,
		Date:   date,
		Status: StatusUnpaid,
		Totals: Totals{USD: decimal.Zero, KHR: decimal.Zero},
	}
}

// clone returns a deep copy so operations never mutate their input.
func (inv Invoice) clone() Invoice {
	out := inv
	out.Items = make([]LineItem, len(inv.Items))
	copy(out.Items, inv.Items)
	return out
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// Dec parses s into a decimal pointer, for building ItemPatch values.
// Invalid input yields zero, matching how absent discounts behave.
func Dec(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		d = decimal.Zero
	}
	return &d
}
