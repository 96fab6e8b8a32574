/*
engine.go - Invoice mutation operations and the recompute funnel

PURPOSE:
  Implements the derived-amount invariant: after any line-item mutation,
  every item amount and the invoice totals are consistent with the current
  inputs. All mutations funnel through Recompute; there is no code path
  that writes Amount or Totals from the outside.

RECOMPUTATION RULE:
  base    = quantity * rate
  amount  = base * (1 - discount1/100) * (1 - discount2/100)
  USD     = sum(item amounts)
  KHR     = USD * exchangeRate

  Both discounts are always reapplied in order, even when only one of them
  changed. A zero discount is skipped (equivalent to multiplying by 1).

NUMERIC SEMANTICS:
  No rounding is applied here. Two-decimal display is a presentation
  concern; stored values keep full decimal precision.

SEE ALSO:
  - types.go:   Invoice and LineItem definitions
  - service.go: Store-backed orchestration of these operations
*/
package billing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// ITEM PATCH - Single-field updates to a line item
// =============================================================================

// ItemPatch carries the fields to change on a line item. Nil fields are
// left untouched. Description changes never affect amounts; any numeric
// change triggers a full recompute of the item and the totals.
type ItemPatch struct {
	Description *string
	Quantity    *decimal.Decimal
	Rate        *decimal.Decimal
	Discount1   *decimal.Decimal
	Discount2   *decimal.Decimal
}

func (p ItemPatch) touchesAmount() bool {
	return p.Quantity != nil || p.Rate != nil || p.Discount1 != nil || p.Discount2 != nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// AddItem appends a zero-valued line item (quantity 1, rate 0, amount 0).
// Totals are unchanged because the new amount is zero, but the returned
// invoice carries a fresh item sequence preserving insertion order.
func AddItem(inv Invoice) Invoice {
	out := inv.clone()
	out.Items = append(out.Items, LineItem{
		Quantity: decimal.NewFromInt(1),
		Rate:     decimal.Zero,
		Amount:   decimal.Zero,
	})
	return out
}

// RemoveItem removes the item at index i and recomputes totals with the
// given exchange rate. Returns ErrIndexOutOfRange (wrapped with position
// detail) when i is outside [0, len); the input invoice is returned
// unchanged in that case.
func RemoveItem(inv Invoice, i int, exchangeRate decimal.Decimal) (Invoice, error) {
	if i < 0 || i >= len(inv.Items) {
		return inv, &IndexError{Index: i, Length: len(inv.Items)}
	}
	out := inv.clone()
	out.Items = append(out.Items[:i], out.Items[i+1:]...)
	return Recompute(out, exchangeRate), nil
}

// UpdateItem applies patch to the item at index i. Numeric changes
// recompute the item amount from quantity x rate with both discounts
// reapplied in order, then refresh the totals. Description-only patches
// leave every amount untouched.
func UpdateItem(inv Invoice, i int, patch ItemPatch, exchangeRate decimal.Decimal) (Invoice, error) {
	if i < 0 || i >= len(inv.Items) {
		return inv, &IndexError{Index: i, Length: len(inv.Items)}
	}
	out := inv.clone()
	item := &out.Items[i]

	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.Rate != nil {
		item.Rate = *patch.Rate
	}
	if patch.Discount1 != nil {
		item.Discount1 = *patch.Discount1
	}
	if patch.Discount2 != nil {
		item.Discount2 = *patch.Discount2
	}

	if !patch.touchesAmount() {
		return out, nil
	}
	return Recompute(out, exchangeRate), nil
}

// SetStatus returns the invoice with the given status. Status is a free
// field, not derived from payments, but unknown values are rejected.
func SetStatus(inv Invoice, status InvoiceStatus) (Invoice, error) {
	if !status.Valid() {
		return inv, &ValidationError{Field: "status", Reason: "unknown invoice status: " + string(status)}
	}
	out := inv.clone()
	out.Status = status
	return out, nil
}

// =============================================================================
// RECOMPUTE - The single derivation funnel
// =============================================================================

// Recompute derives every item amount and the invoice totals. It is the
// only place amounts are written; callers that bypass the operations above
// (e.g. a store rehydrating raw inputs) use it to restore the invariant.
func Recompute(inv Invoice, exchangeRate decimal.Decimal) Invoice {
	out := inv.clone()
	usd := decimal.Zero
	for i := range out.Items {
		out.Items[i].Amount = itemAmount(out.Items[i])
		usd = usd.Add(out.Items[i].Amount)
	}
	out.Totals = Totals{
		USD: usd,
		KHR: usd.Mul(exchangeRate),
	}
	return out
}

// itemAmount applies the discount chain to quantity x rate.
func itemAmount(it LineItem) decimal.Decimal {
	amount := it.Quantity.Mul(it.Rate)
	for _, d := range []decimal.Decimal{it.Discount1, it.Discount2} {
		if d.IsZero() {
			continue
		}
		amount = amount.Mul(decimal.NewFromInt(1).Sub(d.Div(hundred)))
	}
	return amount
}

// =============================================================================
// VALIDATION - Submission-time checks
// =============================================================================

// ValidateForSubmit checks the rules that apply when an invoice is
// submitted for persistence: every item needs a description, and numeric
// inputs must be non-negative. Violations return a ValidationError; the
// invoice itself is not modified.
func ValidateForSubmit(inv Invoice) error {
	if inv.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "date is required"}
	}
	for i, it := range inv.Items {
		if it.Description == "" {
			return &ValidationError{Field: "items", Reason: "item description is required", Index: i}
		}
		if it.Quantity.IsNegative() {
			return &ValidationError{Field: "items", Reason: "quantity must be non-negative", Index: i}
		}
		if it.Rate.IsNegative() {
			return &ValidationError{Field: "items", Reason: "rate must be non-negative", Index: i}
		}
	}
	return nil
}
