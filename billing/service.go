/*
service.go - Store-backed invoice orchestration

PURPOSE:
  Wraps the pure engine operations with persistence: load a snapshot,
  apply one operation, save the result. Each method is scoped to a single
  invoice; edits to different invoices never interact.

EXCHANGE RATE:
  The facility exchange rate is passed explicitly into every call rather
  than read from ambient state, so the same service handles invoices for
  any facility.

SEE ALSO:
  - engine.go: The operations being orchestrated
  - store.go:  The persistence boundary
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service orchestrates invoice operations against a store.
type Service struct {
	Store InvoiceStore

	// Now and Intn are injectable for deterministic tests. Nil means
	// time.Now and math/rand.
	Now  func() time.Time
	Intn func(int) int
}

// NewService returns a Service with production clock and rand source.
func NewService(store InvoiceStore) *Service {
	return &Service{Store: store, Now: time.Now, Intn: defaultIntn}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) intn(n int) int {
	if s.Intn != nil {
		return s.Intn(n)
	}
	return defaultIntn(n)
}

// Create validates, numbers, recomputes, and persists a new invoice.
// The invoice number is generated here and is immutable afterwards.
func (s *Service) Create(ctx context.Context, inv Invoice, exchangeRate decimal.Decimal) (*Invoice, error) {
	now := s.now()
	inv.ID = InvoiceID(uuid.NewString())
	inv.Number = NewInvoiceNumber(now, s.intn)
	if inv.Date.IsZero() {
		inv.Date = now
	}
	if inv.Status == "" {
		inv.Status = StatusUnpaid
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now

	inv = Recompute(inv, exchangeRate)
	if err := ValidateForSubmit(inv); err != nil {
		return nil, err
	}
	if err := s.Store.SaveInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}
	return &inv, nil
}

// AddItem appends a zero-valued line item and persists the result. No
// exchange rate is needed: the new item's amount is zero, so totals do
// not move.
func (s *Service) AddItem(ctx context.Context, id InvoiceID) (*Invoice, error) {
	return s.mutate(ctx, id, func(inv Invoice) (Invoice, error) {
		return AddItem(inv), nil
	})
}

// RemoveItem removes the item at index i and persists the result.
func (s *Service) RemoveItem(ctx context.Context, id InvoiceID, i int, exchangeRate decimal.Decimal) (*Invoice, error) {
	return s.mutate(ctx, id, func(inv Invoice) (Invoice, error) {
		return RemoveItem(inv, i, exchangeRate)
	})
}

// UpdateItem patches the item at index i and persists the result.
func (s *Service) UpdateItem(ctx context.Context, id InvoiceID, i int, patch ItemPatch, exchangeRate decimal.Decimal) (*Invoice, error) {
	return s.mutate(ctx, id, func(inv Invoice) (Invoice, error) {
		return UpdateItem(inv, i, patch, exchangeRate)
	})
}

// SetStatus updates the payment status and persists the result. Status
// changes never touch amounts, so no recompute happens here.
func (s *Service) SetStatus(ctx context.Context, id InvoiceID, status InvoiceStatus) (*Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := SetStatus(*inv, status)
	if err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()
	if err := s.Store.SaveInvoice(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}
	return &updated, nil
}

// Get returns a single invoice.
func (s *Service) Get(ctx context.Context, id InvoiceID) (*Invoice, error) {
	return s.Store.GetInvoice(ctx, id)
}

// List returns all invoices.
func (s *Service) List(ctx context.Context) ([]Invoice, error) {
	return s.Store.ListInvoices(ctx)
}

// Delete removes an invoice.
func (s *Service) Delete(ctx context.Context, id InvoiceID) error {
	return s.Store.DeleteInvoice(ctx, id)
}

// mutate loads, applies op, and saves. On any error the stored record is
// untouched: no partial mutation is ever observable.
func (s *Service) mutate(ctx context.Context, id InvoiceID, op func(Invoice) (Invoice, error)) (*Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := op(*inv)
	if err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()
	if err := s.Store.SaveInvoice(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}
	return &updated, nil
}
