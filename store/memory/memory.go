// Package memory provides an in-memory implementation of the storage
// interfaces, for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/claims"
	"github.com/clinichq/billing-engine/facility"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store implements billing.InvoiceStore, claims.ClaimStore, and
// facility.Store over maps. Reads return copies, so callers can never
// reach shared state through a returned record.
type Store struct {
	mu         sync.RWMutex
	invoices   map[billing.InvoiceID]billing.Invoice
	claims     map[claims.ClaimID]claims.Claim
	facilities map[facility.ID]facility.Facility
}

func New() *Store {
	return &Store{
		invoices:   make(map[billing.InvoiceID]billing.Invoice),
		claims:     make(map[claims.ClaimID]claims.Claim),
		facilities: make(map[facility.ID]facility.Facility),
	}
}

// =============================================================================
// INVOICES
// =============================================================================

func (s *Store) SaveInvoice(_ context.Context, inv billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, billing.ErrNotFound
	}
	out := copyInvoice(inv)
	return &out, nil
}

func (s *Store) ListInvoices(_ context.Context) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]billing.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, copyInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (s *Store) DeleteInvoice(_ context.Context, id billing.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[id]; !ok {
		return billing.ErrNotFound
	}
	delete(s.invoices, id)
	return nil
}

// =============================================================================
// CLAIMS
// =============================================================================

func (s *Store) SaveClaim(_ context.Context, c claims.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[c.ID] = copyClaim(c)
	return nil
}

func (s *Store) GetClaim(_ context.Context, id claims.ClaimID) (*claims.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[id]
	if !ok {
		return nil, billing.ErrNotFound
	}
	out := copyClaim(c)
	return &out, nil
}

func (s *Store) ListClaims(_ context.Context) ([]claims.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]claims.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, copyClaim(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (s *Store) DeleteClaim(_ context.Context, id claims.ClaimID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[id]; !ok {
		return billing.ErrNotFound
	}
	delete(s.claims, id)
	return nil
}

func (s *Store) ActiveClaimFor(_ context.Context, invoiceID billing.InvoiceID, exclude claims.ClaimID) (*claims.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.claims {
		if c.ID == exclude || c.Status == claims.StatusRejected {
			continue
		}
		for _, id := range c.InvoiceIDs {
			if id == invoiceID {
				out := copyClaim(c)
				return &out, nil
			}
		}
	}
	return nil, nil
}

// =============================================================================
// FACILITIES
// =============================================================================

func (s *Store) SaveFacility(_ context.Context, f facility.Facility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facilities[f.ID] = f
	return nil
}

func (s *Store) GetFacility(_ context.Context, id facility.ID) (*facility.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facilities[id]
	if !ok {
		return nil, billing.ErrNotFound
	}
	out := f
	return &out, nil
}

func (s *Store) ListFacilities(_ context.Context) ([]facility.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]facility.Facility, 0, len(s.facilities))
	for _, f := range s.facilities {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// COPY HELPERS
// =============================================================================

func copyInvoice(inv billing.Invoice) billing.Invoice {
	out := inv
	out.Items = append([]billing.LineItem(nil), inv.Items...)
	return out
}

func copyClaim(c claims.Claim) claims.Claim {
	out := c
	out.InvoiceIDs = append([]billing.InvoiceID(nil), c.InvoiceIDs...)
	return out
}
