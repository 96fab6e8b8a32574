/*
service.go - Claim authoring and lifecycle orchestration

PURPOSE:
  Handles the full lifecycle of a claim:
  1. Create:     number the claim, snapshot the aggregate, persist Draft
  2. Update:     re-select invoices while still Draft, re-snapshot
  3. Transition: move through the state machine, atomically

CLAIM FLOW:

  Author selects      Aggregate        Claim stored       Status
  invoices      ──▶   USD totals  ──▶  as Draft     ──▶   workflow
                      x rate (KHR)     (snapshot)         (lifecycle.go)

SNAPSHOT vs LIVE:
  The aggregate is computed from the invoices' totals at authoring time.
  After that the claim carries the figure on its own: invoice edits never
  reach back into stored claims.

EXCLUSIVITY:
  An invoice may sit on at most one claim that has not been rejected.
  The check runs against the store before anything is written, so a
  violated selection leaves no partial claim behind.

SEE ALSO:
  - aggregate.go: The amount computation
  - lifecycle.go: The transition table
*/
package claims

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/facility"
)

// Service orchestrates claim operations against the stores.
type Service struct {
	Claims   ClaimStore
	Invoices billing.InvoiceStore

	// Now and Intn are injectable for deterministic tests. Nil means
	// time.Now and math/rand.
	Now  func() time.Time
	Intn func(int) int
}

// NewService returns a Service with production clock and rand source.
func NewService(cs ClaimStore, is billing.InvoiceStore) *Service {
	return &Service{Claims: cs, Invoices: is, Now: time.Now, Intn: rand.Intn}
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
	return rand.Intn(n)
}

// Create authors a new claim in Draft from the given selection. The
// claim number is generated fresh here and kept for the claim's life.
func (s *Service) Create(ctx context.Context, draft Draft, cfg facility.Config) (*Claim, error) {
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}
	if err := s.checkExclusivity(ctx, draft.InvoiceIDs, ""); err != nil {
		return nil, err
	}
	amount, err := s.aggregate(ctx, draft, cfg)
	if err != nil {
		return nil, err
	}

	now := s.now()
	currency := draft.Currency
	if currency == "" {
		currency = cfg.Currency
	}
	date := draft.Date
	if date.IsZero() {
		date = now
	}

	c := Claim{
		ID:            ClaimID(uuid.NewString()),
		Number:        NewNumber(cfg.ShortName, now, s.intn),
		Type:          draft.Type,
		Date:          date,
		Currency:      currency,
		AmountClaimed: amount,
		InvoiceIDs:    append([]billing.InvoiceID(nil), draft.InvoiceIDs...),
		FacilityID:    draft.FacilityID,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.Claims.SaveClaim(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save claim: %w", err)
	}
	return &c, nil
}

// Update replaces the author-settable fields of a Draft claim and
// re-snapshots the aggregate from the new selection. The claim number is
// never regenerated on edit.
func (s *Service) Update(ctx context.Context, id ClaimID, draft Draft, cfg facility.Config) (*Claim, error) {
	existing, err := s.Claims.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusDraft {
		return nil, fmt.Errorf("claim %s is %s: %w", existing.Number, existing.Status, ErrNotDraft)
	}
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}
	if err := s.checkExclusivity(ctx, draft.InvoiceIDs, id); err != nil {
		return nil, err
	}
	amount, err := s.aggregate(ctx, draft, cfg)
	if err != nil {
		return nil, err
	}

	updated := existing.clone()
	updated.Type = draft.Type
	if !draft.Date.IsZero() {
		updated.Date = draft.Date
	}
	if draft.Currency != "" {
		updated.Currency = draft.Currency
	}
	updated.AmountClaimed = amount
	updated.InvoiceIDs = append([]billing.InvoiceID(nil), draft.InvoiceIDs...)
	updated.FacilityID = draft.FacilityID
	updated.UpdatedAt = s.now()

	if err := s.Claims.SaveClaim(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save claim: %w", err)
	}
	return &updated, nil
}

// Transition moves the claim to the requested status. The stored record
// updates only when the move is valid; an invalid move writes nothing.
func (s *Service) Transition(ctx context.Context, id ClaimID, to Status, reason string) (*Claim, error) {
	existing, err := s.Claims.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := Transition(*existing, to, reason)
	if err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()
	if err := s.Claims.SaveClaim(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save claim: %w", err)
	}
	return &updated, nil
}

// Get returns a single claim.
func (s *Service) Get(ctx context.Context, id ClaimID) (*Claim, error) {
	return s.Claims.GetClaim(ctx, id)
}

// List returns all claims.
func (s *Service) List(ctx context.Context) ([]Claim, error) {
	return s.Claims.ListClaims(ctx)
}

// Delete removes a claim, freeing its invoices for new claims.
func (s *Service) Delete(ctx context.Context, id ClaimID) error {
	return s.Claims.DeleteClaim(ctx, id)
}

// aggregate loads the selected invoices and snapshots their total in the
// draft's currency (falling back to the facility default).
func (s *Service) aggregate(ctx context.Context, draft Draft, cfg facility.Config) (decimal.Decimal, error) {
	currency := draft.Currency
	if currency == "" {
		currency = cfg.Currency
	}
	selected := make([]billing.Invoice, 0, len(draft.InvoiceIDs))
	for _, invID := range draft.InvoiceIDs {
		inv, err := s.Invoices.GetInvoice(ctx, invID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invoice %s: %w", invID, err)
		}
		selected = append(selected, *inv)
	}
	return Aggregate(selected, cfg.ExchangeRate, currency), nil
}

func (s *Service) validateDraft(draft Draft) error {
	if !draft.Type.Valid() {
		return &billing.ValidationError{Field: "claimType", Reason: "unknown claim type: " + string(draft.Type)}
	}
	if draft.Currency != "" && !draft.Currency.Valid() {
		return &billing.ValidationError{Field: "currency", Reason: "unknown currency: " + string(draft.Currency)}
	}
	return nil
}

// checkExclusivity rejects any invoice already held by another active
// claim. exclude skips the claim being edited.
func (s *Service) checkExclusivity(ctx context.Context, invoiceIDs []billing.InvoiceID, exclude ClaimID) error {
	for _, invID := range invoiceIDs {
		holder, err := s.Claims.ActiveClaimFor(ctx, invID, exclude)
		if err != nil {
			return err
		}
		if holder != nil {
			return &AlreadyClaimedError{InvoiceID: string(invID), ClaimID: holder.ID, Number: holder.Number}
		}
	}
	return nil
}
