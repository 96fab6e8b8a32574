/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  domain model. The wire shapes follow the clinic backend's conventions:
  items carry qty/rate/disc/disc2/amt, invoice totals are keyed USD/KHR,
  claims carry claimID/claimType/hf.

NAMING CONVENTION:
  - *DTO:     Response types returned to clients
  - *Request: Request body types from clients

NUMERIC FIELDS:
  Amounts cross the wire as JSON numbers. Internally everything is
  decimal.Decimal; conversion happens only at this boundary, and any
  display rounding is the client's concern.

VALIDATION:
  Request types carry validator/v10 struct tags, checked in handlers
  before any domain call. Discounts are constrained to [0,100] here -
  the engine documents that range as a precondition but does not
  enforce it.

SEE ALSO:
  - handlers.go: Uses these types
  - validate.go: The validator instance and custom rules
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/claims"
	"github.com/clinichq/billing-engine/facility"
)

// =============================================================================
// INVOICE TYPES
// =============================================================================

// ItemDTO represents a line item in API responses.
type ItemDTO struct {
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	Rate        float64 `json:"rate"`
	Disc        float64 `json:"disc,omitempty"`
	Disc2       float64 `json:"disc2,omitempty"`
	Amt         float64 `json:"amt"`
}

// TotalsDTO is the dual-currency invoice aggregate.
type TotalsDTO struct {
	USD float64 `json:"USD"`
	KHR float64 `json:"KHR"`
}

// InvoiceDTO represents an invoice in API responses.
type InvoiceDTO struct {
	ID        string    `json:"id"`
	InvoiceNo string    `json:"invoiceNo"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	HF        string    `json:"hf,omitempty"`
	Items     []ItemDTO `json:"items"`
	Totals    TotalsDTO `json:"totals"`
}

// ItemInput is a line item submitted by a client.
type ItemInput struct {
	Description string  `json:"description" validate:"required"`
	Qty         float64 `json:"qty" validate:"gte=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	Disc        float64 `json:"disc" validate:"gte=0,lte=100"`
	Disc2       float64 `json:"disc2" validate:"gte=0,lte=100"`
}

// CreateInvoiceRequest is the request to create an invoice. The invoice
// number is generated server-side and never accepted from the client.
type CreateInvoiceRequest struct {
	Date  string      `json:"date,omitempty"`
	HF    string      `json:"hf,omitempty"`
	Items []ItemInput `json:"items" validate:"dive"`
}

// UpdateItemRequest patches a single line item. Absent fields stay as
// they are; description-only patches never move amounts.
type UpdateItemRequest struct {
	Description *string  `json:"description,omitempty"`
	Qty         *float64 `json:"qty,omitempty" validate:"omitempty,gte=0"`
	Rate        *float64 `json:"rate,omitempty" validate:"omitempty,gte=0"`
	Disc        *float64 `json:"disc,omitempty" validate:"omitempty,gte=0,lte=100"`
	Disc2       *float64 `json:"disc2,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// SetInvoiceStatusRequest updates the payment status.
type SetInvoiceStatusRequest struct {
	Status string `json:"status" validate:"required,invoice_status"`
}

// =============================================================================
// CLAIM TYPES
// =============================================================================

// ClaimDTO represents a claim in API responses. ClaimID is the
// human-facing number; ID is the storage identifier used in URLs.
type ClaimDTO struct {
	ID              string   `json:"id"`
	ClaimID         string   `json:"claimID"`
	ClaimType       string   `json:"claimType"`
	ClaimDate       string   `json:"claimDate"`
	Status          string   `json:"status"`
	AmountClaimed   float64  `json:"amountClaimed"`
	Currency        string   `json:"currency"`
	Invoices        []string `json:"invoices"`
	HF              string   `json:"hf,omitempty"`
	RejectionReason string   `json:"rejectionReason,omitempty"`
}

// ClaimRequest authors or re-authors a claim from selected invoices.
type ClaimRequest struct {
	ClaimType string   `json:"claimType" validate:"required,claim_type"`
	ClaimDate string   `json:"claimDate,omitempty"`
	Currency  string   `json:"currency,omitempty" validate:"omitempty,currency"`
	Invoices  []string `json:"invoices"`
	HF        string   `json:"hf,omitempty"`
}

// TransitionRequest moves a claim through its lifecycle. Reason is
// required when Status is Rejected; the engine enforces that.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// FACILITY TYPES
// =============================================================================

// FacilityDTO represents a facility in API responses.
type FacilityDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ShortName    string  `json:"shortName"`
	Currency     string  `json:"currency"`
	ExchangeRate float64 `json:"exchangeRate"`
}

// CreateFacilityRequest creates or replaces a facility. Config fields
// left empty take the defaults (4000 KHR/USD, currency KHR).
type CreateFacilityRequest struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	ShortName    string `json:"shortName,omitempty"`
	Currency     string `json:"currency,omitempty" validate:"omitempty,currency"`
	ExchangeRate string `json:"exchangeRate,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toItemDTO(it billing.LineItem) ItemDTO {
	qty, _ := it.Quantity.Float64()
	rate, _ := it.Rate.Float64()
	d1, _ := it.Discount1.Float64()
	d2, _ := it.Discount2.Float64()
	amt, _ := it.Amount.Float64()
	return ItemDTO{
		Description: it.Description,
		Qty:         qty,
		Rate:        rate,
		Disc:        d1,
		Disc2:       d2,
		Amt:         amt,
	}
}

func toInvoiceDTO(inv billing.Invoice) InvoiceDTO {
	items := make([]ItemDTO, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = toItemDTO(it)
	}
	usd, _ := inv.Totals.USD.Float64()
	khr, _ := inv.Totals.KHR.Float64()
	return InvoiceDTO{
		ID:        string(inv.ID),
		InvoiceNo: inv.Number,
		Date:      inv.Date.Format(time.RFC3339),
		Status:    string(inv.Status),
		HF:        inv.FacilityID,
		Items:     items,
		Totals:    TotalsDTO{USD: usd, KHR: khr},
	}
}

func toClaimDTO(c claims.Claim) ClaimDTO {
	invoices := make([]string, len(c.InvoiceIDs))
	for i, id := range c.InvoiceIDs {
		invoices[i] = string(id)
	}
	amount, _ := c.AmountClaimed.Float64()
	return ClaimDTO{
		ID:              string(c.ID),
		ClaimID:         c.Number,
		ClaimType:       string(c.Type),
		ClaimDate:       c.Date.Format("2006-01-02"),
		Status:          string(c.Status),
		AmountClaimed:   amount,
		Currency:        string(c.Currency),
		Invoices:        invoices,
		HF:              string(c.FacilityID),
		RejectionReason: c.RejectionReason,
	}
}

func toFacilityDTO(f facility.Facility) FacilityDTO {
	rate, _ := f.ExchangeRate.Float64()
	return FacilityDTO{
		ID:           string(f.ID),
		Name:         f.Name,
		ShortName:    f.ShortName,
		Currency:     string(f.Currency),
		ExchangeRate: rate,
	}
}

func toItems(inputs []ItemInput) []billing.LineItem {
	items := make([]billing.LineItem, len(inputs))
	for i, in := range inputs {
		items[i] = billing.LineItem{
			Description: in.Description,
			Quantity:    decimal.NewFromFloat(in.Qty),
			Rate:        decimal.NewFromFloat(in.Rate),
			Discount1:   decimal.NewFromFloat(in.Disc),
			Discount2:   decimal.NewFromFloat(in.Disc2),
		}
	}
	return items
}

func toItemPatch(req UpdateItemRequest) billing.ItemPatch {
	patch := billing.ItemPatch{Description: req.Description}
	if req.Qty != nil {
		d := decimal.NewFromFloat(*req.Qty)
		patch.Quantity = &d
	}
	if req.Rate != nil {
		d := decimal.NewFromFloat(*req.Rate)
		patch.Rate = &d
	}
	if req.Disc != nil {
		d := decimal.NewFromFloat(*req.Disc)
		patch.Discount1 = &d
	}
	if req.Disc2 != nil {
		d := decimal.NewFromFloat(*req.Disc2)
		patch.Discount2 = &d
	}
	return patch
}
