/*
handlers.go - HTTP API handlers for the billing and claims engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates every computation to the domain packages.

ENDPOINTS:
  Facilities:
    GET    /api/facilities               List facilities
    POST   /api/facilities               Create/replace facility
    GET    /api/facilities/{id}          Get facility

  Invoices:
    GET    /api/invoices                 List invoices
    POST   /api/invoices                 Create invoice
    GET    /api/invoices/{id}            Get invoice
    DELETE /api/invoices/{id}            Delete invoice
    PUT    /api/invoices/{id}/status     Set payment status
    POST   /api/invoices/{id}/items      Append a zero-valued item
    PUT    /api/invoices/{id}/items/{i}  Patch one item field
    DELETE /api/invoices/{id}/items/{i}  Remove an item

  Claims:
    GET    /api/claims                   List claims
    POST   /api/claims                   Author a claim (Draft)
    GET    /api/claims/{id}              Get claim
    PUT    /api/claims/{id}              Re-author a Draft claim
    DELETE /api/claims/{id}              Delete claim
    POST   /api/claims/{id}/transition   Move through the lifecycle

  Scenarios:
    POST   /api/scenarios/load           Load demo clinic data

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, bad index
  - 404: Record not found
  - 409: Conflict (invalid transition, missing reason, invoice already
         claimed, claim not editable)
  - 500: Internal errors

FACILITY RESOLUTION:
  Every computation needs the owning facility's exchange rate. Handlers
  resolve the hf reference against the facility store and fall back to
  the defaults when the record is absent or unreferenced; the engine
  itself never sees a facility ID, only the resolved Config.

SEE ALSO:
  - dto.go:       Request/response data structures
  - server.go:    Router setup and middleware
  - scenarios.go: Demo data loader
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/claims"
	"github.com/clinichq/billing-engine/facility"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Invoices   *billing.Service
	Claims     *claims.Service
	Facilities facility.Store
	Log        zerolog.Logger
}

// NewHandler creates a handler over the given services and store.
func NewHandler(inv *billing.Service, cl *claims.Service, fs facility.Store, log zerolog.Logger) *Handler {
	return &Handler{Invoices: inv, Claims: cl, Facilities: fs, Log: log}
}

// facilityConfig resolves an hf reference to its configuration, falling
// back to defaults when empty or unknown.
func (h *Handler) facilityConfig(r *http.Request, id string) facility.Config {
	if id == "" {
		return facility.DefaultConfig()
	}
	f, err := h.Facilities.GetFacility(r.Context(), facility.ID(id))
	if err != nil {
		if !billing.IsNotFound(err) {
			h.Log.Warn().Err(err).Str("facility", id).Msg("facility lookup failed")
		}
		return facility.DefaultConfig()
	}
	return f.Config
}

// =============================================================================
// FACILITY HANDLERS
// =============================================================================

// ListFacilities returns all facilities.
func (h *Handler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	fs, err := h.Facilities.ListFacilities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list facilities", err)
		return
	}
	dtos := make([]FacilityDTO, len(fs))
	for i, f := range fs {
		dtos[i] = toFacilityDTO(f)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetFacility returns a single facility.
func (h *Handler) GetFacility(w http.ResponseWriter, r *http.Request) {
	f, err := h.Facilities.GetFacility(r.Context(), facility.ID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFacilityDTO(*f))
}

// CreateFacility creates or replaces a facility.
func (h *Handler) CreateFacility(w http.ResponseWriter, r *http.Request) {
	var req CreateFacilityRequest
	if !h.decode(w, r, &req) {
		return
	}

	cfg, err := facility.FromJSON(facility.ConfigJSON{
		ShortName:    req.ShortName,
		Currency:     req.Currency,
		ExchangeRate: req.ExchangeRate,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	f := facility.Facility{ID: facility.ID(req.ID), Name: req.Name, Config: cfg}
	if err := h.Facilities.SaveFacility(r.Context(), f); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save facility", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFacilityDTO(f))
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns all invoices.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invs, err := h.Invoices.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}
	dtos := make([]InvoiceDTO, len(invs))
	for i, inv := range invs {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice returns a single invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Invoices.Get(r.Context(), billing.InvoiceID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// CreateInvoice creates an invoice from submitted line items.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	inv := billing.Invoice{FacilityID: req.HF, Items: toItems(req.Items)}
	if req.Date != "" {
		date, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use RFC 3339)", err)
			return
		}
		inv.Date = date
	}

	cfg := h.facilityConfig(r, req.HF)
	created, err := h.Invoices.Create(r.Context(), inv, cfg.ExchangeRate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(*created))
}

// DeleteInvoice removes an invoice.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := h.Invoices.Delete(r.Context(), billing.InvoiceID(chi.URLParam(r, "id"))); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetInvoiceStatus updates the payment status.
func (h *Handler) SetInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req SetInvoiceStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.Invoices.SetStatus(r.Context(), billing.InvoiceID(chi.URLParam(r, "id")), billing.InvoiceStatus(req.Status))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// AddInvoiceItem appends a zero-valued line item.
func (h *Handler) AddInvoiceItem(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Invoices.AddItem(r.Context(), billing.InvoiceID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// UpdateInvoiceItem patches one line item.
func (h *Handler) UpdateInvoiceItem(w http.ResponseWriter, r *http.Request) {
	index, ok := h.itemIndex(w, r)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	id := billing.InvoiceID(chi.URLParam(r, "id"))
	cfg := h.invoiceFacility(r, id)
	inv, err := h.Invoices.UpdateItem(r.Context(), id, index, toItemPatch(req), cfg.ExchangeRate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// RemoveInvoiceItem removes one line item.
func (h *Handler) RemoveInvoiceItem(w http.ResponseWriter, r *http.Request) {
	index, ok := h.itemIndex(w, r)
	if !ok {
		return
	}
	id := billing.InvoiceID(chi.URLParam(r, "id"))
	cfg := h.invoiceFacility(r, id)
	inv, err := h.Invoices.RemoveItem(r.Context(), id, index, cfg.ExchangeRate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// invoiceFacility resolves the facility config of a stored invoice.
func (h *Handler) invoiceFacility(r *http.Request, id billing.InvoiceID) facility.Config {
	inv, err := h.Invoices.Get(r.Context(), id)
	if err != nil {
		return facility.DefaultConfig()
	}
	return h.facilityConfig(r, inv.FacilityID)
}

func (h *Handler) itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item index", err)
		return 0, false
	}
	return index, true
}

// =============================================================================
// CLAIM HANDLERS
// =============================================================================

// ListClaims returns all claims.
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Claims.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list claims", err)
		return
	}
	dtos := make([]ClaimDTO, len(cs))
	for i, c := range cs {
		dtos[i] = toClaimDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClaim returns a single claim.
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	c, err := h.Claims.Get(r.Context(), claims.ClaimID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDTO(*c))
}

// CreateClaim authors a new Draft claim from selected invoices.
func (h *Handler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	draft, cfg, ok := h.claimDraft(w, r)
	if !ok {
		return
	}
	c, err := h.Claims.Create(r.Context(), draft, cfg)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClaimDTO(*c))
}

// UpdateClaim re-authors a Draft claim. The claim number is kept.
func (h *Handler) UpdateClaim(w http.ResponseWriter, r *http.Request) {
	draft, cfg, ok := h.claimDraft(w, r)
	if !ok {
		return
	}
	c, err := h.Claims.Update(r.Context(), claims.ClaimID(chi.URLParam(r, "id")), draft, cfg)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDTO(*c))
}

// DeleteClaim removes a claim.
func (h *Handler) DeleteClaim(w http.ResponseWriter, r *http.Request) {
	if err := h.Claims.Delete(r.Context(), claims.ClaimID(chi.URLParam(r, "id"))); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransitionClaim moves a claim through its lifecycle.
func (h *Handler) TransitionClaim(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Claims.Transition(r.Context(), claims.ClaimID(chi.URLParam(r, "id")), claims.Status(req.Status), req.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDTO(*c))
}

func (h *Handler) claimDraft(w http.ResponseWriter, r *http.Request) (claims.Draft, facility.Config, bool) {
	var req ClaimRequest
	if !h.decode(w, r, &req) {
		return claims.Draft{}, facility.Config{}, false
	}

	draft := claims.Draft{
		Type:       claims.Type(req.ClaimType),
		Currency:   billing.Currency(req.Currency),
		FacilityID: facility.ID(req.HF),
	}
	for _, id := range req.Invoices {
		draft.InvoiceIDs = append(draft.InvoiceIDs, billing.InvoiceID(id))
	}
	if req.ClaimDate != "" {
		date, err := time.Parse("2006-01-02", req.ClaimDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid claimDate format (use YYYY-MM-DD)", err)
			return claims.Draft{}, facility.Config{}, false
		}
		draft.Date = date
	}
	return draft, h.facilityConfig(r, req.HF), true
}

// =============================================================================
// REQUEST/RESPONSE HELPERS
// =============================================================================

// decode parses and validates a JSON request body. Writes the error
// response itself and returns false when the body is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeDomainError maps engine errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case claims.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.Log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Error = msg + ": " + err.Error()
	}
	var (
		idxErr  *billing.IndexError
		valErr  *billing.ValidationError
		trErr   *claims.InvalidTransitionError
		heldErr *claims.AlreadyClaimedError
	)
	switch {
	case errors.As(err, &idxErr):
		resp.Code = "index_out_of_range"
	case errors.As(err, &valErr):
		resp.Code = "validation_error"
	case errors.As(err, &trErr):
		resp.Code = "invalid_transition"
	case errors.Is(err, claims.ErrMissingRejectionReason):
		resp.Code = "missing_rejection_reason"
	case errors.As(err, &heldErr):
		resp.Code = "invoice_already_claimed"
	}
	writeJSON(w, status, resp)
}
