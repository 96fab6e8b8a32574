package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinichq/billing-engine/api"
	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/claims"
	"github.com/clinichq/billing-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer() *httptest.Server {
	store := memory.New()
	h := api.NewHandler(
		billing.NewService(store),
		claims.NewService(store, store),
		store,
		zerolog.Nop(),
	)
	return httptest.NewServer(api.NewRouter(h))
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), "body: %s", raw)
	return v
}

// seedFacility creates the demo facility used across tests.
func seedFacility(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp, _ := do(t, srv, http.MethodPost, "/api/facilities", map[string]any{
		"id":           "hf-demo",
		"name":         "Riverside Polyclinic",
		"shortName":    "RPC",
		"currency":     "KHR",
		"exchangeRate": "4000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// seedInvoice creates an invoice and returns its storage ID.
func seedInvoice(t *testing.T, srv *httptest.Server, items ...map[string]any) string {
	t.Helper()
	resp, body := do(t, srv, http.MethodPost, "/api/invoices", map[string]any{
		"hf":    "hf-demo",
		"items": items,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)
	return decode[api.InvoiceDTO](t, body).ID
}

func consultationItem() map[string]any {
	return map[string]any{"description": "General consultation", "qty": 2, "rate": 50, "disc": 10}
}

func labItem() map[string]any {
	return map[string]any{"description": "Laboratory panel", "qty": 3, "rate": 20, "disc": 10, "disc2": 5}
}

// =============================================================================
// FACILITIES
// =============================================================================

func TestFacilityEndpoints(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	seedFacility(t, srv)

	resp, body := do(t, srv, http.MethodGet, "/api/facilities/hf-demo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f := decode[api.FacilityDTO](t, body)
	assert.Equal(t, "Riverside Polyclinic", f.Name)
	assert.Equal(t, "RPC", f.ShortName)
	assert.InDelta(t, 4000, f.ExchangeRate, 0)

	resp, body = do(t, srv, http.MethodGet, "/api/facilities", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]api.FacilityDTO](t, body), 1)

	resp, _ = do(t, srv, http.MethodGet, "/api/facilities/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateFacility_UnknownCurrency_Rejected(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, body := do(t, srv, http.MethodPost, "/api/facilities", map[string]any{
		"id": "hf-x", "name": "X", "currency": "EUR",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "currency")
}

// =============================================================================
// INVOICES
// =============================================================================

func TestCreateInvoice_ComputesDualCurrencyTotals(t *testing.T) {
	// GIVEN: A facility at rate 4000 and two discounted items
	// WHEN: The invoice is created over HTTP
	// THEN: The response carries amounts 90 and 51.3 and totals 141.3/565200

	srv := newTestServer()
	defer srv.Close()
	seedFacility(t, srv)

	resp, body := do(t, srv, http.MethodPost, "/api/invoices", map[string]any{
		"hf":    "hf-demo",
		"items": []map[string]any{consultationItem(), labItem()},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

	inv := decode[api.InvoiceDTO](t, body)
	assert.True(t, strings.HasPrefix(inv.InvoiceNo, "INV-"), "got %s", inv.InvoiceNo)
	assert.Equal(t, "Unpaid", inv.Status)
	require.Len(t, inv.Items, 2)
	assert.InDelta(t, 90, inv.Items[0].Amt, 1e-9)
	assert.InDelta(t, 51.3, inv.Items[1].Amt, 1e-9)
	assert.InDelta(t, 141.3, inv.Totals.USD, 1e-9)
	assert.InDelta(t, 565200, inv.Totals.KHR, 1e-6)
}

func TestCreateInvoice_UnknownFacility_FallsBackToDefaults(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, body := do(t, srv, http.MethodPost, "/api/invoices", map[string]any{
		"hf":    "hf-missing",
		"items": []map[string]any{consultationItem()},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	inv := decode[api.InvoiceDTO](t, body)
	assert.InDelta(t, 360000, inv.Totals.KHR, 1e-6)
}

func TestCreateInvoice_DiscountOver100_Rejected(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, body := do(t, srv, http.MethodPost, "/api/invoices", map[string]any{
		"items": []map[string]any{
			{"description": "Bad line", "qty": 1, "rate": 10, "disc": 120},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Validation failed")
}

func TestCreateInvoice_MissingDescription_Rejected(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, _ := do(t, srv, http.MethodPost, "/api/invoices", map[string]any{
		"items": []map[string]any{{"qty": 1, "rate": 10}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvoiceItemEndpoints(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	seedFacility(t, srv)
	id := seedInvoice(t, srv, consultationItem())

	// Append a zero-valued item.
	resp, body := do(t, srv, http.MethodPost, "/api/invoices/"+id+"/items", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inv := decode[api.InvoiceDTO](t, body)
	require.Len(t, inv.Items, 2)
	assert.InDelta(t, 90, inv.Totals.USD, 1e-9, "zero item must not move totals")

	// Fill it in.
	resp, body = do(t, srv, http.MethodPut, "/api/invoices/"+id+"/items/1", map[string]any{
		"description": "Laboratory panel", "qty": 3, "rate": 20, "disc": 10, "disc2": 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
	inv = decode[api.InvoiceDTO](t, body)
	assert.InDelta(t, 141.3, inv.Totals.USD, 1e-9)
	assert.InDelta(t, 565200, inv.Totals.KHR, 1e-6)

	// Remove the first item.
	resp, body = do(t, srv, http.MethodDelete, "/api/invoices/"+id+"/items/0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inv = decode[api.InvoiceDTO](t, body)
	require.Len(t, inv.Items, 1)
	assert.InDelta(t, 51.3, inv.Totals.USD, 1e-9)
}

func TestRemoveInvoiceItem_BadIndex(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	seedFacility(t, srv)
	id := seedInvoice(t, srv, consultationItem())

	resp, body := do(t, srv, http.MethodDelete, "/api/invoices/"+id+"/items/5", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "index_out_of_range", decode[api.ErrorResponse](t, body).Code)

	resp, _ = do(t, srv, http.MethodDelete, "/api/invoices/"+id+"/items/x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetInvoiceStatus(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	seedFacility(t, srv)
	id := seedInvoice(t, srv, consultationItem())

	resp, body := do(t, srv, http.MethodPut, "/api/invoices/"+id+"/status", map[string]any{"status": "Paid"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Paid", decode[api.InvoiceDTO](t, body).Status)

	resp, _ = do(t, srv, http.MethodPut, "/api/invoices/"+id+"/status", map[string]any{"status": "Overdue"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvoiceNotFound(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, _ := do(t, srv, http.MethodGet, "/api/invoices/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/api/invoices/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// CLAIMS
// =============================================================================

func TestClaimEndToEnd(t *testing.T) {
	// GIVEN: Two invoices totalling 141.3 USD at a 4000-rate facility
	// WHEN: A KHR claim is authored and walked to Paid
	// THEN: The snapshot is 565200 and every transition lands

	srv := newTestServer()
	defer srv.Close()
	seedFacility(t, srv)
	inv1 := seedInvoice(t, srv, consultationItem())
	inv2 := seedInvoice(t, srv, labItem())

	resp, body := do(t, srv, http.MethodPost, "/api/claims", map[string]any{
		"claimType": "Healthcare",
		"currency":  "KHR",
		"invoices":  []string{inv1, inv2},
		"hf":        "hf-demo",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

	c := decode[api.ClaimDTO](t, body)
	assert.True(t, strings.HasPrefix(c.ClaimID, "RPC-"), "got %s", c.ClaimID)
	assert.Equal(t, "Draft", c.Status)
	assert.InDelta(t, 565200, c.AmountClaimed, 1e-6)
	assert.ElementsMatch(t, []string{inv1, inv2}, c.Invoices)

	for _, status := range []string{"Submitted", "Approved", "Paid"} {
		resp, body = do(t, srv, http.MethodPost, "/api/claims/"+c.ID+"/transition", map[string]any{"status": status})
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
		assert.Equal(t, status, decode[api.ClaimDTO](t, body).Status)
	}
}

func TestClaimTransition_Conflicts(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	seedFacility(t, srv)

	resp, body := do(t, srv, http.MethodPost, "/api/claims", map[string]any{
		"claimType": "Healthcare", "hf": "hf-demo",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c := decode[api.ClaimDTO](t, body)

	// Draft cannot jump straight to Paid.
	resp, body = do(t, srv, http.MethodPost, "/api/claims/"+c.ID+"/transition", map[string]any{"status": "Paid"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", decode[api.ErrorResponse](t, body).Code)

	resp, _ = do(t, srv, http.MethodPost, "/api/claims/"+c.ID+"/transition", map[string]any{"status": "Submitted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Rejection without a reason.
	resp, body = do(t, srv, http.MethodPost, "/api/claims/"+c.ID+"/transition", map[string]any{"status": "Rejected"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "missing_rejection_reason", decode[api.ErrorResponse](t, body).Code)

	resp, body = do(t, srv, http.MethodPost, "/api/claims/"+c.ID+"/transition", map[string]any{
		"status": "Rejected", "reason": "missing referral letter",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "missing referral letter", decode[api.ClaimDTO](t, body).RejectionReason)
}

func TestClaimCreate_HeldInvoice_Conflicts(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	seedFacility(t, srv)
	invID := seedInvoice(t, srv, consultationItem())

	resp, _ := do(t, srv, http.MethodPost, "/api/claims", map[string]any{
		"claimType": "Healthcare", "invoices": []string{invID}, "hf": "hf-demo",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPost, "/api/claims", map[string]any{
		"claimType": "Insurance", "invoices": []string{invID}, "hf": "hf-demo",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invoice_already_claimed", decode[api.ErrorResponse](t, body).Code)
}

func TestClaimCreate_UnknownType_Rejected(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, _ := do(t, srv, http.MethodPost, "/api/claims", map[string]any{"claimType": "Dental"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateClaim_AfterSubmission_Conflicts(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	seedFacility(t, srv)

	resp, body := do(t, srv, http.MethodPost, "/api/claims", map[string]any{
		"claimType": "Healthcare", "hf": "hf-demo",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c := decode[api.ClaimDTO](t, body)

	resp, _ = do(t, srv, http.MethodPost, "/api/claims/"+c.ID+"/transition", map[string]any{"status": "Submitted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPut, "/api/claims/"+c.ID, map[string]any{
		"claimType": "Healthcare", "hf": "hf-demo",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestLoadScenario(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, body := do(t, srv, http.MethodPost, "/api/scenarios/load", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

	var seeded struct {
		Facility api.FacilityDTO  `json:"facility"`
		Invoices []api.InvoiceDTO `json:"invoices"`
		Claim    api.ClaimDTO     `json:"claim"`
	}
	require.NoError(t, json.Unmarshal(body, &seeded))

	assert.Equal(t, "Riverside Polyclinic", seeded.Facility.Name)
	require.Len(t, seeded.Invoices, 2)
	assert.InDelta(t, 90, seeded.Invoices[0].Totals.USD, 1e-9)
	assert.InDelta(t, 51.3, seeded.Invoices[1].Totals.USD, 1e-9)
	assert.Equal(t, "Draft", seeded.Claim.Status)
	assert.InDelta(t, 565200, seeded.Claim.AmountClaimed, 1e-6)
}
