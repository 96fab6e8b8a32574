/*
scenarios.go - Demo data loader

PURPOSE:
  Seeds a small demo clinic so the console has something to show on a
  fresh database: one facility, two invoices with discount chains, and a
  draft claim over both. Amounts are chosen so the figures are easy to
  verify by hand (90 + 51.3 = 141.3 USD = 565,200 KHR at 4000).

SEE ALSO:
  - handlers.go: LoadScenario is routed under /api/scenarios/load
*/
package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/claims"
	"github.com/clinichq/billing-engine/facility"
)

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// LoadScenario seeds the demo clinic. Safe to call more than once: the
// facility is replaced, invoices and claims accumulate.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	demo := facility.Facility{
		ID:   "hf-demo",
		Name: "Riverside Polyclinic",
		Config: facility.Config{
			ShortName:    "RPC",
			Currency:     billing.CurrencyKHR,
			ExchangeRate: facility.DefaultExchangeRate,
		},
	}
	if err := h.Facilities.SaveFacility(ctx, demo); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed facility", err)
		return
	}

	inv1 := billing.Invoice{
		Date:       time.Now(),
		FacilityID: string(demo.ID),
		Items: []billing.LineItem{
			{Description: "General consultation", Quantity: dec(2), Rate: dec(50), Discount1: dec(10)},
		},
	}
	inv2 := billing.Invoice{
		Date:       time.Now(),
		FacilityID: string(demo.ID),
		Items: []billing.LineItem{
			{Description: "Laboratory panel", Quantity: dec(3), Rate: dec(20), Discount1: dec(10), Discount2: dec(5)},
		},
	}

	created1, err := h.Invoices.Create(ctx, inv1, demo.ExchangeRate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed invoice", err)
		return
	}
	created2, err := h.Invoices.Create(ctx, inv2, demo.ExchangeRate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed invoice", err)
		return
	}

	claim, err := h.Claims.Create(ctx, claims.Draft{
		Type:       claims.TypeHealthcare,
		Currency:   billing.CurrencyKHR,
		InvoiceIDs: []billing.InvoiceID{created1.ID, created2.ID},
		FacilityID: demo.ID,
	}, demo.Config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed claim", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"facility": toFacilityDTO(demo),
		"invoices": []InvoiceDTO{toInvoiceDTO(*created1), toInvoiceDTO(*created2)},
		"claim":    toClaimDTO(*claim),
	})
}
