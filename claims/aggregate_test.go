package claims_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/claims"
)

var (
	rate4000 = decimal.NewFromInt(4000)
	testDate = time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func invoiceTotalling(usd string) billing.Invoice {
	total := d(usd)
	return billing.Invoice{
		Totals: billing.Totals{USD: total, KHR: total.Mul(rate4000)},
	}
}

func TestAggregate_KHRClaim_ConvertsAtFacilityRate(t *testing.T) {
	// GIVEN: Invoices totalling 90 and 51.3 USD
	// WHEN: Aggregated for a KHR claim at rate 4000
	// THEN: The amount is 141.3 * 4000 = 565200

	got := claims.Aggregate(
		[]billing.Invoice{invoiceTotalling("90"), invoiceTotalling("51.3")},
		rate4000, billing.CurrencyKHR,
	)
	assert.True(t, got.Equal(d("565200")), "got %s", got)
}

func TestAggregate_USDClaim_TakesSumDirectly(t *testing.T) {
	got := claims.Aggregate(
		[]billing.Invoice{invoiceTotalling("90"), invoiceTotalling("51.3")},
		rate4000, billing.CurrencyUSD,
	)
	assert.True(t, got.Equal(d("141.3")), "got %s", got)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	a := invoiceTotalling("12.75")
	b := invoiceTotalling("80")
	c := invoiceTotalling("0.05")

	forward := claims.Aggregate([]billing.Invoice{a, b, c}, rate4000, billing.CurrencyKHR)
	reversed := claims.Aggregate([]billing.Invoice{c, b, a}, rate4000, billing.CurrencyKHR)

	assert.True(t, forward.Equal(reversed))
}

func TestAggregate_EmptySelection_IsZero(t *testing.T) {
	got := claims.Aggregate(nil, rate4000, billing.CurrencyKHR)
	assert.True(t, got.IsZero())
}

func TestNewNumber_UsesFacilityShortName(t *testing.T) {
	got := claims.NewNumber("RPC", testDate, func(int) int { return 47 })
	assert.Equal(t, "RPC-2603-047", got)
}

func TestNewNumber_FallsBackToDefaultPrefix(t *testing.T) {
	got := claims.NewNumber("", testDate, func(int) int { return 3 })
	assert.Equal(t, "CLM-2603-003", got)
}
