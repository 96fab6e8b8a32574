/*
aggregate.go - Claim amount computation

PURPOSE:
  Derives a claim's amount from the USD totals of its selected invoices.
  The sum is commutative over the selection, so the order invoices were
  picked in never matters.

CURRENCY RULE:
  KHR claims convert the USD sum with the facility exchange rate; USD
  claims take the sum directly. (The system this replaces multiplied by
  the exchange rate regardless of currency, mislabeling USD claims - that
  was a conversion defect, not a behavior worth keeping.)

EMPTY SELECTION:
  Aggregating zero invoices yields zero. This is defined behavior, not an
  error: a claim form with nothing selected simply shows 0.
*/
package claims

import (
	"github.com/shopspring/decimal"

	"github.com/clinichq/billing-engine/billing"
)

// Aggregate sums the USD totals of the selected invoices and expresses
// the result in the claim's currency using the facility exchange rate.
func Aggregate(selected []billing.Invoice, exchangeRate decimal.Decimal, currency billing.Currency) decimal.Decimal {
	usd := decimal.Zero
	for _, inv := range selected {
		usd = usd.Add(inv.Totals.USD)
	}
	if currency == billing.CurrencyKHR {
		return usd.Mul(exchangeRate)
	}
	return usd
}
