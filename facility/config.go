/*
Package facility provides health-facility configuration.

PURPOSE:
  A facility (clinic/location) supplies the context every billing
  computation needs: the KHR/USD exchange rate, the default claim
  currency, and the short name used as a claim-number prefix. The engine
  treats this as read-only input passed explicitly into each call; there
  is no ambient "current facility".

WHY JSON?
  - Facility records live in the CRUD backend as JSON configuration
  - Admins adjust exchange rates without code changes
  - Defaults apply to any field left out

JSON SCHEMA:
  {
    "shortName": "RPH",
    "currency": "KHR",
    "exchangeRate": "4100"
  }

DEFAULTS:
  exchangeRate 4000 KHR/USD, currency KHR, empty short name (claim
  numbers then use the CLM prefix).

SEE ALSO:
  - billing/engine.go:  Consumes ExchangeRate
  - claims/aggregate.go: Consumes ExchangeRate and Currency
  - claims/number.go:    Consumes ShortName
*/
package facility

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/clinichq/billing-engine/billing"
)

// ID identifies a facility record.
type ID string

// DefaultExchangeRate is used when a facility does not configure one.
// Riel trades in a narrow 4000-4100 band; 4000 is the customary figure.
var DefaultExchangeRate = decimal.NewFromInt(4000)

// =============================================================================
// CONFIG - Read-only engine input
// =============================================================================

// Config is the slice of facility state the engine consumes.
type Config struct {
	ShortName    string
	Currency     billing.Currency
	ExchangeRate decimal.Decimal
}

// DefaultConfig returns the configuration applied when no facility is
// attached to an invoice or claim.
func DefaultConfig() Config {
	return Config{
		Currency:     billing.CurrencyKHR,
		ExchangeRate: DefaultExchangeRate,
	}
}

// =============================================================================
// FACILITY RECORD
// =============================================================================

// Facility is the stored record: identity plus configuration.
type Facility struct {
	ID   ID
	Name string
	Config
}

// Store handles facility persistence.
type Store interface {
	SaveFacility(ctx context.Context, f Facility) error
	GetFacility(ctx context.Context, id ID) (*Facility, error)
	ListFacilities(ctx context.Context) ([]Facility, error)
}

// =============================================================================
// JSON PARSING
// =============================================================================

// ConfigJSON is the wire representation of facility configuration.
// ExchangeRate is a string to keep decimal precision across the wire.
type ConfigJSON struct {
	ShortName    string `json:"shortName,omitempty"`
	Currency     string `json:"currency,omitempty"`
	ExchangeRate string `json:"exchangeRate,omitempty"`
}

// ParseConfig converts JSON configuration into a Config, applying
// defaults for absent fields and rejecting malformed ones.
func ParseConfig(data []byte) (Config, error) {
	var raw ConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse facility config: %w", err)
	}
	return FromJSON(raw)
}

// FromJSON validates and defaults an already-decoded ConfigJSON.
func FromJSON(raw ConfigJSON) (Config, error) {
	cfg := DefaultConfig()
	cfg.ShortName = raw.ShortName

	if raw.Currency != "" {
		c := billing.Currency(raw.Currency)
		if !c.Valid() {
			return Config{}, &billing.ValidationError{Field: "currency", Reason: "unknown currency: " + raw.Currency}
		}
		cfg.Currency = c
	}

	if raw.ExchangeRate != "" {
		rate, err := decimal.NewFromString(raw.ExchangeRate)
		if err != nil {
			return Config{}, &billing.ValidationError{Field: "exchangeRate", Reason: "not a number: " + raw.ExchangeRate}
		}
		if !rate.IsPositive() {
			return Config{}, &billing.ValidationError{Field: "exchangeRate", Reason: "must be positive"}
		}
		cfg.ExchangeRate = rate
	}

	return cfg, nil
}

// ToJSON converts a Config back to its wire representation.
func (c Config) ToJSON() ConfigJSON {
	return ConfigJSON{
		ShortName:    c.ShortName,
		Currency:     string(c.Currency),
		ExchangeRate: c.ExchangeRate.String(),
	}
}
