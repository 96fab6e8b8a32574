package billing_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clinichq/billing-engine/billing"
)

func TestReferenceNumber_Format(t *testing.T) {
	// GIVEN: A fixed clock and rand source
	// WHEN: A reference number is generated
	// THEN: It reads {prefix}-{yy}{mm}-{rrr} with a zero-padded suffix

	march2026 := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

	got := billing.ReferenceNumber("CLM", march2026, func(int) int { return 7 })
	assert.Equal(t, "CLM-2603-007", got)

	got = billing.ReferenceNumber("INV", march2026, func(int) int { return 999 })
	assert.Equal(t, "INV-2603-999", got)
}

func TestReferenceNumber_SingleDigitMonthIsPadded(t *testing.T) {
	jan := time.Date(2027, time.January, 2, 0, 0, 0, 0, time.UTC)

	got := billing.ReferenceNumber("INV", jan, func(int) int { return 42 })
	assert.Equal(t, "INV-2701-042", got)
}

func TestNewInvoiceNumber_MatchesPattern(t *testing.T) {
	got := billing.NewInvoiceNumber(time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), func(n int) int { return n - 1 })
	assert.Regexp(t, regexp.MustCompile(`^INV-\d{4}-\d{3}$`), got)
	assert.Equal(t, "INV-2612-999", got)
}
