package billing

import (
	"fmt"
	"math/rand"
	"time"
)

// ReferenceNumber builds a human-facing document number in the form
// {prefix}-{yy}{mm}-{rrr}, where rrr is a zero-padded 0-999 suffix drawn
// from intn. Not globally unique, but collision-resistant per month per
// prefix, which matches how clinics file these documents.
func ReferenceNumber(prefix string, now time.Time, intn func(int) int) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, now.Format("0601"), intn(1000))
}

// NewInvoiceNumber generates a fresh invoice number with the INV prefix.
func NewInvoiceNumber(now time.Time, intn func(int) int) string {
	return ReferenceNumber("INV", now, intn)
}

// defaultIntn is the rand source used when a service is built without one.
func defaultIntn(n int) int { return rand.Intn(n) }
