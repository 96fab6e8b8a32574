/*
store.go - Persistence interface for invoices

PURPOSE:
  Defines the boundary between the invoice engine and the database. The
  engine itself performs no I/O; stores persist whatever snapshot they are
  last given, and totals are always consistent with that snapshot because
  every mutation went through Recompute.

IMPLEMENTATIONS:
  - store/memory: In-memory, for tests and development
  - store/sqlite: Production SQLite

SEE ALSO:
  - service.go: Store-backed orchestration
*/
package billing

import "context"

// InvoiceStore handles invoice persistence. Save replaces the whole
// record, items included: concurrent edits to the same invoice resolve
// last-write-wins at this layer.
type InvoiceStore interface {
	// SaveInvoice inserts or replaces an invoice and its items.
	SaveInvoice(ctx context.Context, inv Invoice) error

	// GetInvoice returns the invoice or ErrNotFound.
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)

	// ListInvoices returns all invoices ordered by date, newest first.
	ListInvoices(ctx context.Context) ([]Invoice, error)

	// DeleteInvoice removes an invoice. Deleting is always an explicit
	// external operation, never a side effect.
	DeleteInvoice(ctx context.Context, id InvoiceID) error
}
