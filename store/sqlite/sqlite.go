/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements billing.InvoiceStore, claims.ClaimStore, and facility.Store
  using SQLite. The same patterns apply to PostgreSQL; only minor SQL
  dialect differences.

KEY TABLES:
  facilities:     Facility configuration (exchange rate, currency, prefix)
  invoices:       Invoice headers with cached dual-currency totals
  invoice_items:  Ordered line items, replaced wholesale on save
  claims:         Claim records with snapshot amounts and status
  claim_invoices: Claim-to-invoice references

DECIMAL STORAGE:
  Monetary values are stored as TEXT via decimal.String() and parsed back
  with decimal.NewFromString, so no precision is lost through float
  round-trips.

ATOMIC SAVES:
  Saving an invoice (header + items) or a claim (record + references)
  runs in a single sql.Tx. Either the whole record lands or nothing does;
  a failed save leaves the previous version intact, which is what gives
  the engine its no-partial-mutation guarantee at the persistence layer.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer at a time.

USAGE:
  store, err := sqlite.New("./data/clinic.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/store.go: Interface definition
  - claims/store.go:  Interface definition
  - store/memory:     In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/claims"
	"github.com/clinichq/billing-engine/facility"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS facilities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		short_name TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL,
		exchange_rate TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		facility_id TEXT NOT NULL DEFAULT '',
		total_usd TEXT NOT NULL,
		total_khr TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_date ON invoices(date DESC);
	CREATE INDEX IF NOT EXISTS idx_invoices_facility ON invoices(facility_id);

	CREATE TABLE IF NOT EXISTS invoice_items (
		invoice_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		quantity TEXT NOT NULL,
		rate TEXT NOT NULL,
		discount1 TEXT NOT NULL,
		discount2 TEXT NOT NULL,
		amount TEXT NOT NULL,
		PRIMARY KEY (invoice_id, position)
	);

	CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		claim_type TEXT NOT NULL,
		claim_date TEXT NOT NULL,
		currency TEXT NOT NULL,
		amount_claimed TEXT NOT NULL,
		facility_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		rejection_reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_claims_date ON claims(claim_date DESC);
	CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);

	CREATE TABLE IF NOT EXISTS claim_invoices (
		claim_id TEXT NOT NULL,
		invoice_id TEXT NOT NULL,
		PRIMARY KEY (claim_id, invoice_id)
	);

	-- Hot path for the exclusivity check
	CREATE INDEX IF NOT EXISTS idx_claim_invoices_invoice
		ON claim_invoices(invoice_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INVOICES (billing.InvoiceStore)
// =============================================================================

// SaveInvoice replaces the invoice header and all of its items atomically.
func (s *Store) SaveInvoice(ctx context.Context, inv billing.Invoice) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, number, date, status, facility_id, total_usd, total_khr, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			date = excluded.date,
			facility_id = excluded.facility_id,
			total_usd = excluded.total_usd,
			total_khr = excluded.total_khr,
			updated_at = excluded.updated_at`,
		string(inv.ID), inv.Number, inv.Date.UTC().Format(time.RFC3339), string(inv.Status),
		inv.FacilityID, inv.Totals.USD.String(), inv.Totals.KHR.String(),
		inv.CreatedAt.UTC().Format(time.RFC3339), inv.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = ?`, string(inv.ID)); err != nil {
		return fmt.Errorf("failed to clear invoice items: %w", err)
	}
	for i, item := range inv.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_items (invoice_id, position, description, quantity, rate, discount1, discount2, amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(inv.ID), i, item.Description,
			item.Quantity.String(), item.Rate.String(),
			item.Discount1.String(), item.Discount2.String(), item.Amount.String())
		if err != nil {
			return fmt.Errorf("failed to save invoice item %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetInvoice loads an invoice and its items, ordered by position.
func (s *Store) GetInvoice(ctx context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, date, status, facility_id, total_usd, total_khr, created_at, updated_at
		FROM invoices WHERE id = ?`, string(id))

	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}

	items, err := s.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// ListInvoices returns all invoices with items, newest first.
func (s *Store) ListInvoices(ctx context.Context) ([]billing.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, date, status, facility_id, total_usd, total_khr, created_at, updated_at
		FROM invoices ORDER BY date DESC, number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := s.loadItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// DeleteInvoice removes an invoice and its items.
func (s *Store) DeleteInvoice(ctx context.Context, id billing.InvoiceID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = ?`, string(id)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) loadItems(ctx context.Context, id billing.InvoiceID) ([]billing.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT description, quantity, rate, discount1, discount2, amount
		FROM invoice_items WHERE invoice_id = ? ORDER BY position`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []billing.LineItem
	for rows.Next() {
		var desc, qty, rate, d1, d2, amt string
		if err := rows.Scan(&desc, &qty, &rate, &d1, &d2, &amt); err != nil {
			return nil, err
		}
		item := billing.LineItem{Description: desc}
		if item.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("corrupt quantity %q: %w", qty, err)
		}
		if item.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("corrupt rate %q: %w", rate, err)
		}
		if item.Discount1, err = decimal.NewFromString(d1); err != nil {
			return nil, fmt.Errorf("corrupt discount1 %q: %w", d1, err)
		}
		if item.Discount2, err = decimal.NewFromString(d2); err != nil {
			return nil, fmt.Errorf("corrupt discount2 %q: %w", d2, err)
		}
		if item.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amt, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*billing.Invoice, error) {
	var id, number, date, status, facilityID, usd, khr, createdAt, updatedAt string
	err := row.Scan(&id, &number, &date, &status, &facilityID, &usd, &khr, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	inv := billing.Invoice{
		ID:         billing.InvoiceID(id),
		Number:     number,
		Status:     billing.InvoiceStatus(status),
		FacilityID: facilityID,
	}
	if inv.Date, err = time.Parse(time.RFC3339, date); err != nil {
		return nil, fmt.Errorf("corrupt invoice date %q: %w", date, err)
	}
	if inv.Totals.USD, err = decimal.NewFromString(usd); err != nil {
		return nil, fmt.Errorf("corrupt total_usd %q: %w", usd, err)
	}
	if inv.Totals.KHR, err = decimal.NewFromString(khr); err != nil {
		return nil, fmt.Errorf("corrupt total_khr %q: %w", khr, err)
	}
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &inv, nil
}

// =============================================================================
// CLAIMS (claims.ClaimStore)
// =============================================================================

// SaveClaim replaces the claim record and its invoice references atomically.
func (s *Store) SaveClaim(ctx context.Context, c claims.Claim) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO claims (id, number, claim_type, claim_date, currency, amount_claimed, facility_id, status, rejection_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			claim_type = excluded.claim_type,
			claim_date = excluded.claim_date,
			currency = excluded.currency,
			amount_claimed = excluded.amount_claimed,
			facility_id = excluded.facility_id,
			status = excluded.status,
			rejection_reason = excluded.rejection_reason,
			updated_at = excluded.updated_at`,
		string(c.ID), c.Number, string(c.Type), c.Date.UTC().Format(time.RFC3339),
		string(c.Currency), c.AmountClaimed.String(), string(c.FacilityID),
		string(c.Status), c.RejectionReason,
		c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save claim: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM claim_invoices WHERE claim_id = ?`, string(c.ID)); err != nil {
		return fmt.Errorf("failed to clear claim invoices: %w", err)
	}
	for _, invID := range c.InvoiceIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO claim_invoices (claim_id, invoice_id) VALUES (?, ?)`,
			string(c.ID), string(invID)); err != nil {
			return fmt.Errorf("failed to save claim invoice ref: %w", err)
		}
	}

	return tx.Commit()
}

// GetClaim loads a claim and its invoice references.
func (s *Store) GetClaim(ctx context.Context, id claims.ClaimID) (*claims.Claim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, claim_type, claim_date, currency, amount_claimed, facility_id, status, rejection_reason, created_at, updated_at
		FROM claims WHERE id = ?`, string(id))

	c, err := scanClaim(row)
	if err != nil {
		return nil, err
	}
	if c.InvoiceIDs, err = s.loadClaimInvoices(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

// ListClaims returns all claims with references, newest first.
func (s *Store) ListClaims(ctx context.Context) ([]claims.Claim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, claim_type, claim_date, currency, amount_claimed, facility_id, status, rejection_reason, created_at, updated_at
		FROM claims ORDER BY claim_date DESC, number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []claims.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].InvoiceIDs, err = s.loadClaimInvoices(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteClaim removes a claim and its invoice references.
func (s *Store) DeleteClaim(ctx context.Context, id claims.ClaimID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM claims WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM claim_invoices WHERE claim_id = ?`, string(id)); err != nil {
		return err
	}
	return tx.Commit()
}

// ActiveClaimFor finds the non-rejected claim holding the invoice.
func (s *Store) ActiveClaimFor(ctx context.Context, invoiceID billing.InvoiceID, exclude claims.ClaimID) (*claims.Claim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.number, c.claim_type, c.claim_date, c.currency, c.amount_claimed, c.facility_id, c.status, c.rejection_reason, c.created_at, c.updated_at
		FROM claims c
		JOIN claim_invoices ci ON ci.claim_id = c.id
		WHERE ci.invoice_id = ? AND c.status != ? AND c.id != ?
		LIMIT 1`,
		string(invoiceID), string(claims.StatusRejected), string(exclude))

	c, err := scanClaim(row)
	if errors.Is(err, billing.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.InvoiceIDs, err = s.loadClaimInvoices(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) loadClaimInvoices(ctx context.Context, id claims.ClaimID) ([]billing.InvoiceID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT invoice_id FROM claim_invoices WHERE claim_id = ? ORDER BY invoice_id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.InvoiceID
	for rows.Next() {
		var invID string
		if err := rows.Scan(&invID); err != nil {
			return nil, err
		}
		out = append(out, billing.InvoiceID(invID))
	}
	return out, rows.Err()
}

func scanClaim(row rowScanner) (*claims.Claim, error) {
	var id, number, claimType, claimDate, currency, amount, facilityID, status, reason, createdAt, updatedAt string
	err := row.Scan(&id, &number, &claimType, &claimDate, &currency, &amount, &facilityID, &status, &reason, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c := claims.Claim{
		ID:              claims.ClaimID(id),
		Number:          number,
		Type:            claims.Type(claimType),
		Currency:        billing.Currency(currency),
		FacilityID:      facility.ID(facilityID),
		Status:          claims.Status(status),
		RejectionReason: reason,
	}
	if c.Date, err = time.Parse(time.RFC3339, claimDate); err != nil {
		return nil, fmt.Errorf("corrupt claim date %q: %w", claimDate, err)
	}
	if c.AmountClaimed, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount_claimed %q: %w", amount, err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// =============================================================================
// FACILITIES (facility.Store)
// =============================================================================

func (s *Store) SaveFacility(ctx context.Context, f facility.Facility) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facilities (id, name, short_name, currency, exchange_rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			short_name = excluded.short_name,
			currency = excluded.currency,
			exchange_rate = excluded.exchange_rate`,
		string(f.ID), f.Name, f.ShortName, string(f.Currency), f.ExchangeRate.String())
	if err != nil {
		return fmt.Errorf("failed to save facility: %w", err)
	}
	return nil
}

func (s *Store) GetFacility(ctx context.Context, id facility.ID) (*facility.Facility, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, short_name, currency, exchange_rate FROM facilities WHERE id = ?`, string(id))
	return scanFacility(row)
}

func (s *Store) ListFacilities(ctx context.Context) ([]facility.Facility, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, short_name, currency, exchange_rate FROM facilities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []facility.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func scanFacility(row rowScanner) (*facility.Facility, error) {
	var id, name, shortName, currency, rate string
	err := row.Scan(&id, &name, &shortName, &currency, &rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	f := facility.Facility{
		ID:   facility.ID(id),
		Name: name,
		Config: facility.Config{
			ShortName: shortName,
			Currency:  billing.Currency(currency),
		},
	}
	if f.ExchangeRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("corrupt exchange_rate %q: %w", rate, err)
	}
	return &f, nil
}
