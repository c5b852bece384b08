package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Invoices is the invoice repository. Creation snapshots all denormalised
// fields and persists header plus lines in one transaction; stored totals
// are whatever the service computed through the pricing engine.
type Invoices struct {
	Pool *pgxpool.Pool
	// NumberPrefix prefixes generated invoice numbers (INV-2026-0001).
	NumberPrefix string
}

const invoiceColumns = `id, number, customer_id, customer_name, status,
	issue_date, due_date, discount, subtotal, tax_amount, total_amount,
	notes, created_at, updated_at`

// Create inserts the invoice and its items, assigning the next sequential
// number for the issue year.
func (r Invoices) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Invoice{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	number, err := r.nextNumber(ctx, tx, inv.IssueDate.Year())
	if err != nil {
		return Invoice{}, err
	}
	inv.Number = number
	inv.Status = InvoiceStatusDraft

	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (id, number, customer_id, customer_name, status,
			issue_date, due_date, discount, subtotal, tax_amount, total_amount, notes)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		inv.Number, inv.CustomerID, inv.CustomerName, inv.Status,
		inv.IssueDate, inv.DueDate, inv.Discount, inv.Subtotal, inv.TaxAmount,
		inv.TotalAmount, inv.Notes,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	items, err := insertItems(ctx, tx, inv.ID, inv.Items)
	if err != nil {
		return Invoice{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

// UpdateDraft rewrites header fields and replaces the line set. Only draft
// invoices may change; the WHERE clause enforces it so a lost race surfaces
// as pgx.ErrNoRows.
func (r Invoices) UpdateDraft(ctx context.Context, inv Invoice) (Invoice, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Invoice{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		UPDATE invoices
		SET customer_id = $2, customer_name = $3, issue_date = $4, due_date = $5,
			discount = $6, subtotal = $7, tax_amount = $8, total_amount = $9,
			notes = $10, updated_at = now()
		WHERE id = $1 AND status = 'draft'
		RETURNING number, status, created_at, updated_at`,
		inv.ID, inv.CustomerID, inv.CustomerName, inv.IssueDate, inv.DueDate,
		inv.Discount, inv.Subtotal, inv.TaxAmount, inv.TotalAmount, inv.Notes,
	).Scan(&inv.Number, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return Invoice{}, fmt.Errorf("replace invoice items: %w", err)
	}
	items, err := insertItems(ctx, tx, inv.ID, inv.Items)
	if err != nil {
		return Invoice{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

// Get returns one invoice with its items.
func (r Invoices) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	row := r.Pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns), id)
	inv, err := scanInvoice(row)
	if err != nil {
		return Invoice{}, err
	}
	items, err := r.itemsByInvoice(ctx, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

// List returns invoices filtered by optional status, newest first, plus the
// total match count. Items are not loaded for listings.
func (r Invoices) List(ctx context.Context, status string, limit, offset int) ([]Invoice, int64, error) {
	var (
		conds []string
		args  []any
	)
	if s := strings.TrimSpace(status); s != "" {
		args = append(args, s)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT count(*) FROM invoices `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, offset)
	sql := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, len(args)-1, len(args))
	rows, err := r.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

// UpdateStatus moves an invoice between statuses. The allowed source states
// guard against double transitions; a mismatch surfaces as pgx.ErrNoRows.
func (r Invoices) UpdateStatus(ctx context.Context, id uuid.UUID, from []string, to string) (Invoice, error) {
	row := r.Pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE invoices
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING %s`, invoiceColumns), id, to, from)
	return scanInvoice(row)
}

// DeleteDraft removes a draft invoice and its items.
func (r Invoices) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}

// MarkOverdue flips sent invoices with a due date before now to overdue and
// returns the affected ids.
func (r Invoices) MarkOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.Pool.Query(ctx, `
		UPDATE invoices
		SET status = 'overdue', updated_at = now()
		WHERE status = 'sent' AND due_date < $1
		RETURNING id`, now)
	if err != nil {
		return nil, fmt.Errorf("mark overdue: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Invoices) itemsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, invoice_id, product_id, product_name, unit_id, unit_name,
			unit_price, quantity::text, discount, tax_rate::text, total
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()

	var out []InvoiceItem
	for rows.Next() {
		var (
			it       InvoiceItem
			quantity string
			taxRate  string
		)
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.ProductName,
			&it.UnitID, &it.UnitName, &it.UnitPrice, &quantity, &it.Discount,
			&taxRate, &it.Total); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		if it.Quantity, err = parseNumeric("quantity", quantity); err != nil {
			return nil, err
		}
		if it.TaxRate, err = parseNumeric("tax_rate", taxRate); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func insertItems(ctx context.Context, tx pgx.Tx, invoiceID uuid.UUID, items []InvoiceItem) ([]InvoiceItem, error) {
	out := make([]InvoiceItem, 0, len(items))
	for pos, it := range items {
		it.InvoiceID = invoiceID
		err := tx.QueryRow(ctx, `
			INSERT INTO invoice_items (id, invoice_id, product_id, product_name,
				unit_id, unit_name, unit_price, quantity, discount, tax_rate, total, position)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7::numeric, $8, $9::numeric, $10, $11)
			RETURNING id`,
			invoiceID, it.ProductID, it.ProductName, it.UnitID, it.UnitName,
			it.UnitPrice, it.Quantity.String(), it.Discount, it.TaxRate.String(),
			it.Total, pos,
		).Scan(&it.ID)
		if err != nil {
			return nil, fmt.Errorf("insert invoice item %d: %w", pos, err)
		}
		out = append(out, it)
	}
	return out, nil
}

// nextNumber reserves the next sequential number for the year using an
// upserted per-year counter row.
func (r Invoices) nextNumber(ctx context.Context, tx pgx.Tx, year int) (string, error) {
	var seq int64
	err := tx.QueryRow(ctx, `
		INSERT INTO invoice_counters (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = invoice_counters.last_value + 1
		RETURNING last_value`, year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	prefix := r.NumberPrefix
	if prefix == "" {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq), nil
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.CustomerName,
		&inv.Status, &inv.IssueDate, &inv.DueDate, &inv.Discount, &inv.Subtotal,
		&inv.TaxAmount, &inv.TotalAmount, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}
