package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Customers is the customer repository.
type Customers struct {
	Pool *pgxpool.Pool
}

const customerColumns = `id, name, email, phone, address, city, postal_code, notes, created_at, updated_at`

// List returns customers matching an optional free-text query, newest first.
func (r Customers) List(ctx context.Context, query string, limit, offset int) ([]Customer, int64, error) {
	var (
		conds []string
		args  []any
	)
	if q := strings.TrimSpace(query); q != "" {
		args = append(args, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", len(args), len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT count(*) FROM customers `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, offset)
	sql := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		customerColumns, where, len(args)-1, len(args))
	rows, err := r.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City,
			&c.PostalCode, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Get returns one customer by id.
func (r Customers) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	var c Customer
	err := r.Pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1`, customerColumns), id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City,
		&c.PostalCode, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a customer.
func (r Customers) Create(ctx context.Context, c Customer) (Customer, error) {
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO customers (id, name, email, phone, address, city, postal_code, notes)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		c.Name, c.Email, c.Phone, c.Address, c.City, c.PostalCode, c.Notes,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

// Update modifies a customer.
func (r Customers) Update(ctx context.Context, c Customer) (Customer, error) {
	err := r.Pool.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, address = $5, city = $6,
			postal_code = $7, notes = $8, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.City, c.PostalCode, c.Notes,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Delete removes a customer. Invoices keep their snapshotted customer name.
func (r Customers) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}
