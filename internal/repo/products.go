package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductFilter captures catalog listing filters. Zero values mean "no
// constraint".
type ProductFilter struct {
	Query        string
	CategorySlug string
	MinPrice     *int64
	MaxPrice     *int64
	ActiveOnly   bool
	Sort         string
	Limit        int
	Offset       int
}

// Products is the product repository. Units are managed together with their
// product: writes replace the unit set atomically inside one transaction.
type Products struct {
	Pool *pgxpool.Pool
}

const productColumns = `p.id, p.slug, p.name, p.description, p.category_id,
	p.base_price, p.base_unit, p.image_url, p.is_active, p.created_at, p.updated_at`

// Count returns the number of products matching the filter.
func (r Products) Count(ctx context.Context, f ProductFilter) (int64, error) {
	where, args := productWhere(f)
	var total int64
	err := r.Pool.QueryRow(ctx, `SELECT count(*) FROM products p `+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// List returns products matching the filter, without units.
func (r Products) List(ctx context.Context, f ProductFilter) ([]Product, error) {
	where, args := productWhere(f)
	order := productOrder(f.Sort)
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)
	sql := fmt.Sprintf(`SELECT %s FROM products p %s %s LIMIT $%d OFFSET $%d`,
		productColumns, where, order, len(args)-1, len(args))
	rows, err := r.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetBySlug returns one product with its units.
func (r Products) GetBySlug(ctx context.Context, slug string) (Product, error) {
	row := r.Pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM products p WHERE p.slug = $1`, productColumns), slug)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, err
	}
	return r.attachUnits(ctx, p)
}

// Get returns one product with its units by id.
func (r Products) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row := r.Pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM products p WHERE p.id = $1`, productColumns), id)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, err
	}
	return r.attachUnits(ctx, p)
}

// Create inserts a product and its units in one transaction.
func (r Products) Create(ctx context.Context, p Product) (Product, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO products (id, slug, name, description, category_id, base_price, base_unit, image_url, is_active)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		p.Slug, p.Name, p.Description, p.CategoryID, p.BasePrice, p.BaseUnit, p.ImageURL, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	units, err := insertUnits(ctx, tx, p.ID, p.Units)
	if err != nil {
		return Product{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	p.Units = units
	return p, nil
}

// Update modifies a product and replaces its unit set in one transaction.
func (r Products) Update(ctx context.Context, p Product) (Product, error) {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		UPDATE products
		SET slug = $2, name = $3, description = $4, category_id = $5,
			base_price = $6, base_unit = $7, image_url = $8, is_active = $9,
			updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Slug, p.Name, p.Description, p.CategoryID, p.BasePrice, p.BaseUnit, p.ImageURL, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM product_units WHERE product_id = $1`, p.ID); err != nil {
		return Product{}, fmt.Errorf("replace units: %w", err)
	}
	units, err := insertUnits(ctx, tx, p.ID, p.Units)
	if err != nil {
		return Product{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	p.Units = units
	return p, nil
}

// Delete removes a product together with its units.
func (r Products) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}

// UnitsByProduct lists a product's units, default unit first.
func (r Products) UnitsByProduct(ctx context.Context, productID uuid.UUID) ([]ProductUnit, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, product_id, name, abbreviation, base_quantity::text, price_multiplier::text, is_default
		FROM product_units
		WHERE product_id = $1
		ORDER BY is_default DESC, name`, productID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []ProductUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r Products) attachUnits(ctx context.Context, p Product) (Product, error) {
	units, err := r.UnitsByProduct(ctx, p.ID)
	if err != nil {
		return Product{}, err
	}
	p.Units = units
	return p, nil
}

func insertUnits(ctx context.Context, tx pgx.Tx, productID uuid.UUID, units []ProductUnit) ([]ProductUnit, error) {
	out := make([]ProductUnit, 0, len(units))
	for _, u := range units {
		u.ProductID = productID
		err := tx.QueryRow(ctx, `
			INSERT INTO product_units (id, product_id, name, abbreviation, base_quantity, price_multiplier, is_default)
			VALUES (gen_random_uuid(), $1, $2, $3, $4::numeric, $5::numeric, $6)
			RETURNING id`,
			productID, u.Name, u.Abbreviation, u.BaseQuantity.String(), u.PriceMultiplier.String(), u.IsDefault,
		).Scan(&u.ID)
		if err != nil {
			return nil, fmt.Errorf("insert unit %q: %w", u.Name, err)
		}
		out = append(out, u)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.CategoryID,
		&p.BasePrice, &p.BaseUnit, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func scanUnit(row rowScanner) (ProductUnit, error) {
	var (
		u          ProductUnit
		baseQty    string
		multiplier string
	)
	err := row.Scan(&u.ID, &u.ProductID, &u.Name, &u.Abbreviation, &baseQty, &multiplier, &u.IsDefault)
	if err != nil {
		return ProductUnit{}, err
	}
	if u.BaseQuantity, err = parseNumeric("base_quantity", baseQty); err != nil {
		return ProductUnit{}, err
	}
	if u.PriceMultiplier, err = parseNumeric("price_multiplier", multiplier); err != nil {
		return ProductUnit{}, err
	}
	return u, nil
}

func productWhere(f ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.ActiveOnly {
		conds = append(conds, "p.is_active")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}
	if slug := strings.TrimSpace(f.CategorySlug); slug != "" {
		args = append(args, slug)
		conds = append(conds, fmt.Sprintf("p.category_id = (SELECT id FROM categories WHERE slug = $%d)", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		conds = append(conds, fmt.Sprintf("p.base_price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conds = append(conds, fmt.Sprintf("p.base_price <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func productOrder(sort string) string {
	switch sort {
	case "price:asc":
		return "ORDER BY p.base_price ASC, p.name"
	case "price:desc":
		return "ORDER BY p.base_price DESC, p.name"
	case "name:desc":
		return "ORDER BY p.name DESC"
	case "name:asc":
		return "ORDER BY p.name ASC"
	default:
		return "ORDER BY p.created_at DESC"
	}
}
