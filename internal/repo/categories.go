package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Categories is the category repository.
type Categories struct {
	Pool *pgxpool.Pool
}

// List returns all categories ordered by name.
func (r Categories) List(ctx context.Context) ([]Category, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, slug, name, parent_id
		FROM categories
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.ParentID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns a category by id.
func (r Categories) Get(ctx context.Context, id uuid.UUID) (Category, error) {
	var c Category
	err := r.Pool.QueryRow(ctx, `
		SELECT id, slug, name, parent_id
		FROM categories
		WHERE id = $1`, id).Scan(&c.ID, &c.Slug, &c.Name, &c.ParentID)
	return c, err
}

// Create inserts a category.
func (r Categories) Create(ctx context.Context, c Category) (Category, error) {
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO categories (id, slug, name, parent_id)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id`, c.Slug, c.Name, c.ParentID).Scan(&c.ID)
	if err != nil {
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// Update modifies a category. pgx.ErrNoRows is returned when the id is unknown.
func (r Categories) Update(ctx context.Context, c Category) (Category, error) {
	err := r.Pool.QueryRow(ctx, `
		UPDATE categories
		SET slug = $2, name = $3, parent_id = $4
		WHERE id = $1
		RETURNING id`, c.ID, c.Slug, c.Name, c.ParentID).Scan(&c.ID)
	if err != nil {
		return Category{}, err
	}
	return c, nil
}

// Delete removes a category; products keep a NULL category afterwards.
func (r Categories) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errNoRows
	}
	return nil
}
