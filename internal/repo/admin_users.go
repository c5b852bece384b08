package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminUsers is the back-office account repository.
type AdminUsers struct {
	Pool *pgxpool.Pool
}

// GetByEmail looks up an account by lowercased email.
func (r AdminUsers) GetByEmail(ctx context.Context, email string) (AdminUser, error) {
	var u AdminUser
	err := r.Pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM admin_users
		WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Get looks up an account by id.
func (r AdminUsers) Get(ctx context.Context, id uuid.UUID) (AdminUser, error) {
	var u AdminUser
	err := r.Pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM admin_users
		WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts an account. The unique email index surfaces duplicates as a
// pgconn 23505 error for the service to translate.
func (r AdminUsers) Create(ctx context.Context, u AdminUser) (AdminUser, error) {
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO admin_users (id, name, email, password_hash)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at, updated_at`,
		u.Name, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return AdminUser{}, fmt.Errorf("create admin user: %w", err)
	}
	return u, nil
}
