package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/velanstores/backend-kadai/internal/common"
	"github.com/velanstores/backend-kadai/internal/repo"
)

type store interface {
	List(ctx context.Context, query string, limit, offset int) ([]repo.Customer, int64, error)
	Get(ctx context.Context, id uuid.UUID) (repo.Customer, error)
	Create(ctx context.Context, c repo.Customer) (repo.Customer, error)
	Update(ctx context.Context, c repo.Customer) (repo.Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service manages the invoicing address book.
type Service struct {
	store    store
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(store store, validate *validator.Validate) (*Service, error) {
	if store == nil {
		return nil, errors.New("customer: store is required")
	}
	if validate == nil {
		validate = validator.New()
	}
	return &Service{store: store, validate: validate}, nil
}

// Input is a customer create or update request.
type Input struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
	Address    string `json:"address" validate:"max=500"`
	City       string `json:"city" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=10"`
	Notes      string `json:"notes" validate:"max=2000"`
}

// View is the customer payload returned to the back office.
type View struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListResult carries one listing page.
type ListResult struct {
	Items []View
	Total int64
}

// List returns customers matching the optional name/email/phone search.
func (s *Service) List(ctx context.Context, query string, limit, offset int) (ListResult, error) {
	rows, total, err := s.store.List(ctx, query, limit, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("list customers: %w", err)
	}
	items := make([]View, 0, len(rows))
	for _, row := range rows {
		items = append(items, toView(row))
	}
	return ListResult{Items: items, Total: total}, nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	row, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NotFound("customer not found")
		}
		return View{}, fmt.Errorf("get customer: %w", err)
	}
	return toView(row), nil
}

// Create validates and inserts a customer.
func (s *Service) Create(ctx context.Context, input Input) (View, error) {
	if err := s.validate.Struct(input); err != nil {
		return View{}, common.ValidationFailed(common.ValidationProblems(err))
	}
	created, err := s.store.Create(ctx, toRecord(input))
	if err != nil {
		return View{}, fmt.Errorf("create customer: %w", err)
	}
	return toView(created), nil
}

// Update validates and replaces a customer.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (View, error) {
	if err := s.validate.Struct(input); err != nil {
		return View{}, common.ValidationFailed(common.ValidationProblems(err))
	}
	record := toRecord(input)
	record.ID = id
	updated, err := s.store.Update(ctx, record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NotFound("customer not found")
		}
		return View{}, fmt.Errorf("update customer: %w", err)
	}
	return toView(updated), nil
}

// Delete removes a customer. Invoices keep the customer name snapshot, so
// issued documents stay intact.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFound("customer not found")
		}
		return fmt.Errorf("delete customer: %w", err)
	}
	return nil
}

func toRecord(input Input) repo.Customer {
	return repo.Customer{
		Name:       strings.TrimSpace(input.Name),
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:      strings.TrimSpace(input.Phone),
		Address:    strings.TrimSpace(input.Address),
		City:       strings.TrimSpace(input.City),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Notes:      strings.TrimSpace(input.Notes),
	}
}

func toView(c repo.Customer) View {
	return View{
		ID:         c.ID.String(),
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		Address:    c.Address,
		City:       c.City,
		PostalCode: c.PostalCode,
		Notes:      c.Notes,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
