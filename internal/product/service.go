package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/velanstores/backend-kadai/internal/catalog"
	"github.com/velanstores/backend-kadai/internal/common"
	"github.com/velanstores/backend-kadai/internal/pricing"
	"github.com/velanstores/backend-kadai/internal/repo"
)

type store interface {
	Count(ctx context.Context, f repo.ProductFilter) (int64, error)
	List(ctx context.Context, f repo.ProductFilter) ([]repo.Product, error)
	Get(ctx context.Context, id uuid.UUID) (repo.Product, error)
	Create(ctx context.Context, p repo.Product) (repo.Product, error)
	Update(ctx context.Context, p repo.Product) (repo.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service manages the admin product surface. Writes replace the unit set
// atomically and drop the affected storefront cache keys.
type Service struct {
	store    store
	cache    *catalog.Cache
	validate *validator.Validate
	log      zerolog.Logger
}

// NewService constructs a Service.
func NewService(store store, cache *catalog.Cache, validate *validator.Validate, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("product: store is required")
	}
	if validate == nil {
		validate = validator.New()
	}
	return &Service{store: store, cache: cache, validate: validate, log: log}, nil
}

// UnitInput is one sellable unit in a product write request.
type UnitInput struct {
	Name            string `json:"name" validate:"required,max=60"`
	Abbreviation    string `json:"abbreviation" validate:"required,max=16"`
	BaseQuantity    string `json:"base_quantity" validate:"required"`
	PriceMultiplier string `json:"price_multiplier" validate:"required"`
	IsDefault       bool   `json:"is_default"`
}

// Input is a product create or update request. BasePrice is a rupee amount
// like "40.00"; quantities and multipliers are decimal strings.
type Input struct {
	Slug        string      `json:"slug" validate:"required,max=120"`
	Name        string      `json:"name" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=4000"`
	CategoryID  *string     `json:"category_id" validate:"omitempty,uuid"`
	BasePrice   string      `json:"base_price" validate:"required"`
	BaseUnit    string      `json:"base_unit" validate:"required,max=16"`
	Image       *string     `json:"image" validate:"omitempty,url"`
	IsActive    *bool       `json:"is_active"`
	Units       []UnitInput `json:"units" validate:"required,min=1,dive"`
}

// View is the admin product payload, with per-unit prices resolved.
type View struct {
	ID          string             `json:"id"`
	Slug        string             `json:"slug"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	CategoryID  *string            `json:"category_id,omitempty"`
	BasePrice   string             `json:"base_price"`
	BaseUnit    string             `json:"base_unit"`
	Image       *string            `json:"image,omitempty"`
	IsActive    bool               `json:"is_active"`
	Units       []catalog.UnitView `json:"units"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// ListResult carries one admin listing page.
type ListResult struct {
	Items []View
	Total int64
}

// List returns products for the admin table, inactive ones included.
func (s *Service) List(ctx context.Context, query string, limit, offset int) (ListResult, error) {
	filter := repo.ProductFilter{Query: query, Limit: limit, Offset: offset, Sort: "name:asc"}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.store.List(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]View, 0, len(rows))
	for _, row := range rows {
		items = append(items, toView(row))
	}
	return ListResult{Items: items, Total: total}, nil
}

// Get returns one product with its units.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	row, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NotFound("product not found")
		}
		return View{}, fmt.Errorf("get product: %w", err)
	}
	return toView(row), nil
}

// Create validates and inserts a product with its unit set.
func (s *Service) Create(ctx context.Context, input Input) (View, error) {
	record, err := s.toRecord(input)
	if err != nil {
		return View{}, err
	}
	created, err := s.store.Create(ctx, record)
	if err != nil {
		return View{}, translateWriteError(err)
	}
	s.invalidate(ctx, created.Slug)
	return toView(created), nil
}

// Update validates and replaces a product together with its unit set.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (View, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NotFound("product not found")
		}
		return View{}, fmt.Errorf("get product: %w", err)
	}
	record, err := s.toRecord(input)
	if err != nil {
		return View{}, err
	}
	record.ID = id
	updated, err := s.store.Update(ctx, record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.NotFound("product not found")
		}
		return View{}, translateWriteError(err)
	}
	s.invalidate(ctx, existing.Slug, updated.Slug)
	return toView(updated), nil
}

// Delete removes a product. Invoices keep their snapshots, so past documents
// are unaffected.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFound("product not found")
		}
		return fmt.Errorf("get product: %w", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFound("product not found")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidate(ctx, existing.Slug)
	return nil
}

func (s *Service) toRecord(input Input) (repo.Product, error) {
	if err := s.validate.Struct(input); err != nil {
		return repo.Product{}, common.ValidationFailed(common.ValidationProblems(err))
	}
	var problems []string

	basePrice, err := pricing.ParseAmount(input.BasePrice)
	if err != nil {
		problems = append(problems, "base_price must be a valid amount")
	} else if basePrice < 0 {
		problems = append(problems, "base_price must not be negative")
	}

	units := make([]repo.ProductUnit, 0, len(input.Units))
	defaults := 0
	names := make(map[string]struct{}, len(input.Units))
	for i, u := range input.Units {
		quantity, err := decimal.NewFromString(u.BaseQuantity)
		if err != nil || !quantity.IsPositive() {
			problems = append(problems, fmt.Sprintf("units[%d].base_quantity must be a positive decimal", i))
		}
		multiplier, err := decimal.NewFromString(u.PriceMultiplier)
		if err != nil || multiplier.IsNegative() {
			problems = append(problems, fmt.Sprintf("units[%d].price_multiplier must be a non-negative decimal", i))
		}
		key := strings.ToLower(strings.TrimSpace(u.Name))
		if _, dup := names[key]; dup {
			problems = append(problems, fmt.Sprintf("units[%d].name duplicates another unit", i))
		}
		names[key] = struct{}{}
		if u.IsDefault {
			defaults++
		}
		units = append(units, repo.ProductUnit{
			Name:            strings.TrimSpace(u.Name),
			Abbreviation:    strings.TrimSpace(u.Abbreviation),
			BaseQuantity:    quantity,
			PriceMultiplier: multiplier,
			IsDefault:       u.IsDefault,
		})
	}
	if defaults != 1 {
		problems = append(problems, "exactly one unit must be marked default")
	}

	var categoryID *uuid.UUID
	if input.CategoryID != nil {
		parsed, err := uuid.Parse(*input.CategoryID)
		if err != nil {
			problems = append(problems, "category_id must be a valid uuid")
		} else {
			categoryID = &parsed
		}
	}
	if len(problems) > 0 {
		return repo.Product{}, common.ValidationFailed(problems)
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	return repo.Product{
		Slug:        strings.TrimSpace(input.Slug),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		CategoryID:  categoryID,
		BasePrice:   int64(basePrice),
		BaseUnit:    strings.TrimSpace(input.BaseUnit),
		ImageURL:    input.Image,
		IsActive:    isActive,
		Units:       units,
	}, nil
}

func (s *Service) invalidate(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}
	seen := make(map[string]struct{})
	var keys []string
	for _, slug := range slugs {
		for _, key := range catalog.ProductKeys(slug) {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Strs("keys", keys).Msg("invalidate catalog cache")
	}
}

func toView(p repo.Product) View {
	view := View{
		ID:          p.ID.String(),
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		BasePrice:   pricing.FormatAmount(pricing.Money(p.BasePrice)),
		BaseUnit:    p.BaseUnit,
		Image:       p.ImageURL,
		IsActive:    p.IsActive,
		Units:       catalog.UnitViews(p.BasePrice, p.Units),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.CategoryID != nil {
		id := p.CategoryID.String()
		view.CategoryID = &id
	}
	return view
}

func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return common.Conflict("slug already in use")
	}
	return fmt.Errorf("write product: %w", err)
}
