package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/velanstores/backend-kadai/internal/common"
	"github.com/velanstores/backend-kadai/internal/pricing"
	"github.com/velanstores/backend-kadai/internal/repo"
)

const (
	listCacheKey       = "catalog:products:list:front"
	categoriesCacheKey = "catalog:categories"
)

type productStore interface {
	Count(ctx context.Context, f repo.ProductFilter) (int64, error)
	List(ctx context.Context, f repo.ProductFilter) ([]repo.Product, error)
	GetBySlug(ctx context.Context, slug string) (repo.Product, error)
}

type categoryStore interface {
	List(ctx context.Context) ([]repo.Category, error)
}

// Service assembles the public storefront payloads with per-unit prices
// resolved through the pricing engine.
type Service struct {
	products     productStore
	categories   categoryStore
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Products     productStore
	Categories   categoryStore
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for the public product listing. Prices are
// paise.
type ListParams struct {
	Query    string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
	Page     int
	Limit    int
}

// Category is the public category payload.
type Category struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	ParentID *string `json:"parent_id,omitempty"`
}

// UnitView is a sellable unit with its resolved price. Amounts are rupee
// strings; quantities keep their exact decimal form.
type UnitView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Abbreviation    string `json:"abbreviation"`
	BaseQuantity    string `json:"base_quantity"`
	PriceMultiplier string `json:"price_multiplier"`
	Price           string `json:"price"`
	IsDefault       bool   `json:"is_default"`
}

// ProductListItem is an entry in the storefront listing.
type ProductListItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	BasePrice string  `json:"base_price"`
	BaseUnit  string  `json:"base_unit"`
	Image     *string `json:"image,omitempty"`
}

// ProductDetail is the full storefront payload for one product.
type ProductDetail struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	BasePrice   string     `json:"base_price"`
	BaseUnit    string     `json:"base_unit"`
	Image       *string    `json:"image,omitempty"`
	Units       []UnitView `json:"units"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductListItem
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Products == nil {
		return nil, errors.New("catalog: product store is required")
	}
	if cfg.Categories == nil {
		return nil, errors.New("catalog: category store is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		products:     cfg.Products,
		categories:   cfg.Categories,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into typed filters. Price
// bounds come in as rupee amounts like "150.00".
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: 1, Limit: s.defaultLimit}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = limit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}

	if v := strings.TrimSpace(values.Get("min_price")); v != "" {
		amount, err := pricing.ParseAmount(v)
		if err != nil {
			return params, badRequest("min_price", "min_price must be a valid amount", err)
		}
		min := int64(amount)
		params.MinPrice = &min
	}
	if v := strings.TrimSpace(values.Get("max_price")); v != "" {
		amount, err := pricing.ParseAmount(v)
		if err != nil {
			return params, badRequest("max_price", "max_price must be a valid amount", err)
		}
		max := int64(amount)
		params.MaxPrice = &max
	}
	if params.MinPrice != nil && params.MaxPrice != nil && *params.MinPrice > *params.MaxPrice {
		return params, badRequest("price", "min_price cannot be greater than max_price", nil)
	}

	params.Sort = normalizeSort(values.Get("sort"))
	return params, nil
}

// ListCategories returns all categories with parent linkage.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	if s.cache != nil {
		var cached []Category
		ok, err := s.cache.GetJSON(ctx, categoriesCacheKey, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	rows, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	result := make([]Category, 0, len(rows))
	for _, row := range rows {
		cat := Category{
			ID:   row.ID.String(),
			Name: row.Name,
			Slug: row.Slug,
		}
		if row.ParentID != nil {
			parent := row.ParentID.String()
			cat.ParentID = &parent
		}
		result = append(result, cat)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, categoriesCacheKey, result)
	}
	return result, nil
}

// ListProducts returns the filtered storefront listing with pagination
// metadata. Only the unfiltered first page is cached.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	key, cacheable := s.listKey(params)
	if cacheable && s.cache != nil {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	filter := repo.ProductFilter{
		Query:        params.Query,
		CategorySlug: params.Category,
		MinPrice:     params.MinPrice,
		MaxPrice:     params.MaxPrice,
		ActiveOnly:   true,
		Sort:         params.Sort,
		Limit:        params.Limit,
		Offset:       (params.Page - 1) * params.Limit,
	}
	total, err := s.products.Count(ctx, filter)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.products.List(ctx, filter)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]ProductListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ProductListItem{
			ID:        row.ID.String(),
			Name:      row.Name,
			Slug:      row.Slug,
			BasePrice: pricing.FormatAmount(pricing.Money(row.BasePrice)),
			BaseUnit:  row.BaseUnit,
			Image:     row.ImageURL,
		})
	}
	result := ProductListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if cacheable && s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// GetProductDetail returns one active product with every sellable unit and
// its resolved price.
func (s *Service) GetProductDetail(ctx context.Context, slug string) (ProductDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetail{}, badRequest("slug", "slug is required", nil)
	}
	cacheKey := detailCacheKey(slug)
	if s.cache != nil {
		var cached ProductDetail
		ok, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductDetail{}, common.NotFound("product not found")
		}
		return ProductDetail{}, fmt.Errorf("get product by slug: %w", err)
	}
	if !product.IsActive {
		return ProductDetail{}, common.NotFound("product not found")
	}
	detail := ProductDetail{
		ID:          product.ID.String(),
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		BasePrice:   pricing.FormatAmount(pricing.Money(product.BasePrice)),
		BaseUnit:    product.BaseUnit,
		Image:       product.ImageURL,
		Units:       UnitViews(product.BasePrice, product.Units),
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cacheKey, detail)
	}
	return detail, nil
}

// UnitViews resolves the selling price of every unit against the product
// base price.
func UnitViews(basePrice int64, units []repo.ProductUnit) []UnitView {
	views := make([]UnitView, 0, len(units))
	for _, u := range units {
		price := pricing.UnitPrice(pricing.Money(basePrice), pricing.Unit{
			BaseQuantity:    u.BaseQuantity,
			PriceMultiplier: u.PriceMultiplier,
		})
		views = append(views, UnitView{
			ID:              u.ID.String(),
			Name:            u.Name,
			Abbreviation:    u.Abbreviation,
			BaseQuantity:    u.BaseQuantity.String(),
			PriceMultiplier: u.PriceMultiplier.String(),
			Price:           pricing.FormatAmount(price),
			IsDefault:       u.IsDefault,
		})
	}
	return views
}

// ProductKeys lists the cache keys an admin write to the given product slug
// must drop.
func ProductKeys(slug string) []string {
	return []string{listCacheKey, detailCacheKey(slug)}
}

// CategoryKeys lists the cache keys an admin category write must drop.
func CategoryKeys() []string {
	return []string{categoriesCacheKey, listCacheKey}
}

type cachedList struct {
	Items []ProductListItem `json:"items"`
	Total int64             `json:"total"`
}

func (s *Service) listKey(params ListParams) (string, bool) {
	if params.Page != 1 || params.Limit != s.defaultLimit {
		return "", false
	}
	if params.Query != "" || params.Category != "" || params.MinPrice != nil || params.MaxPrice != nil || params.Sort != "" {
		return "", false
	}
	return listCacheKey, true
}

func detailCacheKey(slug string) string {
	return "catalog:products:detail:" + slug
}

func normalizeSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "price:asc", "price:desc", "name:asc", "name:desc":
		return s
	default:
		return ""
	}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]any{"field": field},
	}
}
