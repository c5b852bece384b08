package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/velanstores/backend-kadai/internal/catalog"
	"github.com/velanstores/backend-kadai/internal/repo"
)

type fakeProducts struct {
	items []repo.Product
}

func (f *fakeProducts) Count(_ context.Context, filter repo.ProductFilter) (int64, error) {
	var total int64
	for _, p := range f.items {
		if f.matches(p, filter) {
			total++
		}
	}
	return total, nil
}

func (f *fakeProducts) List(_ context.Context, filter repo.ProductFilter) ([]repo.Product, error) {
	var rows []repo.Product
	for _, p := range f.items {
		if f.matches(p, filter) {
			rows = append(rows, p)
		}
	}
	if filter.Offset >= len(rows) {
		return nil, nil
	}
	rows = rows[filter.Offset:]
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}

func (f *fakeProducts) GetBySlug(_ context.Context, slug string) (repo.Product, error) {
	for _, p := range f.items {
		if p.Slug == slug {
			return p, nil
		}
	}
	return repo.Product{}, pgx.ErrNoRows
}

func (f *fakeProducts) matches(p repo.Product, filter repo.ProductFilter) bool {
	if filter.ActiveOnly && !p.IsActive {
		return false
	}
	if filter.MinPrice != nil && p.BasePrice < *filter.MinPrice {
		return false
	}
	if filter.MaxPrice != nil && p.BasePrice > *filter.MaxPrice {
		return false
	}
	return true
}

type fakeCategories struct {
	items []repo.Category
}

func (f *fakeCategories) List(_ context.Context) ([]repo.Category, error) {
	return f.items, nil
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newCatalogFixture(t *testing.T, cache *catalog.Cache) (*catalog.Service, *fakeProducts) {
	t.Helper()
	image := "https://cdn.velanstores.in/camphor-box.jpg"
	products := &fakeProducts{items: []repo.Product{
		{
			ID:        uuid.New(),
			Slug:      "camphor-tablets",
			Name:      "Camphor Tablets",
			BasePrice: 4000,
			BaseUnit:  "g",
			ImageURL:  &image,
			IsActive:  true,
			Units: []repo.ProductUnit{
				{
					ID:              uuid.New(),
					Name:            "Gram",
					Abbreviation:    "g",
					BaseQuantity:    dec(t, "1"),
					PriceMultiplier: dec(t, "1"),
					IsDefault:       true,
				},
				{
					ID:              uuid.New(),
					Name:            "Box",
					Abbreviation:    "box",
					BaseQuantity:    dec(t, "500"),
					PriceMultiplier: dec(t, "480"),
				},
			},
		},
		{
			ID:        uuid.New(),
			Slug:      "sambrani-cups",
			Name:      "Sambrani Cups",
			BasePrice: 9000,
			BaseUnit:  "pc",
			IsActive:  true,
		},
		{
			ID:        uuid.New(),
			Slug:      "retired-incense",
			Name:      "Retired Incense",
			BasePrice: 1000,
			BaseUnit:  "pc",
			IsActive:  false,
		},
	}}
	categories := &fakeCategories{items: []repo.Category{
		{ID: uuid.New(), Slug: "pooja-essentials", Name: "Pooja Essentials"},
	}}
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Products:     products,
		Categories:   categories,
		Cache:        cache,
		DefaultLimit: 20,
		MaxLimit:     100,
	})
	require.NoError(t, err)
	return svc, products
}

func TestCatalogProducts(t *testing.T) {
	svc, _ := newCatalogFixture(t, nil)
	handler := catalog.NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=1", nil)
	rec := httptest.NewRecorder()
	handler.Products(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))

	var resp struct {
		Data       []catalog.ProductListItem `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			PerPage    int `json:"per_page"`
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "Camphor Tablets", resp.Data[0].Name)
	require.Equal(t, "40.00", resp.Data[0].BasePrice)
	require.Equal(t, 2, resp.Pagination.TotalItems)
}

func TestCatalogProductsPriceFilter(t *testing.T) {
	svc, _ := newCatalogFixture(t, nil)
	handler := catalog.NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?min_price=50.00", nil)
	rec := httptest.NewRecorder()
	handler.Products(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products?min_price=abc", nil)
	rec = httptest.NewRecorder()
	handler.Products(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products?page=0", nil)
	rec = httptest.NewRecorder()
	handler.Products(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogProductDetail(t *testing.T) {
	svc, _ := newCatalogFixture(t, nil)
	handler := catalog.NewHandler(svc)

	router := chi.NewRouter()
	router.Get("/api/v1/products/{slug}", handler.ProductDetail)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/camphor-tablets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data catalog.ProductDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "40.00", resp.Data.BasePrice)
	require.Len(t, resp.Data.Units, 2)
	require.Equal(t, "40.00", resp.Data.Units[0].Price)
	// 4000 paise per gram times the box multiplier of 480.
	require.Equal(t, "19200.00", resp.Data.Units[1].Price)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products/no-such-product", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Inactive products stay hidden from the storefront.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/products/retired-incense", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogCategories(t *testing.T) {
	svc, _ := newCatalogFixture(t, nil)
	handler := catalog.NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	rec := httptest.NewRecorder()
	handler.Categories(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []catalog.Category `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "pooja-essentials", resp.Data[0].Slug)
}

func TestCatalogDetailCaching(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := catalog.NewCache(client, time.Minute)

	svc, products := newCatalogFixture(t, cache)

	ctx := context.Background()
	first, err := svc.GetProductDetail(ctx, "camphor-tablets")
	require.NoError(t, err)

	// The store changes but the cached payload keeps serving.
	products.items[0].BasePrice = 9999
	second, err := svc.GetProductDetail(ctx, "camphor-tablets")
	require.NoError(t, err)
	require.Equal(t, first.BasePrice, second.BasePrice)

	// Dropping the product keys makes the write visible.
	require.NoError(t, cache.Invalidate(ctx, catalog.ProductKeys("camphor-tablets")...))
	third, err := svc.GetProductDetail(ctx, "camphor-tablets")
	require.NoError(t, err)
	require.Equal(t, "99.99", third.BasePrice)
}
