package product_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/velanstores/backend-kadai/internal/catalog"
	"github.com/velanstores/backend-kadai/internal/common"
	"github.com/velanstores/backend-kadai/internal/product"
	"github.com/velanstores/backend-kadai/internal/repo"
)

type fakeStore struct {
	items map[uuid.UUID]repo.Product
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[uuid.UUID]repo.Product{}}
}

func (f *fakeStore) Count(_ context.Context, _ repo.ProductFilter) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeStore) List(_ context.Context, filter repo.ProductFilter) ([]repo.Product, error) {
	var rows []repo.Product
	for _, p := range f.items {
		rows = append(rows, p)
	}
	return rows, nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (repo.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return repo.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) Create(_ context.Context, p repo.Product) (repo.Product, error) {
	for _, existing := range f.items {
		if existing.Slug == p.Slug {
			return repo.Product{}, &pgconn.PgError{Code: "23505"}
		}
	}
	p.ID = uuid.New()
	for i := range p.Units {
		p.Units[i].ID = uuid.New()
		p.Units[i].ProductID = p.ID
	}
	f.items[p.ID] = p
	return p, nil
}

func (f *fakeStore) Update(_ context.Context, p repo.Product) (repo.Product, error) {
	if _, ok := f.items[p.ID]; !ok {
		return repo.Product{}, pgx.ErrNoRows
	}
	for id, existing := range f.items {
		if id != p.ID && existing.Slug == p.Slug {
			return repo.Product{}, &pgconn.PgError{Code: "23505"}
		}
	}
	f.items[p.ID] = p
	return p, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

func validInput() product.Input {
	return product.Input{
		Slug:      "camphor-tablets",
		Name:      "Camphor Tablets",
		BasePrice: "40.00",
		BaseUnit:  "g",
		Units: []product.UnitInput{
			{Name: "Gram", Abbreviation: "g", BaseQuantity: "1", PriceMultiplier: "1", IsDefault: true},
			{Name: "Box", Abbreviation: "box", BaseQuantity: "500", PriceMultiplier: "480"},
		},
	}
}

func newService(t *testing.T) (*product.Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	svc, err := product.NewService(store, nil, nil, zerolog.Nop())
	require.NoError(t, err)
	return svc, store
}

func TestServiceCreate(t *testing.T) {
	svc, store := newService(t)

	view, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, "40.00", view.BasePrice)
	require.Len(t, view.Units, 2)
	require.Equal(t, "40.00", view.Units[0].Price)
	require.Equal(t, "19200.00", view.Units[1].Price)
	require.Len(t, store.items, 1)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*product.Input)
	}{
		{"missing slug", func(in *product.Input) { in.Slug = "" }},
		{"bad base price", func(in *product.Input) { in.BasePrice = "forty" }},
		{"negative base price", func(in *product.Input) { in.BasePrice = "-1.00" }},
		{"no units", func(in *product.Input) { in.Units = nil }},
		{"no default unit", func(in *product.Input) { in.Units[0].IsDefault = false }},
		{"two default units", func(in *product.Input) { in.Units[1].IsDefault = true }},
		{"zero base quantity", func(in *product.Input) { in.Units[0].BaseQuantity = "0" }},
		{"negative multiplier", func(in *product.Input) { in.Units[1].PriceMultiplier = "-2" }},
		{"duplicate unit name", func(in *product.Input) { in.Units[1].Name = "gram" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.Create(ctx, input)
			require.Error(t, err)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
}

func TestServiceCreateSlugConflict(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Create(ctx, validInput())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)
}

func TestServiceUpdate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	input := validInput()
	input.BasePrice = "45.50"
	updated, err := svc.Update(ctx, id, input)
	require.NoError(t, err)
	require.Equal(t, "45.50", updated.BasePrice)
	require.Equal(t, "21840.00", updated.Units[1].Price)

	_, err = svc.Update(ctx, uuid.New(), validInput())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestServiceUpdateSurvivesCacheOutage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var logs bytes.Buffer
	store := newFakeStore()
	svc, err := product.NewService(store, catalog.NewCache(client, time.Minute), nil, zerolog.New(&logs))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	mr.Close()

	// The write goes through even when the cache cannot be invalidated,
	// and the dropped invalidation is logged.
	input := validInput()
	input.Name = "Premium Camphor Tablets"
	updated, err := svc.Update(ctx, id, input)
	require.NoError(t, err)
	require.Equal(t, "Premium Camphor Tablets", updated.Name)
	require.Contains(t, logs.String(), "invalidate catalog cache")
}

func TestServiceDelete(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, id))
	require.Empty(t, store.items)

	err = svc.Delete(ctx, id)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}
