package customer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/velanstores/backend-kadai/internal/common"
	"github.com/velanstores/backend-kadai/internal/customer"
	"github.com/velanstores/backend-kadai/internal/repo"
)

type fakeStore struct {
	items map[uuid.UUID]repo.Customer
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[uuid.UUID]repo.Customer{}}
}

func (f *fakeStore) List(_ context.Context, query string, limit, offset int) ([]repo.Customer, int64, error) {
	var rows []repo.Customer
	for _, c := range f.items {
		if query != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(query)) {
			continue
		}
		rows = append(rows, c)
	}
	return rows, int64(len(rows)), nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (repo.Customer, error) {
	c, ok := f.items[id]
	if !ok {
		return repo.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) Create(_ context.Context, c repo.Customer) (repo.Customer, error) {
	c.ID = uuid.New()
	f.items[c.ID] = c
	return c, nil
}

func (f *fakeStore) Update(_ context.Context, c repo.Customer) (repo.Customer, error) {
	if _, ok := f.items[c.ID]; !ok {
		return repo.Customer{}, pgx.ErrNoRows
	}
	f.items[c.ID] = c
	return c, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

func newService(t *testing.T) (*customer.Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	svc, err := customer.NewService(store, nil)
	require.NoError(t, err)
	return svc, store
}

func TestServiceCreate(t *testing.T) {
	svc, store := newService(t)

	view, err := svc.Create(context.Background(), customer.Input{
		Name:  "Murugan Stores",
		Email: "Orders@MuruganStores.in",
		City:  "Madurai",
	})
	require.NoError(t, err)
	require.Equal(t, "orders@muruganstores.in", view.Email)
	require.Len(t, store.items, 1)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, customer.Input{Name: ""})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = svc.Create(ctx, customer.Input{Name: "Murugan Stores", Email: "not-an-email"})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestServiceUpdateAndDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, customer.Input{Name: "Murugan Stores"})
	require.NoError(t, err)
	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, id, customer.Input{Name: "Murugan Traders", Phone: "04524567890"})
	require.NoError(t, err)
	require.Equal(t, "Murugan Traders", updated.Name)

	var appErr *common.AppError
	_, err = svc.Update(ctx, uuid.New(), customer.Input{Name: "Ghost"})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)

	require.NoError(t, svc.Delete(ctx, id))
	err = svc.Delete(ctx, id)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestServiceListSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, customer.Input{Name: "Murugan Stores"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, customer.Input{Name: "Lakshmi Agencies"})
	require.NoError(t, err)

	result, err := svc.List(ctx, "murugan", 20, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Total)
	require.Equal(t, "Murugan Stores", result.Items[0].Name)
}
