package invoice_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/velanstores/backend-kadai/internal/common"
	"github.com/velanstores/backend-kadai/internal/events"
	"github.com/velanstores/backend-kadai/internal/invoice"
	"github.com/velanstores/backend-kadai/internal/repo"
)

type fakeInvoices struct {
	items map[uuid.UUID]repo.Invoice
	seq   int
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{items: map[uuid.UUID]repo.Invoice{}}
}

func (f *fakeInvoices) Create(_ context.Context, inv repo.Invoice) (repo.Invoice, error) {
	f.seq++
	inv.ID = uuid.New()
	inv.Number = fmt.Sprintf("INV-%d-%04d", inv.IssueDate.Year(), f.seq)
	inv.Status = repo.InvoiceStatusDraft
	for i := range inv.Items {
		inv.Items[i].ID = uuid.New()
		inv.Items[i].InvoiceID = inv.ID
	}
	f.items[inv.ID] = inv
	return inv, nil
}

func (f *fakeInvoices) UpdateDraft(_ context.Context, inv repo.Invoice) (repo.Invoice, error) {
	existing, ok := f.items[inv.ID]
	if !ok || existing.Status != repo.InvoiceStatusDraft {
		return repo.Invoice{}, pgx.ErrNoRows
	}
	inv.Status = existing.Status
	f.items[inv.ID] = inv
	return inv, nil
}

func (f *fakeInvoices) Get(_ context.Context, id uuid.UUID) (repo.Invoice, error) {
	inv, ok := f.items[id]
	if !ok {
		return repo.Invoice{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (f *fakeInvoices) List(_ context.Context, status string, limit, offset int) ([]repo.Invoice, int64, error) {
	var rows []repo.Invoice
	for _, inv := range f.items {
		if status != "" && inv.Status != status {
			continue
		}
		rows = append(rows, inv)
	}
	return rows, int64(len(rows)), nil
}

func (f *fakeInvoices) UpdateStatus(_ context.Context, id uuid.UUID, from []string, to string) (repo.Invoice, error) {
	inv, ok := f.items[id]
	if !ok {
		return repo.Invoice{}, pgx.ErrNoRows
	}
	allowed := false
	for _, s := range from {
		if inv.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return repo.Invoice{}, pgx.ErrNoRows
	}
	inv.Status = to
	f.items[id] = inv
	return inv, nil
}

func (f *fakeInvoices) DeleteDraft(_ context.Context, id uuid.UUID) error {
	inv, ok := f.items[id]
	if !ok || inv.Status != repo.InvoiceStatusDraft {
		return pgx.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

func (f *fakeInvoices) MarkOverdue(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, inv := range f.items {
		if inv.Status == repo.InvoiceStatusSent && inv.DueDate.Before(now) {
			inv.Status = repo.InvoiceStatusOverdue
			f.items[id] = inv
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeProducts struct {
	items map[uuid.UUID]repo.Product
}

func (f *fakeProducts) Get(_ context.Context, id uuid.UUID) (repo.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return repo.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

type fakeCustomers struct {
	items map[uuid.UUID]repo.Customer
}

func (f *fakeCustomers) Get(_ context.Context, id uuid.UUID) (repo.Customer, error) {
	c, ok := f.items[id]
	if !ok {
		return repo.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

type captureStore struct {
	events []repo.DomainEvent
}

func (c *captureStore) Insert(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (repo.DomainEvent, error) {
	event := repo.DomainEvent{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	c.events = append(c.events, event)
	return event, nil
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

type fixture struct {
	svc       *invoice.Service
	invoices  *fakeInvoices
	products  *fakeProducts
	customers *fakeCustomers
	store     *captureStore

	camphor  repo.Product
	gramUnit uuid.UUID
	boxUnit  uuid.UUID
	customer repo.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		invoices: newFakeInvoices(),
		store:    &captureStore{},
	}

	productID := uuid.New()
	f.gramUnit = uuid.New()
	f.boxUnit = uuid.New()
	f.camphor = repo.Product{
		ID:        productID,
		Slug:      "camphor-tablets",
		Name:      "Camphor Tablets",
		BasePrice: 4000,
		BaseUnit:  "g",
		IsActive:  true,
		Units: []repo.ProductUnit{
			{ID: f.gramUnit, ProductID: productID, Name: "Gram", Abbreviation: "g",
				BaseQuantity: dec(t, "1"), PriceMultiplier: dec(t, "1"), IsDefault: true},
			{ID: f.boxUnit, ProductID: productID, Name: "Box", Abbreviation: "box",
				BaseQuantity: dec(t, "500"), PriceMultiplier: dec(t, "480")},
		},
	}
	f.products = &fakeProducts{items: map[uuid.UUID]repo.Product{productID: f.camphor}}

	f.customer = repo.Customer{ID: uuid.New(), Name: "Murugan Stores"}
	f.customers = &fakeCustomers{items: map[uuid.UUID]repo.Customer{f.customer.ID: f.customer}}

	svc, err := invoice.NewService(invoice.ServiceConfig{
		Invoices:  f.invoices,
		Products:  f.products,
		Customers: f.customers,
		Bus:       &events.Bus{Store: f.store},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) validInput() invoice.Input {
	return invoice.Input{
		CustomerID: f.customer.ID.String(),
		IssueDate:  "2026-01-15",
		DueDate:    "2026-02-14",
		Items: []invoice.ItemInput{
			{
				ProductID: f.camphor.ID.String(),
				UnitID:    f.boxUnit.String(),
				Quantity:  "2",
				TaxRate:   "18",
			},
		},
	}
}

func TestServiceCreateComputesTotals(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.Create(context.Background(), f.validInput())
	require.NoError(t, err)

	require.Equal(t, "INV-2026-0001", view.Number)
	require.Equal(t, "draft", view.Status)
	require.Equal(t, "Murugan Stores", view.CustomerName)
	require.Len(t, view.Items, 1)

	// 40.00 per gram scaled by the box multiplier of 480.
	item := view.Items[0]
	require.Equal(t, "Camphor Tablets", item.ProductName)
	require.Equal(t, "Box", item.UnitName)
	require.Equal(t, "19200.00", item.UnitPrice)
	require.Equal(t, "45312.00", item.Total)

	require.Equal(t, "38400.00", view.Subtotal)
	require.Equal(t, "6912.00", view.TaxAmount)
	require.Equal(t, "45312.00", view.TotalAmount)

	require.Len(t, f.store.events, 1)
	require.Equal(t, events.TopicInvoiceCreated, f.store.events[0].Topic)
}

func TestServiceCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*invoice.Input)
	}{
		{"unknown customer", func(in *invoice.Input) { in.CustomerID = uuid.NewString() }},
		{"unknown product", func(in *invoice.Input) { in.Items[0].ProductID = uuid.NewString() }},
		{"foreign unit", func(in *invoice.Input) { in.Items[0].UnitID = uuid.NewString() }},
		{"zero quantity", func(in *invoice.Input) { in.Items[0].Quantity = "0" }},
		{"negative quantity", func(in *invoice.Input) { in.Items[0].Quantity = "-1" }},
		{"tax over 100", func(in *invoice.Input) { in.Items[0].TaxRate = "101" }},
		{"negative discount", func(in *invoice.Input) { in.Items[0].Discount = "-5.00" }},
		{"bad issue date", func(in *invoice.Input) { in.IssueDate = "15/01/2026" }},
		{"due before issue", func(in *invoice.Input) { in.DueDate = "2026-01-01" }},
		{"no items", func(in *invoice.Input) { in.Items = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := f.validInput()
			tc.mutate(&input)
			_, err := f.svc.Create(ctx, input)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
}

func TestServiceSnapshotsSurvivePriceChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.validInput())
	require.NoError(t, err)
	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	// Catalog price doubles after the invoice exists.
	p := f.products.items[f.camphor.ID]
	p.BasePrice = 8000
	f.products.items[f.camphor.ID] = p

	fetched, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "19200.00", fetched.Items[0].UnitPrice)
	require.Equal(t, "45312.00", fetched.TotalAmount)

	// A draft edit re-resolves against the live catalog.
	updated, err := f.svc.UpdateDraft(ctx, id, f.validInput())
	require.NoError(t, err)
	require.Equal(t, "38400.00", updated.Items[0].UnitPrice)
	require.Equal(t, created.Number, updated.Number)
}

func TestServiceLineAndInvoiceDiscounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := f.validInput()
	input.Items[0].Quantity = "1"
	input.Items[0].Discount = "200.00"
	input.Discount = "112.00"

	view, err := f.svc.Create(ctx, input)
	require.NoError(t, err)

	// Line: 19200.00 minus 200.00 discount, then 18% tax on the remainder.
	require.Equal(t, "22420.00", view.Items[0].Total)
	require.Equal(t, "19200.00", view.Subtotal)
	require.Equal(t, "3420.00", view.TaxAmount)
	// Invoice discount comes off the payable total after tax.
	require.Equal(t, "22308.00", view.TotalAmount)
}

func TestServiceStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.validInput())
	require.NoError(t, err)
	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	sent, err := f.svc.Send(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "sent", sent.Status)

	var appErr *common.AppError
	_, err = f.svc.Send(ctx, id)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)

	// Sent invoices cannot be edited or deleted.
	_, err = f.svc.UpdateDraft(ctx, id, f.validInput())
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)
	err = f.svc.DeleteDraft(ctx, id)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)

	paid, err := f.svc.Pay(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "paid", paid.Status)

	_, err = f.svc.Cancel(ctx, id)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONFLICT", appErr.Code)

	_, err = f.svc.Send(ctx, uuid.New())
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestServiceDeleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.validInput())
	require.NoError(t, err)
	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteDraft(ctx, id))

	var appErr *common.AppError
	err = f.svc.DeleteDraft(ctx, id)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestServiceSweepOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	overdueInput := f.validInput()
	overdueInput.IssueDate = "2026-01-01"
	overdueInput.DueDate = "2026-01-31"
	first, err := f.svc.Create(ctx, overdueInput)
	require.NoError(t, err)
	firstID, err := uuid.Parse(first.ID)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, firstID)
	require.NoError(t, err)

	currentInput := f.validInput()
	currentInput.DueDate = "2026-12-31"
	second, err := f.svc.Create(ctx, currentInput)
	require.NoError(t, err)
	secondID, err := uuid.Parse(second.ID)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, secondID)
	require.NoError(t, err)

	f.svc.WithNow(func() time.Time {
		return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	})
	count, err := f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	flipped, err := f.svc.Get(ctx, firstID)
	require.NoError(t, err)
	require.Equal(t, "overdue", flipped.Status)
	untouched, err := f.svc.Get(ctx, secondID)
	require.NoError(t, err)
	require.Equal(t, "sent", untouched.Status)

	var overdueEvents []repo.DomainEvent
	for _, ev := range f.store.events {
		if ev.Topic == events.TopicInvoiceOverdue {
			overdueEvents = append(overdueEvents, ev)
		}
	}
	require.Len(t, overdueEvents, 1)
	require.Equal(t, firstID, overdueEvents[0].AggregateID)
	require.Contains(t, string(overdueEvents[0].Payload), `"overdue"`)

	// Overdue invoices can still be paid.
	paid, err := f.svc.Pay(ctx, firstID)
	require.NoError(t, err)
	require.Equal(t, "paid", paid.Status)

	// Second sweep finds nothing new.
	count, err = f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}
