package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/velanstores/backend-kadai/internal/common"
	"github.com/velanstores/backend-kadai/internal/events"
	"github.com/velanstores/backend-kadai/internal/obs"
	"github.com/velanstores/backend-kadai/internal/pricing"
	"github.com/velanstores/backend-kadai/internal/repo"
)

const dateLayout = "2006-01-02"

type invoiceStore interface {
	Create(ctx context.Context, inv repo.Invoice) (repo.Invoice, error)
	UpdateDraft(ctx context.Context, inv repo.Invoice) (repo.Invoice, error)
	Get(ctx context.Context, id uuid.UUID) (repo.Invoice, error)
	List(ctx context.Context, status string, limit, offset int) ([]repo.Invoice, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []string, to string) (repo.Invoice, error)
	DeleteDraft(ctx context.Context, id uuid.UUID) error
	MarkOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type productStore interface {
	Get(ctx context.Context, id uuid.UUID) (repo.Product, error)
}

type customerStore interface {
	Get(ctx context.Context, id uuid.UUID) (repo.Customer, error)
}

// Service builds invoices from the live catalog, snapshotting every priced
// field at creation time. Totals always come from the pricing engine; stored
// amounts are caches, never inputs.
type Service struct {
	invoices  invoiceStore
	products  productStore
	customers customerStore
	bus       *events.Bus
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Invoices  invoiceStore
	Products  productStore
	Customers customerStore
	Bus       *events.Bus
	Validate  *validator.Validate
	Logger    zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Invoices == nil {
		return nil, errors.New("invoice: invoice store is required")
	}
	if cfg.Products == nil {
		return nil, errors.New("invoice: product store is required")
	}
	if cfg.Customers == nil {
		return nil, errors.New("invoice: customer store is required")
	}
	validate := cfg.Validate
	if validate == nil {
		validate = validator.New()
	}
	return &Service{
		invoices:  cfg.Invoices,
		products:  cfg.Products,
		customers: cfg.Customers,
		bus:       cfg.Bus,
		validate:  validate,
		log:       cfg.Logger,
		now:       time.Now,
	}, nil
}

// WithNow overrides the clock. Intended for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ItemInput is one line of an invoice write request. Quantity is a decimal
// string and may be fractional; Discount is a flat rupee amount off this
// line; TaxRate is a percentage.
type ItemInput struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	UnitID    string `json:"unit_id" validate:"required,uuid"`
	Quantity  string `json:"quantity" validate:"required"`
	Discount  string `json:"discount"`
	TaxRate   string `json:"tax_rate"`
}

// Input is an invoice create or draft-update request. Dates use the
// YYYY-MM-DD form; Discount is a flat rupee amount off the whole invoice.
type Input struct {
	CustomerID string      `json:"customer_id" validate:"required,uuid"`
	IssueDate  string      `json:"issue_date" validate:"required"`
	DueDate    string      `json:"due_date" validate:"required"`
	Discount   string      `json:"discount"`
	Notes      string      `json:"notes" validate:"max=2000"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// ItemView is one stored invoice line with its snapshots.
type ItemView struct {
	ID          string  `json:"id"`
	ProductID   *string `json:"product_id,omitempty"`
	ProductName string  `json:"product_name"`
	UnitID      *string `json:"unit_id,omitempty"`
	UnitName    string  `json:"unit_name"`
	UnitPrice   string  `json:"unit_price"`
	Quantity    string  `json:"quantity"`
	Discount    string  `json:"discount"`
	TaxRate     string  `json:"tax_rate"`
	Total       string  `json:"total"`
}

// View is the invoice payload returned to the back office. Amounts are rupee
// strings.
type View struct {
	ID           string     `json:"id"`
	Number       string     `json:"number"`
	CustomerID   *string    `json:"customer_id,omitempty"`
	CustomerName string     `json:"customer_name"`
	Status       string     `json:"status"`
	IssueDate    string     `json:"issue_date"`
	DueDate      string     `json:"due_date"`
	Discount     string     `json:"discount"`
	Subtotal     string     `json:"subtotal"`
	TaxAmount    string     `json:"tax_amount"`
	TotalAmount  string     `json:"total_amount"`
	Notes        string     `json:"notes,omitempty"`
	Items        []ItemView `json:"items"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ListResult carries one listing page.
type ListResult struct {
	Items []View
	Total int64
}

// Create snapshots the catalog state into a new draft invoice.
func (s *Service) Create(ctx context.Context, input Input) (View, error) {
	record, err := s.build(ctx, input)
	if err != nil {
		return View{}, err
	}
	created, err := s.invoices.Create(ctx, record)
	if err != nil {
		return View{}, fmt.Errorf("create invoice: %w", err)
	}
	if obs.InvoicesCreatedTotal != nil {
		obs.InvoicesCreatedTotal.Inc()
	}
	if obs.InvoiceTotalPaise != nil {
		obs.InvoiceTotalPaise.Observe(float64(created.TotalAmount))
	}
	s.emit(ctx, events.TopicInvoiceCreated, created.ID, map[string]any{
		"number": created.Number,
		"total":  pricing.FormatAmount(created.TotalAmount),
	})
	return toView(created), nil
}

// UpdateDraft rebuilds a draft invoice from fresh catalog state. Lines are
// re-snapshotted, so a draft edit picks up price changes; sent invoices
// never do.
func (s *Service) UpdateDraft(ctx context.Context, id uuid.UUID, input Input) (View, error) {
	existing, err := s.get(ctx, id)
	if err != nil {
		return View{}, err
	}
	if existing.Status != repo.InvoiceStatusDraft {
		return View{}, common.Conflict("only draft invoices can be edited")
	}
	record, err := s.build(ctx, input)
	if err != nil {
		return View{}, err
	}
	record.ID = id
	record.Number = existing.Number
	updated, err := s.invoices.UpdateDraft(ctx, record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, common.Conflict("only draft invoices can be edited")
		}
		return View{}, fmt.Errorf("update invoice: %w", err)
	}
	return toView(updated), nil
}

// Get returns one invoice with its lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	inv, err := s.get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return toView(inv), nil
}

// List returns invoices, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string, limit, offset int) (ListResult, error) {
	status = strings.TrimSpace(strings.ToLower(status))
	if status != "" && !validStatus(status) {
		return ListResult{}, common.BadRequest("status", "unknown invoice status")
	}
	rows, total, err := s.invoices.List(ctx, status, limit, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("list invoices: %w", err)
	}
	items := make([]View, 0, len(rows))
	for _, row := range rows {
		items = append(items, toView(row))
	}
	return ListResult{Items: items, Total: total}, nil
}

// Send marks a draft invoice as sent.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (View, error) {
	return s.transition(ctx, id, []string{repo.InvoiceStatusDraft}, repo.InvoiceStatusSent)
}

// Pay marks a sent or overdue invoice as paid.
func (s *Service) Pay(ctx context.Context, id uuid.UUID) (View, error) {
	return s.transition(ctx, id, []string{repo.InvoiceStatusSent, repo.InvoiceStatusOverdue}, repo.InvoiceStatusPaid)
}

// Cancel voids a draft or sent invoice.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (View, error) {
	return s.transition(ctx, id, []string{repo.InvoiceStatusDraft, repo.InvoiceStatusSent}, repo.InvoiceStatusCancelled)
}

// DeleteDraft removes a draft invoice entirely. Anything already sent can
// only be cancelled, keeping the number sequence auditable.
func (s *Service) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	existing, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status != repo.InvoiceStatusDraft {
		return common.Conflict("only draft invoices can be deleted")
	}
	if err := s.invoices.DeleteDraft(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Conflict("only draft invoices can be deleted")
		}
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// SweepOverdue flips sent invoices past their due date to overdue and
// reports how many changed. The worker runs it on a schedule.
func (s *Service) SweepOverdue(ctx context.Context) (int, error) {
	ids, err := s.invoices.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep overdue: %w", err)
	}
	for _, id := range ids {
		if obs.OverdueSweepTotal != nil {
			obs.OverdueSweepTotal.Inc()
		}
		if obs.InvoiceStatusTotal != nil {
			obs.InvoiceStatusTotal.WithLabelValues(repo.InvoiceStatusOverdue).Inc()
		}
		s.emit(ctx, events.TopicInvoiceOverdue, id, map[string]any{"status": repo.InvoiceStatusOverdue})
	}
	return len(ids), nil
}

// Raw returns the stored invoice record, for renderers that need exact
// paise amounts rather than the formatted view.
func (s *Service) Raw(ctx context.Context, id uuid.UUID) (repo.Invoice, error) {
	return s.get(ctx, id)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from []string, to string) (View, error) {
	updated, err := s.invoices.UpdateStatus(ctx, id, from, to)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, getErr := s.get(ctx, id)
			if getErr != nil {
				return View{}, getErr
			}
			return View{}, common.Conflict(fmt.Sprintf("cannot move %s invoice to %s", existing.Status, to))
		}
		return View{}, fmt.Errorf("update invoice status: %w", err)
	}
	if obs.InvoiceStatusTotal != nil {
		obs.InvoiceStatusTotal.WithLabelValues(to).Inc()
	}
	s.emit(ctx, events.TopicInvoiceStatusChanged, id, map[string]any{
		"number": updated.Number,
		"status": to,
	})
	return toView(updated), nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (repo.Invoice, error) {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Invoice{}, common.NotFound("invoice not found")
		}
		return repo.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// build validates the request and resolves every line against the live
// catalog, producing a fully snapshotted record with engine-computed totals.
func (s *Service) build(ctx context.Context, input Input) (repo.Invoice, error) {
	if err := s.validate.Struct(input); err != nil {
		return repo.Invoice{}, common.ValidationFailed(common.ValidationProblems(err))
	}
	var problems []string

	issueDate, err := time.Parse(dateLayout, input.IssueDate)
	if err != nil {
		problems = append(problems, "issue_date must use the YYYY-MM-DD form")
	}
	dueDate, err := time.Parse(dateLayout, input.DueDate)
	if err != nil {
		problems = append(problems, "due_date must use the YYYY-MM-DD form")
	} else if !issueDate.IsZero() && dueDate.Before(issueDate) {
		problems = append(problems, "due_date must not be before issue_date")
	}

	discount, err := parseOptionalAmount(input.Discount)
	if err != nil || discount < 0 {
		problems = append(problems, "discount must be a non-negative amount")
	}

	customerID, err := uuid.Parse(input.CustomerID)
	var cust repo.Customer
	if err != nil {
		problems = append(problems, "customer_id must be a valid uuid")
	} else {
		cust, err = s.customers.Get(ctx, customerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				problems = append(problems, "customer not found")
			} else {
				return repo.Invoice{}, fmt.Errorf("get customer: %w", err)
			}
		}
	}

	items := make([]repo.InvoiceItem, 0, len(input.Items))
	lines := make([]pricing.LineItem, 0, len(input.Items))
	for i, in := range input.Items {
		item, line, itemProblems, err := s.buildItem(ctx, i, in)
		if err != nil {
			return repo.Invoice{}, err
		}
		if len(itemProblems) > 0 {
			problems = append(problems, itemProblems...)
			continue
		}
		items = append(items, item)
		lines = append(lines, line)
	}
	if len(problems) > 0 {
		return repo.Invoice{}, common.ValidationFailed(problems)
	}

	summary := pricing.InvoiceTotals(lines, discount)
	return repo.Invoice{
		CustomerID:   &customerID,
		CustomerName: cust.Name,
		Status:       repo.InvoiceStatusDraft,
		IssueDate:    issueDate,
		DueDate:      dueDate,
		Discount:     discount,
		Subtotal:     summary.Subtotal,
		TaxAmount:    summary.Tax,
		TotalAmount:  summary.Total,
		Notes:        strings.TrimSpace(input.Notes),
		Items:        items,
	}, nil
}

func (s *Service) buildItem(ctx context.Context, i int, in ItemInput) (repo.InvoiceItem, pricing.LineItem, []string, error) {
	var problems []string

	quantity, err := decimal.NewFromString(in.Quantity)
	if err != nil || !quantity.IsPositive() {
		problems = append(problems, fmt.Sprintf("items[%d].quantity must be a positive decimal", i))
	}
	discount, err := parseOptionalAmount(in.Discount)
	if err != nil || discount < 0 {
		problems = append(problems, fmt.Sprintf("items[%d].discount must be a non-negative amount", i))
	}
	taxRate := decimal.Zero
	if strings.TrimSpace(in.TaxRate) != "" {
		taxRate, err = decimal.NewFromString(in.TaxRate)
		if err != nil || taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(100)) {
			problems = append(problems, fmt.Sprintf("items[%d].tax_rate must be between 0 and 100", i))
		}
	}

	productID, err := uuid.Parse(in.ProductID)
	if err != nil {
		problems = append(problems, fmt.Sprintf("items[%d].product_id must be a valid uuid", i))
		return repo.InvoiceItem{}, pricing.LineItem{}, problems, nil
	}
	unitID, err := uuid.Parse(in.UnitID)
	if err != nil {
		problems = append(problems, fmt.Sprintf("items[%d].unit_id must be a valid uuid", i))
		return repo.InvoiceItem{}, pricing.LineItem{}, problems, nil
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			problems = append(problems, fmt.Sprintf("items[%d].product_id references an unknown product", i))
			return repo.InvoiceItem{}, pricing.LineItem{}, problems, nil
		}
		return repo.InvoiceItem{}, pricing.LineItem{}, nil, fmt.Errorf("get product: %w", err)
	}
	var unit *repo.ProductUnit
	for idx := range product.Units {
		if product.Units[idx].ID == unitID {
			unit = &product.Units[idx]
			break
		}
	}
	if unit == nil {
		problems = append(problems, fmt.Sprintf("items[%d].unit_id does not belong to the product", i))
	}
	if len(problems) > 0 {
		return repo.InvoiceItem{}, pricing.LineItem{}, problems, nil
	}

	unitPrice := pricing.UnitPrice(product.BasePrice, pricing.Unit{
		BaseQuantity:    unit.BaseQuantity,
		PriceMultiplier: unit.PriceMultiplier,
	})
	line := pricing.LineItem{
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Discount:  discount,
		TaxRate:   taxRate,
	}
	item := repo.InvoiceItem{
		ProductID:   &product.ID,
		ProductName: product.Name,
		UnitID:      &unit.ID,
		UnitName:    unit.Name,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		Discount:    discount,
		TaxRate:     taxRate,
		Total:       pricing.ItemTotal(line),
	}
	return item, line, nil, nil
}

func (s *Service) emit(ctx context.Context, topic string, id uuid.UUID, payload any) {
	if s.bus == nil {
		return
	}
	if _, err := s.bus.Emit(ctx, topic, id, payload); err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Str("invoice_id", id.String()).Msg("emit event")
	}
}

func parseOptionalAmount(value string) (pricing.Money, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return pricing.ParseAmount(value)
}

func validStatus(status string) bool {
	switch status {
	case repo.InvoiceStatusDraft, repo.InvoiceStatusSent, repo.InvoiceStatusPaid,
		repo.InvoiceStatusOverdue, repo.InvoiceStatusCancelled:
		return true
	}
	return false
}

func toView(inv repo.Invoice) View {
	view := View{
		ID:           inv.ID.String(),
		Number:       inv.Number,
		CustomerName: inv.CustomerName,
		Status:       inv.Status,
		IssueDate:    inv.IssueDate.Format(dateLayout),
		DueDate:      inv.DueDate.Format(dateLayout),
		Discount:     pricing.FormatAmount(inv.Discount),
		Subtotal:     pricing.FormatAmount(inv.Subtotal),
		TaxAmount:    pricing.FormatAmount(inv.TaxAmount),
		TotalAmount:  pricing.FormatAmount(inv.TotalAmount),
		Notes:        inv.Notes,
		Items:        make([]ItemView, 0, len(inv.Items)),
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
	if inv.CustomerID != nil {
		id := inv.CustomerID.String()
		view.CustomerID = &id
	}
	for _, item := range inv.Items {
		iv := ItemView{
			ID:          item.ID.String(),
			ProductName: item.ProductName,
			UnitName:    item.UnitName,
			UnitPrice:   pricing.FormatAmount(item.UnitPrice),
			Quantity:    item.Quantity.String(),
			Discount:    pricing.FormatAmount(item.Discount),
			TaxRate:     item.TaxRate.String(),
			Total:       pricing.FormatAmount(item.Total),
		}
		if item.ProductID != nil {
			id := item.ProductID.String()
			iv.ProductID = &id
		}
		if item.UnitID != nil {
			id := item.UnitID.String()
			iv.UnitID = &id
		}
		view.Items = append(view.Items, iv)
	}
	return view
}
