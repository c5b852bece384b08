package repo

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is a catalog grouping, optionally nested under a parent.
type Category struct {
	ID       uuid.UUID
	Slug     string
	Name     string
	ParentID *uuid.UUID
}

// ProductUnit is a named measure a product can be sold in. BaseQuantity is
// how many base units (grams, sticks) one of this unit contains;
// PriceMultiplier scales the product base price into this unit's price.
type ProductUnit struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	Name            string
	Abbreviation    string
	BaseQuantity    decimal.Decimal
	PriceMultiplier decimal.Decimal
	IsDefault       bool
}

// Product is a sellable catalog entry. BasePrice is paise per one BaseUnit.
type Product struct {
	ID          uuid.UUID
	Slug        string
	Name        string
	Description string
	CategoryID  *uuid.UUID
	BasePrice   int64
	BaseUnit    string
	ImageURL    *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Units       []ProductUnit
}

// Customer is an address-book entry for invoicing.
type Customer struct {
	ID         uuid.UUID
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Invoice lifecycle statuses. Transitions are recorded by admin action; the
// overdue sweep is the only automatic transition.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// InvoiceItem is one invoice line. Product and unit fields are point-in-time
// snapshots taken at invoice creation; later catalog edits never reach them.
type InvoiceItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	ProductID   *uuid.UUID
	ProductName string
	UnitID      *uuid.UUID
	UnitName    string
	UnitPrice   int64
	Quantity    decimal.Decimal
	Discount    int64
	TaxRate     decimal.Decimal
	Total       int64
}

// Invoice aggregates line items with invoice-level discount and derived
// totals. Stored totals are caches recomputed through the pricing engine on
// every write.
type Invoice struct {
	ID           uuid.UUID
	Number       string
	CustomerID   *uuid.UUID
	CustomerName string
	Status       string
	IssueDate    time.Time
	DueDate      time.Time
	Discount     int64
	Subtotal     int64
	TaxAmount    int64
	TotalAmount  int64
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Items        []InvoiceItem
}

// AdminUser is a back-office account allowed through the auth gate.
type AdminUser struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DomainEvent is a persisted event record fanned out by the event bus.
type DomainEvent struct {
	ID          uuid.UUID
	Topic       string
	AggregateID uuid.UUID
	Payload     []byte
	OccurredAt  time.Time
}
