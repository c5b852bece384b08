package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/velanstores/backend-kadai/internal/common"
	"github.com/velanstores/backend-kadai/internal/events"
	"github.com/velanstores/backend-kadai/internal/pricing"
	"github.com/velanstores/backend-kadai/internal/repo"
)

// EmailNotifier mails the customer when their invoice goes out or falls
// overdue. It subscribes to the events bus, so delivery failures surface in
// logs without touching the write path.
type EmailNotifier struct {
	Mail      common.EmailSender
	Invoices  invoiceStore
	Customers customerStore
	Enabled   bool
	Log       zerolog.Logger
}

// Notify implements events.Notifier.
func (n EmailNotifier) Notify(ctx context.Context, ev repo.DomainEvent) error {
	if !n.Enabled || n.Mail == nil || n.Invoices == nil || n.Customers == nil {
		return nil
	}

	var subject string
	switch ev.Topic {
	case events.TopicInvoiceStatusChanged:
		var payload struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.Status != repo.InvoiceStatusSent {
			return nil
		}
		subject = "Your invoice from Velan Stores"
	case events.TopicInvoiceOverdue:
		subject = "Payment reminder from Velan Stores"
	default:
		return nil
	}

	inv, err := n.Invoices.Get(ctx, ev.AggregateID)
	if err != nil {
		return fmt.Errorf("load invoice for notification: %w", err)
	}
	if inv.CustomerID == nil {
		return nil
	}
	cust, err := n.Customers.Get(ctx, *inv.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer for notification: %w", err)
	}
	if strings.TrimSpace(cust.Email) == "" {
		return nil
	}

	msg := common.EmailMessage{
		To:      cust.Email,
		Subject: fmt.Sprintf("%s (%s)", subject, inv.Number),
		Body: fmt.Sprintf("Dear %s,\n\nInvoice %s for Rs %s is due on %s.\n\nVelan Stores",
			inv.CustomerName, inv.Number, pricing.FormatAmount(inv.TotalAmount), inv.DueDate.Format(dateLayout)),
	}
	if err := n.Mail.Send(ctx, msg); err != nil {
		n.Log.Error().Err(err).Str("invoice", inv.Number).Msg("send invoice email")
		return err
	}
	return nil
}
