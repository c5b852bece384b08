package events

// Topics emitted by the invoice lifecycle. Payloads are JSON snapshots of
// the fields a notifier needs, never live references.
const (
	TopicInvoiceCreated       = "invoice.created"
	TopicInvoiceStatusChanged = "invoice.status_changed"
	TopicInvoiceOverdue       = "invoice.overdue"
)
