package invoice_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/velanstores/backend-kadai/internal/invoice"
	"github.com/velanstores/backend-kadai/internal/repo"
)

func TestPDFRendererRender(t *testing.T) {
	renderer := &invoice.PDFRenderer{
		CompanyName: "Velan Stores",
		Address:     "12 Car Street\nMadurai 625001",
		Footer:      "Thank you for your business",
	}
	inv := repo.Invoice{
		ID:           uuid.New(),
		Number:       "INV-2026-0042",
		CustomerName: "Murugan Stores",
		Status:       repo.InvoiceStatusSent,
		IssueDate:    time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC),
		Subtotal:     3840000,
		TaxAmount:    691200,
		TotalAmount:  4531200,
		Notes:        "Deliver before Pongal",
		Items: []repo.InvoiceItem{
			{
				ProductName: "Camphor Tablets",
				UnitName:    "Box",
				UnitPrice:   1920000,
				Quantity:    dec(t, "2"),
				TaxRate:     dec(t, "18"),
				Total:       4531200,
			},
		},
	}

	data, err := renderer.Render(inv)
	require.NoError(t, err)
	require.True(t, len(data) > 500)
	require.Equal(t, "%PDF", string(data[:4]))
}
