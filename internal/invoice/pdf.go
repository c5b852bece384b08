package invoice

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/velanstores/backend-kadai/internal/obs"
	"github.com/velanstores/backend-kadai/internal/pricing"
	"github.com/velanstores/backend-kadai/internal/repo"
)

// PDFRenderer turns a stored invoice into a printable A4 document. Amounts
// are rendered in rupees; the core PDF fonts cannot carry the rupee glyph,
// so columns are labelled "Rs" instead.
type PDFRenderer struct {
	CompanyName string
	Address     string
	Footer      string
}

// Render produces the PDF bytes for one invoice.
func (p *PDFRenderer) Render(inv repo.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(120, 10, p.companyName())
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "INVOICE "+inv.Number, "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if p.Address != "" {
		for _, line := range strings.Split(p.Address, "\n") {
			pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 6, "Bill To:")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, inv.CustomerName, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 6, "Issue Date:")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(60, 6, inv.IssueDate.Format(dateLayout), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 6, "Due Date:")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, inv.DueDate.Format(dateLayout), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 6, "Status:")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, strings.ToUpper(inv.Status), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Line item table.
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(60, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Unit", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "Price (Rs)", "1", 0, "R", true, 0, "")
	pdf.CellFormat(20, 7, "Disc (Rs)", "1", 0, "R", true, 0, "")
	pdf.CellFormat(15, 7, "Tax %", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "Total (Rs)", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, item := range inv.Items {
		pdf.CellFormat(60, 7, item.ProductName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, item.UnitName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, item.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, pricing.FormatAmount(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, pricing.FormatAmount(item.Discount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(15, 7, item.TaxRate.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, pricing.FormatAmount(item.Total), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	totals := []struct {
		label string
		value string
	}{
		{"Subtotal", pricing.FormatAmount(inv.Subtotal)},
		{"Tax", pricing.FormatAmount(inv.TaxAmount)},
		{"Discount", pricing.FormatAmount(inv.Discount)},
		{"Total Due (Rs)", pricing.FormatAmount(inv.TotalAmount)},
	}
	for i, row := range totals {
		style := ""
		if i == len(totals)-1 {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(140, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, row.value, "", 1, "R", false, 0, "")
	}

	if inv.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 5, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, inv.Notes, "", "L", false)
	}
	if p.Footer != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, p.Footer, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		recordRender("error")
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	recordRender("ok")
	return buf.Bytes(), nil
}

func (p *PDFRenderer) companyName() string {
	if p.CompanyName != "" {
		return p.CompanyName
	}
	return "Velan Stores"
}

func recordRender(result string) {
	if obs.PDFRenderTotal != nil {
		obs.PDFRenderTotal.WithLabelValues(result).Inc()
	}
}
