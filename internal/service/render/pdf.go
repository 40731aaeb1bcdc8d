// Package render produces the printable invoice document attached to emails
// and served for download.
package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

const (
	pageFont    = "Helvetica"
	labelWidth  = 70
	valueWidth  = 110
	rowHeight   = 8
	companyName = "Animal Farm"
)

// PDFRenderer renders invoices as single page A4 PDFs.
type PDFRenderer struct {
	companyName string
}

// NewPDFRenderer returns a renderer that prints companyName in the header.
// An empty name falls back to the farm's default.
func NewPDFRenderer(company string) *PDFRenderer {
	if company == "" {
		company = companyName
	}
	return &PDFRenderer{companyName: company}
}

// RenderInvoice lays out the invoice snapshot. Output is deterministic for a
// given invoice.
func (r *PDFRenderer) RenderInvoice(invoice models.OwnerInvoice) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Catalog entries are written in map order unless sorted.
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(invoice.CreatedAt)
	pdf.SetModificationDate(invoice.CreatedAt)
	pdf.SetTitle(fmt.Sprintf("Invoice %s", invoice.ID), true)
	pdf.SetAuthor(r.companyName, true)
	pdf.AddPage()

	pdf.SetFont(pageFont, "B", 18)
	pdf.CellFormat(0, 12, r.companyName+" - Monthly Invoice", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(pageFont, "", 11)
	field(pdf, "Invoice", invoice.ID)
	field(pdf, "Period", invoice.Period.String())
	field(pdf, "Owner ID", invoice.OwnerID)
	field(pdf, "Owner", invoice.OwnerFirstName)
	field(pdf, "Email", invoice.OwnerEmail)
	field(pdf, "Issued", invoice.CreatedAt.UTC().Format("2006-01-02"))
	pdf.Ln(4)

	pdf.SetFont(pageFont, "B", 12)
	pdf.CellFormat(labelWidth, rowHeight, "Livestock", "B", 0, "L", false, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, "Head count", "B", 1, "R", false, 0, "")
	pdf.SetFont(pageFont, "", 11)
	for _, t := range models.AnimalTypes {
		pdf.CellFormat(labelWidth, rowHeight, string(t), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, strconv.FormatInt(invoice.Counts.Of(t), 10), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	amount(pdf, "Current charge", invoice.CurrentCharge, false)
	amount(pdf, "Previous unpaid balance", invoice.PreviousUnpaidBalance, false)
	amount(pdf, "Total due", invoice.TotalDue, true)
	pdf.Ln(4)

	status := "UNPAID"
	if invoice.Paid {
		status = "PAID"
	}
	field(pdf, "Status", status)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", invoice.ID, err)
	}
	return buf.Bytes(), nil
}

func field(pdf *fpdf.Fpdf, label, value string) {
	pdf.CellFormat(labelWidth, rowHeight, label+":", "", 0, "L", false, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, value, "", 1, "L", false, 0, "")
}

func amount(pdf *fpdf.Fpdf, label string, value decimal.Decimal, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont(pageFont, style, 11)
	pdf.CellFormat(labelWidth, rowHeight, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, value.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetFont(pageFont, "", 11)
}
