package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"course-billing/internal/core"
)

// pdfEpoch pins the PDF creation and modification dates so a re-rendered
// document is byte-identical to the original.
var pdfEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

var pdfHeadings = map[core.DocumentKind]string{
	core.DocParticipation: "Participation Confirmation",
	core.DocCancellation:  "Cancellation Confirmation",
	core.DocStorno:        "Credit Note",
}

// BuildDocumentPDF renders one billing document as a single-page PDF.
func BuildDocumentPDF(r core.ExportRow) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, pdfHeadings[r.Kind])
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, r.SupplierName)
	pdf.Ln(5)
	pdf.Cell(0, 6, r.SupplierAddress)
	pdf.Ln(10)

	pdf.Cell(0, 6, r.CustomerName)
	pdf.Ln(5)
	if r.CustomerAddress != "" {
		pdf.Cell(0, 6, r.CustomerAddress)
		pdf.Ln(5)
	}
	pdf.Ln(6)

	pdf.Cell(0, 6, fmt.Sprintf("Invoice No: %d", r.InvoiceNumber))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", r.IssuedAt.Format("2006-01-02")))
	pdf.Ln(5)
	if r.Reference != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Reference to invoice: %s", r.Reference))
		pdf.Ln(5)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(130, 6, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, fmt.Sprintf("Amount (%s)", r.Currency), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(130, 6, r.Description, "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, r.GrossAmount.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(10)

	pdf.Cell(0, 6, "VAT-exempt service. Net amount equals gross amount.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
