package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"course-billing/internal/core"
)

// BuildXLSX renders the rows as an Excel workbook with a single sheet.
func BuildXLSX(rows []core.ExportRow) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "documents"
	f.SetSheetName("Sheet1", sheet)

	header := []string{
		"Invoice No", "Kind", "Issued", "Booking", "Customer", "Description",
		"Currency", "Net", "Gross", "VAT", "Status", "Reference",
	}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.InvoiceNumber)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), string(r.Kind))
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.IssuedAt.Format("2006-01-02"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.BookingID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.CustomerName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.Description)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), r.Currency)
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), r.NetAmount.StringFixed(2))
		_ = f.SetCellValue(sheet, fmt.Sprintf("I%d", row), r.GrossAmount.StringFixed(2))
		_ = f.SetCellValue(sheet, fmt.Sprintf("J%d", row), r.VATAmount.StringFixed(2))
		_ = f.SetCellValue(sheet, fmt.Sprintf("K%d", row), r.PaymentStatus)
		_ = f.SetCellValue(sheet, fmt.Sprintf("L%d", row), r.Reference)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
