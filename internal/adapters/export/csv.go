// Package export serializes the flattened document listing into the ledger
// interchange formats (CSV, DATEV, XLSX) and document bundles (PDF, ZIP).
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"course-billing/internal/core"
)

var csvHeader = []string{
	"invoice_number", "document_id", "kind", "issued_at", "booking_id",
	"customer_name", "customer_address", "supplier_name", "supplier_address",
	"description", "currency", "net_amount", "gross_amount", "vat_rate",
	"vat_amount", "payment_method", "payment_status", "reference",
}

// BuildCSV renders the rows as RFC 4180 CSV with a fixed header. Output is
// deterministic for a given input order.
func BuildCSV(rows []core.ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.InvoiceNumber, 10),
			r.DocumentID,
			string(r.Kind),
			r.IssuedAt.Format("2006-01-02"),
			r.BookingID,
			r.CustomerName,
			r.CustomerAddress,
			r.SupplierName,
			r.SupplierAddress,
			r.Description,
			r.Currency,
			r.NetAmount.StringFixed(2),
			r.GrossAmount.StringFixed(2),
			r.VATRate.StringFixed(2),
			r.VATAmount.StringFixed(2),
			r.PaymentMethod,
			r.PaymentStatus,
			r.Reference,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", r.InvoiceNumber, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
