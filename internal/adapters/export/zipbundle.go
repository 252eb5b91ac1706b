package export

import (
	"archive/zip"
	"bytes"
	"fmt"

	"course-billing/internal/core"
)

// BuildZIP bundles one rendered PDF per row. Member names are keyed by
// invoice number and kind, timestamps are pinned to pdfEpoch, so the archive
// bytes are deterministic for a given row order.
func BuildZIP(rows []core.ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, r := range rows {
		pdfBytes, err := BuildDocumentPDF(r)
		if err != nil {
			return nil, fmt.Errorf("render document %s: %w", r.DocumentID, err)
		}

		hdr := &zip.FileHeader{
			Name:     fmt.Sprintf("%06d_%s.pdf", r.InvoiceNumber, r.Kind),
			Method:   zip.Deflate,
			Modified: pdfEpoch,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("create zip entry for %s: %w", r.DocumentID, err)
		}
		if _, err := w.Write(pdfBytes); err != nil {
			return nil, fmt.Errorf("write zip entry for %s: %w", r.DocumentID, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}
