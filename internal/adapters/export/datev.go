package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"course-billing/internal/core"
)

// DATEV "Buchungsstapel" flavor: an EXTF preamble line, a column header and
// semicolon-separated records with German decimal commas. Accounting tools
// only read the columns listed here; everything else stays empty.

const datevColumns = "Umsatz (ohne Soll/Haben-Kz);Soll/Haben-Kennzeichen;WKZ Umsatz;Belegdatum;Belegfeld 1;Belegfeld 2;Buchungstext;Gegenkonto"

// BuildDATEV renders the rows as a DATEV-style posting batch. The preamble
// carries the covered date range so imports can be matched to a period.
func BuildDATEV(rows []core.ExportRow) ([]byte, error) {
	var buf bytes.Buffer

	from, to := dateRange(rows)
	fmt.Fprintf(&buf, "EXTF;700;21;Buchungsstapel;13;%s;%s;RE\r\n",
		from.Format("20060102"), to.Format("20060102"))
	buf.WriteString(datevColumns + "\r\n")

	for _, r := range rows {
		// Participation invoices post as debit, correcting documents as credit.
		side := "S"
		if r.Kind != core.DocParticipation {
			side = "H"
		}
		record := []string{
			germanDecimal(r.GrossAmount.StringFixed(2)),
			side,
			r.Currency,
			r.IssuedAt.Format("0201"), // DDMM
			strconv.FormatInt(r.InvoiceNumber, 10),
			r.Reference,
			datevText(r.Description),
			"",
		}
		buf.WriteString(strings.Join(record, ";") + "\r\n")
	}
	return buf.Bytes(), nil
}

func dateRange(rows []core.ExportRow) (time.Time, time.Time) {
	// An empty batch still has to serialize to the same bytes every run.
	if len(rows) == 0 {
		return pdfEpoch, pdfEpoch
	}
	from, to := rows[0].IssuedAt, rows[0].IssuedAt
	for _, r := range rows[1:] {
		if r.IssuedAt.Before(from) {
			from = r.IssuedAt
		}
		if r.IssuedAt.After(to) {
			to = r.IssuedAt
		}
	}
	return from, to
}

func germanDecimal(s string) string {
	return strings.ReplaceAll(s, ".", ",")
}

// datevText strips the field separator and truncates to the 60-char
// Buchungstext limit. Truncation counts runes so an umlaut on the boundary
// is dropped whole instead of leaving a broken byte sequence.
func datevText(s string) string {
	s = strings.ReplaceAll(s, ";", ",")
	if utf8.RuneCountInString(s) > 60 {
		s = string([]rune(s)[:60])
	}
	return s
}
