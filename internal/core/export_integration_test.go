package core_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"course-billing/internal/core"
)

// seedDocumentCorpus creates three bookings (one of them cancelled) so the
// aggregator has a mix of participation and cancellation documents.
func seedDocumentCorpus(t *testing.T, svc core.BookingService) []*core.Booking {
	t.Helper()
	ctx := context.Background()

	var bookings []*core.Booking
	starts := []time.Time{
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, start := range starts {
		b, err := svc.CreateBooking(ctx, "msm", "cust-1", "offer-weekly", start)
		if err != nil {
			t.Fatalf("failed to create booking: %v", err)
		}
		bookings = append(bookings, b)
	}

	_, err := svc.Cancel(ctx, bookings[0].ID,
		time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
		"relocation")
	if err != nil {
		t.Fatalf("failed to cancel booking: %v", err)
	}
	return bookings
}

func TestListDocuments_FiltersAndPaging(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	exp := core.NewExportService(pool)
	ctx := context.Background()
	seedDocumentCorpus(t, svc)

	// All four documents (3 participation + 1 cancellation).
	page, err := exp.ListDocuments(ctx, "msm", core.DocumentFilter{})
	if err != nil {
		t.Fatalf("failed to list documents: %v", err)
	}
	if page.Total != 4 {
		t.Errorf("total = %d, want 4", page.Total)
	}

	// Kind filter.
	page, err = exp.ListDocuments(ctx, "msm", core.DocumentFilter{Kinds: []core.DocumentKind{core.DocCancellation}})
	if err != nil {
		t.Fatalf("failed to list cancellations: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("cancellation total = %d, want 1", page.Total)
	}
	if len(page.Items) != 1 || page.Items[0].Kind != core.DocCancellation {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
	if page.Items[0].BookingStatus != core.BookingCancelled {
		t.Errorf("booking status on view = %s, want cancelled", page.Items[0].BookingStatus)
	}

	// Inclusive issued_at window around the April and May starts.
	from := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	page, err = exp.ListDocuments(ctx, "msm", core.DocumentFilter{DateFrom: &from, DateTo: &to})
	if err != nil {
		t.Fatalf("failed to list windowed documents: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("windowed total = %d, want 2", page.Total)
	}

	// Free-text search hits the offer title.
	page, err = exp.ListDocuments(ctx, "msm", core.DocumentFilter{Query: "fördertraining"})
	if err != nil {
		t.Fatalf("failed to search documents: %v", err)
	}
	if page.Total != 4 {
		t.Errorf("search total = %d, want 4", page.Total)
	}

	// Paging slices the sorted set.
	page, err = exp.ListDocuments(ctx, "msm", core.DocumentFilter{
		SortField: "invoice_number", Page: 2, PageSize: 3,
	})
	if err != nil {
		t.Fatalf("failed to page documents: %v", err)
	}
	if page.Total != 4 || len(page.Items) != 1 {
		t.Errorf("page 2 of size 3: total %d items %d, want 4 and 1", page.Total, len(page.Items))
	}
	if page.Items[0].InvoiceNumber != 4 {
		t.Errorf("last page invoice number = %d, want 4", page.Items[0].InvoiceNumber)
	}

	// Unknown sort fields never reach SQL.
	if _, err := exp.ListDocuments(ctx, "msm", core.DocumentFilter{SortField: "evil; DROP"}); !core.IsValidation(err) {
		t.Errorf("unknown sort field: expected validation error, got %v", err)
	}
}

func TestExportRows_DeterministicAndComplete(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	exp := core.NewExportService(pool)
	ctx := context.Background()
	bookings := seedDocumentCorpus(t, svc)

	rows, err := exp.ExportRows(ctx, "msm", core.DocumentFilter{})
	if err != nil {
		t.Fatalf("failed to export rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("exported rows = %d, want 4", len(rows))
	}

	for i, r := range rows {
		if r.InvoiceNumber != int64(i+1) {
			t.Errorf("row %d invoice number = %d, want %d", i, r.InvoiceNumber, i+1)
		}
		if !r.NetAmount.Equal(r.GrossAmount) {
			t.Errorf("row %d: net %s != gross %s", i, r.NetAmount, r.GrossAmount)
		}
		if !r.VATAmount.IsZero() || !r.VATRate.IsZero() {
			t.Errorf("row %d: VAT columns must be zero", i)
		}
		if r.SupplierName != "Munich Soccer School" || r.Currency != "EUR" {
			t.Errorf("row %d: supplier fields not populated: %+v", i, r)
		}
	}

	// The cancellation row references the cancelled booking's participation
	// invoice; participation rows carry no reference.
	var cancellation *core.ExportRow
	for i := range rows {
		if rows[i].Kind == core.DocCancellation {
			cancellation = &rows[i]
		} else if rows[i].Reference != "" {
			t.Errorf("participation row %d has reference %q", i, rows[i].Reference)
		}
	}
	if cancellation == nil {
		t.Fatal("no cancellation row exported")
	}
	if cancellation.BookingID != bookings[0].ID {
		t.Errorf("cancellation row booking = %s, want %s", cancellation.BookingID, bookings[0].ID)
	}
	if cancellation.Reference != "1" {
		t.Errorf("cancellation reference = %q, want \"1\"", cancellation.Reference)
	}

	// Repeat runs are byte-identical.
	again, err := exp.ExportRows(ctx, "msm", core.DocumentFilter{})
	if err != nil {
		t.Fatalf("failed to re-export rows: %v", err)
	}
	if !reflect.DeepEqual(rows, again) {
		t.Error("repeated export produced a different result")
	}
}

func TestExportRows_AppliesFilter(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	exp := core.NewExportService(pool)
	ctx := context.Background()
	seedDocumentCorpus(t, svc)

	rows, err := exp.ExportRows(ctx, "msm", core.DocumentFilter{
		Kinds: []core.DocumentKind{core.DocParticipation},
	})
	if err != nil {
		t.Fatalf("failed to export filtered rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("filtered rows = %d, want 3", len(rows))
	}
	for _, r := range rows {
		if r.Kind != core.DocParticipation {
			t.Errorf("unexpected kind %s in filtered export", r.Kind)
		}
	}
}
