package core_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"course-billing/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE billing_documents, invoice_sequences, bookings, offers, customers, providers CASCADE;

		INSERT INTO providers (id, code, name, address, currency) VALUES
		(1, 'msm', 'Munich Soccer School', 'Trainerweg 1, 80331 München', 'EUR');

		INSERT INTO customers (id, provider_id, name, email, address) VALUES
		('cust-1', 1, 'Anna Beispiel', 'anna@example.com', 'Kundenstr. 5, 80333 München');

		INSERT INTO offers (id, provider_id, type, sub_type, category, title, venue, monthly_price) VALUES
		('offer-weekly', 1, 'Foerdertraining', NULL, 'Weekly', 'Fördertraining Montag U10', 'Sportpark Süd', 62.00),
		('offer-camp',   1, 'Camp',            NULL, NULL,     'Sommercamp Woche 1',       'Sportpark Süd', 199.00),
		('offer-rac',    1, 'Foerdertraining', 'Rent a Coach', NULL, 'Rent a Coach Vereinspaket', NULL, 500.00);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func newBookingService(pool *pgxpool.Pool) core.BookingService {
	return core.NewBookingService(pool, core.NewDocumentService(pool))
}

func TestBookingLifecycle_CancelAndRestore(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	docs := core.NewDocumentService(pool)
	ctx := context.Background()

	start := time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC)
	b, err := svc.CreateBooking(ctx, "msm", "cust-1", "offer-weekly", start)
	if err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}
	if b.Status != core.BookingActive {
		t.Fatalf("new booking status = %s, want active", b.Status)
	}
	// 16 of 31 days of 62.00
	if b.PriceAtBooking.StringFixed(2) != "32.00" {
		t.Errorf("price at booking = %s, want 32.00", b.PriceAtBooking.StringFixed(2))
	}

	part, err := docs.GetDocument(ctx, b.ID, core.DocParticipation)
	if err != nil {
		t.Fatalf("participation document missing after creation: %v", err)
	}
	if !part.Amount.Equal(b.PriceAtBooking) {
		t.Errorf("participation amount = %s, want %s", part.Amount, b.PriceAtBooking)
	}

	received := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	effective := time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)
	b, err = svc.Cancel(ctx, b.ID, received, effective, "relocation")
	if err != nil {
		t.Fatalf("failed to cancel booking: %v", err)
	}
	if b.Status != core.BookingCancelled {
		t.Errorf("status after cancel = %s, want cancelled", b.Status)
	}
	if b.CancelEffectiveDate == nil || !b.CancelEffectiveDate.Equal(effective) {
		t.Errorf("cancel effective date = %v, want %s", b.CancelEffectiveDate, effective)
	}

	cancelDoc, err := docs.GetDocument(ctx, b.ID, core.DocCancellation)
	if err != nil {
		t.Fatalf("cancellation document missing: %v", err)
	}
	if cancelDoc.ReferencedInvoiceNumber == nil || *cancelDoc.ReferencedInvoiceNumber != part.InvoiceNumber {
		t.Errorf("cancellation reference = %v, want %d", cancelDoc.ReferencedInvoiceNumber, part.InvoiceNumber)
	}
	if !cancelDoc.Amount.IsZero() {
		t.Errorf("cancellation amount = %s, want 0", cancelDoc.Amount)
	}

	b, err = svc.Restore(ctx, b.ID)
	if err != nil {
		t.Fatalf("failed to restore booking: %v", err)
	}
	if b.Status != core.BookingActive {
		t.Errorf("status after restore = %s, want active", b.Status)
	}
	// Cancellation history stays on the record.
	if b.CancelReceivedDate == nil || b.CancelEffectiveDate == nil {
		t.Error("restore must keep the cancellation dates as history")
	}
	// The cancellation document is immutable and survives the restore.
	if _, err := docs.GetDocument(ctx, b.ID, core.DocCancellation); err != nil {
		t.Errorf("cancellation document gone after restore: %v", err)
	}
}

func TestCancel_PolicyViolationLeavesBookingUntouched(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	docs := core.NewDocumentService(pool)
	ctx := context.Background()

	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	b, err := svc.CreateBooking(ctx, "msm", "cust-1", "offer-rac", start)
	if err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}

	_, err = svc.Cancel(ctx, b.ID,
		time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC),
		"change of mind")
	if !core.IsPolicyViolation(err) {
		t.Fatalf("expected policy violation, got %v", err)
	}

	got, err := svc.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatalf("failed to reload booking: %v", err)
	}
	if got.Status != core.BookingActive {
		t.Errorf("status after rejected cancel = %s, want active", got.Status)
	}
	if got.CancelReceivedDate != nil || got.CancelEffectiveDate != nil {
		t.Error("rejected cancel must not record cancellation dates")
	}
	if _, err := docs.GetDocument(ctx, b.ID, core.DocCancellation); !core.IsNotFound(err) {
		t.Errorf("rejected cancel must not generate a cancellation document, got %v", err)
	}
}

func TestCancel_DateValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, "msm", "cust-1", "offer-weekly",
		time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}

	received := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	effective := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Cancel(ctx, b.ID, received, effective, ""); !core.IsValidation(err) {
		t.Errorf("effective before received: expected validation error, got %v", err)
	}
	if _, err := svc.Cancel(ctx, b.ID, time.Time{}, effective, ""); !core.IsValidation(err) {
		t.Errorf("missing received date: expected validation error, got %v", err)
	}
}

func TestCancel_ConcurrentSingleWinner(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, "msm", "cust-1", "offer-weekly",
		time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	errCh := make(chan error, attempts)
	received := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	effective := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Cancel(ctx, b.ID, received, effective, "race")
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	successes, conflicts := 0, 0
	for err := range errCh {
		switch {
		case err == nil:
			successes++
		case core.IsConflict(err):
			conflicts++
		default:
			t.Errorf("unexpected cancel error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successful cancels = %d, want exactly 1", successes)
	}
	if conflicts != attempts-1 {
		t.Errorf("conflict errors = %d, want %d", conflicts, attempts-1)
	}

	var docCount int
	if err := pool.QueryRow(ctx,
		"SELECT count(*) FROM billing_documents WHERE booking_id = $1 AND kind = 'cancellation'", b.ID,
	).Scan(&docCount); err != nil {
		t.Fatalf("failed to count cancellation documents: %v", err)
	}
	if docCount != 1 {
		t.Errorf("cancellation documents = %d, want 1", docCount)
	}
}

func TestStorno_IdempotentAndOverridable(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	docs := core.NewDocumentService(pool)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, "msm", "cust-1", "offer-camp",
		time.Date(2024, time.July, 29, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}
	// Camps are not weekly-recurring, so the full price is booked.
	if b.PriceAtBooking.StringFixed(2) != "199.00" {
		t.Errorf("price at booking = %s, want 199.00", b.PriceAtBooking.StringFixed(2))
	}

	override := decimal.RequireFromString("99.50")
	b, err = svc.Storno(ctx, b.ID, &override)
	if err != nil {
		t.Fatalf("failed to storno booking: %v", err)
	}
	if b.Status != core.BookingStorno {
		t.Errorf("status after storno = %s, want storno", b.Status)
	}

	doc, err := docs.GetDocument(ctx, b.ID, core.DocStorno)
	if err != nil {
		t.Fatalf("storno document missing: %v", err)
	}
	if doc.Amount.StringFixed(2) != "99.50" {
		t.Errorf("storno amount = %s, want override 99.50", doc.Amount.StringFixed(2))
	}
	if doc.ReferencedInvoiceNumber == nil {
		t.Error("storno document must reference the participation invoice")
	}

	// A second storno is a no-op, not a conflict.
	again, err := svc.Storno(ctx, b.ID, nil)
	if err != nil {
		t.Fatalf("repeated storno errored: %v", err)
	}
	if again.Status != core.BookingStorno {
		t.Errorf("status after repeated storno = %s, want storno", again.Status)
	}
	var docCount int
	if err := pool.QueryRow(ctx,
		"SELECT count(*) FROM billing_documents WHERE booking_id = $1 AND kind = 'storno'", b.ID,
	).Scan(&docCount); err != nil {
		t.Fatalf("failed to count storno documents: %v", err)
	}
	if docCount != 1 {
		t.Errorf("storno documents = %d, want 1", docCount)
	}
}

func TestRestore_RequiresCancelledState(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, "msm", "cust-1", "offer-weekly",
		time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}

	if _, err := svc.Restore(ctx, b.ID); !core.IsConflict(err) {
		t.Errorf("restore of active booking: expected conflict, got %v", err)
	}

	if _, err := svc.Storno(ctx, b.ID, nil); err != nil {
		t.Fatalf("failed to storno booking: %v", err)
	}
	if _, err := svc.Restore(ctx, b.ID); !core.IsConflict(err) {
		t.Errorf("restore of storno booking: expected conflict, got %v", err)
	}
}

func TestCreateBooking_UnknownReferences(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newBookingService(pool)
	ctx := context.Background()
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	if _, err := svc.CreateBooking(ctx, "nope", "cust-1", "offer-weekly", start); !core.IsNotFound(err) {
		t.Errorf("unknown provider: expected not found, got %v", err)
	}
	if _, err := svc.CreateBooking(ctx, "msm", "cust-missing", "offer-weekly", start); !core.IsNotFound(err) {
		t.Errorf("unknown customer: expected not found, got %v", err)
	}
	if _, err := svc.CreateBooking(ctx, "msm", "cust-1", "offer-missing", start); !core.IsNotFound(err) {
		t.Errorf("unknown offer: expected not found, got %v", err)
	}
}
