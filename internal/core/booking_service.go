package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BookingService governs the booking lifecycle. Every transition runs as a
// single-writer transaction on the booking row, so two racing Cancel or
// Storno calls cannot both succeed.
type BookingService interface {
	// CreateBooking creates an active booking, snapshots the resolved price
	// (prorated first month for weekly-recurring offers) and generates the
	// participation document, all in one transaction.
	CreateBooking(ctx context.Context, providerCode, customerID, offerID string, startDate time.Time) (*Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*Booking, error)
	ListBookings(ctx context.Context, providerCode string, status *BookingStatus) ([]Booking, error)

	// Cancel transitions active → cancelled. Requires a cancellable offer and
	// both cancellation dates with effective ≥ received; generates the
	// cancellation document referencing the participation invoice.
	Cancel(ctx context.Context, bookingID string, receivedDate, effectiveDate time.Time, reason string) (*Booking, error)
	// Storno transitions active → storno regardless of cancellability; it is
	// an administrative reversal, not a subscriber cancellation. Calling it on
	// a booking that is already storno succeeds without changes.
	Storno(ctx context.Context, bookingID string, amountOverride *decimal.Decimal) (*Booking, error)
	// Restore transitions cancelled → active. Previously generated documents
	// are immutable and stay untouched.
	Restore(ctx context.Context, bookingID string) (*Booking, error)
}

type bookingService struct {
	pool *pgxpool.Pool
	docs DocumentService
}

func NewBookingService(pool *pgxpool.Pool, docs DocumentService) BookingService {
	return &bookingService{pool: pool, docs: docs}
}

// ── Creation ─────────────────────────────────────────────────────────────────

func (s *bookingService) CreateBooking(ctx context.Context, providerCode, customerID, offerID string, startDate time.Time) (*Booking, error) {
	if startDate.IsZero() {
		return nil, &ValidationError{Field: "start_date", Reason: "missing or invalid date"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storagef("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	providerID, err := resolveProviderID(ctx, tx, providerCode)
	if err != nil {
		return nil, err
	}

	var customerExists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND provider_id = $2)",
		customerID, providerID,
	).Scan(&customerExists); err != nil {
		return nil, storagef("verify customer", err)
	}
	if !customerExists {
		return nil, &NotFoundError{Entity: "customer", Ref: customerID}
	}

	offer, err := fetchOfferQ(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.ProviderID != providerID {
		return nil, &NotFoundError{Entity: "offer", Ref: offerID}
	}

	price, err := resolveBookingPrice(*offer, startDate)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ID:             uuid.NewString(),
		ProviderID:     providerID,
		CustomerID:     customerID,
		OfferID:        offerID,
		Status:         BookingActive,
		StartDate:      startDate,
		PriceAtBooking: price,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (id, provider_id, customer_id, offer_id, status, start_date, price_at_booking)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, b.ID, b.ProviderID, b.CustomerID, b.OfferID, string(b.Status), b.StartDate, b.PriceAtBooking).Scan(&b.CreatedAt)
	if err != nil {
		return nil, storagef("insert booking", err)
	}

	// Participation document is issued at confirmation time, which for admin
	// bookings is creation time.
	if _, err := s.docs.EnsureDocumentTx(ctx, tx, b.ID, DocParticipation, nil); err != nil {
		return nil, fmt.Errorf("generate participation document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storagef("commit booking creation", err)
	}
	return b, nil
}

// resolveBookingPrice snapshots the first-period price: prorated for
// weekly-recurring offers, flat monthly price otherwise. Offers without a
// monthly price (some one-off types) book at zero.
func resolveBookingPrice(offer Offer, startDate time.Time) (decimal.Decimal, error) {
	price := decimal.Zero
	if offer.MonthlyPrice.Valid {
		price = offer.MonthlyPrice.Decimal
	}
	if !IsWeeklyRecurring(offer) {
		return price, nil
	}
	p, err := ProrateFirstMonth(startDate, price)
	if err != nil {
		return decimal.Zero, err
	}
	return p.FirstMonthPrice, nil
}

// ── Transitions ──────────────────────────────────────────────────────────────

func (s *bookingService) Cancel(ctx context.Context, bookingID string, receivedDate, effectiveDate time.Time, reason string) (*Booking, error) {
	if receivedDate.IsZero() {
		return nil, &ValidationError{Field: "cancel_received_date", Reason: "required to cancel"}
	}
	if effectiveDate.IsZero() {
		return nil, &ValidationError{Field: "cancel_effective_date", Reason: "required to cancel"}
	}
	if effectiveDate.Before(receivedDate) {
		return nil, &ValidationError{Field: "cancel_effective_date", Reason: "must not precede the received date"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storagef("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	b, err := fetchBookingForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != BookingActive {
		return nil, &ConflictError{Detail: fmt.Sprintf("booking %s is %s; only active bookings can be cancelled", bookingID, b.Status)}
	}

	offer, err := fetchOfferQ(ctx, tx, b.OfferID)
	if err != nil {
		return nil, err
	}
	if !IsCancellable(*offer) {
		cls := Classify(*offer)
		return nil, &PolicyViolation{
			Rule:   "offer-not-cancellable",
			Detail: fmt.Sprintf("%s courses are not subject to subscription cancellation", cls.Category),
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET status = $1, cancel_received_date = $2, cancel_effective_date = $3, cancel_reason = $4, version = version + 1
		WHERE id = $5
	`, string(BookingCancelled), receivedDate, effectiveDate, reason, bookingID)
	if err != nil {
		return nil, storagef("update booking status", err)
	}

	if _, err := s.docs.EnsureDocumentTx(ctx, tx, bookingID, DocCancellation, nil); err != nil {
		return nil, fmt.Errorf("generate cancellation document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storagef("commit cancellation", err)
	}
	return s.GetBooking(ctx, bookingID)
}

func (s *bookingService) Storno(ctx context.Context, bookingID string, amountOverride *decimal.Decimal) (*Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storagef("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	b, err := fetchBookingForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == BookingStorno {
		// Idempotent: the reversal already happened.
		return b, nil
	}
	if b.Status != BookingActive {
		return nil, &ConflictError{Detail: fmt.Sprintf("booking %s is %s; only active bookings can be reversed", bookingID, b.Status)}
	}

	_, err = tx.Exec(ctx,
		"UPDATE bookings SET status = $1, version = version + 1 WHERE id = $2",
		string(BookingStorno), bookingID,
	)
	if err != nil {
		return nil, storagef("update booking status", err)
	}

	if _, err := s.docs.EnsureDocumentTx(ctx, tx, bookingID, DocStorno, amountOverride); err != nil {
		return nil, fmt.Errorf("generate storno document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storagef("commit storno", err)
	}
	return s.GetBooking(ctx, bookingID)
}

func (s *bookingService) Restore(ctx context.Context, bookingID string) (*Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storagef("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	b, err := fetchBookingForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != BookingCancelled {
		return nil, &ConflictError{Detail: fmt.Sprintf("booking %s is %s; only cancelled bookings can be restored", bookingID, b.Status)}
	}

	// The cancellation dates stay on the record as history; only the live
	// status reverts. The cancellation document is immutable anyway.
	_, err = tx.Exec(ctx,
		"UPDATE bookings SET status = $1, version = version + 1 WHERE id = $2",
		string(BookingActive), bookingID,
	)
	if err != nil {
		return nil, storagef("update booking status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storagef("commit restore", err)
	}
	return s.GetBooking(ctx, bookingID)
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (*Booking, error) {
	return fetchBookingQ(ctx, s.pool, bookingID)
}

func (s *bookingService) ListBookings(ctx context.Context, providerCode string, status *BookingStatus) ([]Booking, error) {
	providerID, err := resolveProviderID(ctx, s.pool, providerCode)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, provider_id, customer_id, offer_id, status, start_date,
		       cancel_received_date, cancel_effective_date, COALESCE(cancel_reason, ''),
		       price_at_booking, created_at
		FROM bookings
		WHERE provider_id = $1
	`
	args := []any{providerID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, string(*status))
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storagef("query bookings", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storagef("iterate bookings", err)
	}
	return bookings, nil
}

// ── Shared row helpers ───────────────────────────────────────────────────────

const bookingColumns = `id, provider_id, customer_id, offer_id, status, start_date,
       cancel_received_date, cancel_effective_date, COALESCE(cancel_reason, ''),
       price_at_booking, created_at`

func fetchBookingQ(ctx context.Context, q pgxQuerier, bookingID string) (*Booking, error) {
	row := q.QueryRow(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1", bookingID)
	b, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "booking", Ref: bookingID}
		}
		return nil, err
	}
	return b, nil
}

// fetchBookingForUpdate locks the booking row for the remainder of the
// transaction. All transitions and standalone document generation go through
// this lock.
func fetchBookingForUpdate(ctx context.Context, tx pgx.Tx, bookingID string) (*Booking, error) {
	row := tx.QueryRow(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1 FOR UPDATE", bookingID)
	b, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "booking", Ref: bookingID}
		}
		return nil, err
	}
	return b, nil
}

func scanBookingRow(row pgx.Row) (*Booking, error) {
	var b Booking
	var status string
	err := row.Scan(
		&b.ID, &b.ProviderID, &b.CustomerID, &b.OfferID, &status, &b.StartDate,
		&b.CancelReceivedDate, &b.CancelEffectiveDate, &b.CancelReason,
		&b.PriceAtBooking, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, storagef("scan booking", err)
	}
	b.Status = BookingStatus(status)
	return &b, nil
}

func scanBooking(rows pgx.Rows) (*Booking, error) {
	var b Booking
	var status string
	if err := rows.Scan(
		&b.ID, &b.ProviderID, &b.CustomerID, &b.OfferID, &status, &b.StartDate,
		&b.CancelReceivedDate, &b.CancelEffectiveDate, &b.CancelReason,
		&b.PriceAtBooking, &b.CreatedAt,
	); err != nil {
		return nil, storagef("scan booking", err)
	}
	b.Status = BookingStatus(status)
	return &b, nil
}

// resolveProviderID looks up the internal provider ID from a provider code.
func resolveProviderID(ctx context.Context, q pgxQuerier, providerCode string) (int, error) {
	var id int
	err := q.QueryRow(ctx, "SELECT id FROM providers WHERE code = $1", providerCode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &NotFoundError{Entity: "provider", Ref: providerCode}
		}
		return 0, storagef("resolve provider", err)
	}
	return id, nil
}
