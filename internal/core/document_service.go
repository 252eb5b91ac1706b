package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DocumentService guarantees existence, numbering and cross-references of
// billing documents. Generation is idempotent: at most one document ever
// exists per (booking, kind), and repeated calls return the stored document
// unchanged. Rendering (PDF bytes) is a separate collaborator.
type DocumentService interface {
	// EnsureDocument generates the document in its own transaction.
	// Use for standalone calls.
	EnsureDocument(ctx context.Context, bookingID string, kind DocumentKind) (*BillingDocument, error)
	// EnsureDocumentTx generates the document inside the caller's transaction.
	// The caller must hold the booking row lock (SELECT ... FOR UPDATE) so that
	// the generation and the booking transition commit atomically.
	EnsureDocumentTx(ctx context.Context, tx pgx.Tx, bookingID string, kind DocumentKind, amountOverride *decimal.Decimal) (*BillingDocument, error)
	// GetDocument returns the stored document or a NotFoundError.
	GetDocument(ctx context.Context, bookingID string, kind DocumentKind) (*BillingDocument, error)
}

type documentService struct {
	pool *pgxpool.Pool
}

func NewDocumentService(pool *pgxpool.Pool) DocumentService {
	return &documentService{pool: pool}
}

func (s *documentService) EnsureDocument(ctx context.Context, bookingID string, kind DocumentKind) (*BillingDocument, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storagef("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Lock the booking row first: concurrent EnsureDocument calls for the same
	// booking serialize here, so the second caller observes the first caller's
	// document instead of allocating a second invoice number.
	if _, err := fetchBookingForUpdate(ctx, tx, bookingID); err != nil {
		return nil, err
	}

	doc, err := ensureDocumentWithTx(ctx, tx, bookingID, kind, nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storagef("commit document generation", err)
	}
	return doc, nil
}

func (s *documentService) EnsureDocumentTx(ctx context.Context, tx pgx.Tx, bookingID string, kind DocumentKind, amountOverride *decimal.Decimal) (*BillingDocument, error) {
	return ensureDocumentWithTx(ctx, tx, bookingID, kind, amountOverride)
}

func (s *documentService) GetDocument(ctx context.Context, bookingID string, kind DocumentKind) (*BillingDocument, error) {
	return getDocumentQ(ctx, s.pool, bookingID, kind)
}

// ensureDocumentWithTx contains the generation logic and runs within a
// transaction that already holds the booking row lock.
func ensureDocumentWithTx(ctx context.Context, tx pgx.Tx, bookingID string, kind DocumentKind, amountOverride *decimal.Decimal) (*BillingDocument, error) {
	existing, err := getDocumentQ(ctx, tx, bookingID, kind)
	if err == nil {
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	b, err := fetchBookingQ(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	// Correcting documents always reference the participation invoice. The
	// participation document is created on demand here if booking confirmation
	// never produced one, so the reference is never dangling.
	var referenced *int64
	if kind != DocParticipation {
		part, err := ensureDocumentWithTx(ctx, tx, bookingID, DocParticipation, nil)
		if err != nil {
			return nil, fmt.Errorf("ensure participation document for %s: %w", bookingID, err)
		}
		referenced = &part.InvoiceNumber
	}

	var issuedAt time.Time
	var amount decimal.Decimal
	switch kind {
	case DocParticipation:
		issuedAt = b.StartDate
		if issuedAt.IsZero() {
			issuedAt = b.CreatedAt
		}
		amount = b.PriceAtBooking
	case DocCancellation:
		if b.CancelEffectiveDate != nil {
			issuedAt = *b.CancelEffectiveDate
		} else {
			issuedAt = time.Now()
		}
		// Informational document; carries no amount of its own.
		amount = decimal.Zero
	case DocStorno:
		issuedAt = time.Now()
		amount = b.PriceAtBooking
		if amountOverride != nil {
			amount = *amountOverride
		}
	default:
		return nil, &ValidationError{Field: "kind", Reason: "unknown document kind: " + string(kind)}
	}

	invoiceNumber, err := nextInvoiceNumber(ctx, tx, b.ProviderID)
	if err != nil {
		return nil, err
	}

	doc := &BillingDocument{
		ID:                      DocumentID(bookingID, kind),
		ProviderID:              b.ProviderID,
		BookingID:               bookingID,
		Kind:                    kind,
		InvoiceNumber:           invoiceNumber,
		IssuedAt:                issuedAt,
		ReferencedInvoiceNumber: referenced,
		Amount:                  amount,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO billing_documents (id, provider_id, booking_id, kind, invoice_number, issued_at, referenced_invoice_number, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, doc.ID, doc.ProviderID, doc.BookingID, string(doc.Kind), doc.InvoiceNumber,
		doc.IssuedAt, doc.ReferencedInvoiceNumber, doc.Amount).Scan(&doc.CreatedAt)
	if err != nil {
		return nil, storagef("insert billing document", err)
	}

	return doc, nil
}

// nextInvoiceNumber allocates the next number in the provider's gap-free
// sequence. The single-row upsert serializes concurrent allocations.
func nextInvoiceNumber(ctx context.Context, tx pgx.Tx, providerID int) (int64, error) {
	var n int64
	err := tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (provider_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (provider_id)
		DO UPDATE SET last_number = invoice_sequences.last_number + 1
		RETURNING last_number
	`, providerID).Scan(&n)
	if err != nil {
		return 0, storagef("allocate invoice number", err)
	}
	return n, nil
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getDocumentQ(ctx context.Context, q pgxQuerier, bookingID string, kind DocumentKind) (*BillingDocument, error) {
	var d BillingDocument
	var kindStr string
	err := q.QueryRow(ctx, `
		SELECT id, provider_id, booking_id, kind, invoice_number, issued_at, referenced_invoice_number, amount, created_at
		FROM billing_documents
		WHERE booking_id = $1 AND kind = $2
	`, bookingID, string(kind)).Scan(
		&d.ID, &d.ProviderID, &d.BookingID, &kindStr, &d.InvoiceNumber,
		&d.IssuedAt, &d.ReferencedInvoiceNumber, &d.Amount, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "document", Ref: DocumentID(bookingID, kind)}
		}
		return nil, storagef("fetch billing document", err)
	}
	d.Kind = DocumentKind(kindStr)
	return &d, nil
}
