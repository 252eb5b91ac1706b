package app

import (
	"context"
	"fmt"
	"time"

	"course-billing/internal/adapters/export"
	"course-billing/internal/adapters/mailer"
	"course-billing/internal/core"
	"course-billing/internal/observability/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type appService struct {
	pool      *pgxpool.Pool
	bookings  core.BookingService
	documents core.DocumentService
	offers    core.OfferService
	customers core.CustomerService
	exports   core.ExportService
	mailer    *mailer.Client
	logger    *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	bookings core.BookingService,
	documents core.DocumentService,
	offers core.OfferService,
	customers core.CustomerService,
	exports core.ExportService,
	mailerClient *mailer.Client,
	logger *zap.Logger,
) ApplicationService {
	return &appService{
		pool:      pool,
		bookings:  bookings,
		documents: documents,
		offers:    offers,
		customers: customers,
		exports:   exports,
		mailer:    mailerClient,
		logger:    logger,
	}
}

// ── Master data ──────────────────────────────────────────────────────────────

func (s *appService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error) {
	return s.customers.CreateCustomer(ctx, req.ProviderCode, req.Name, req.Email, req.Address)
}

func (s *appService) ListCustomers(ctx context.Context, providerCode string) (*CustomerListResult, error) {
	customers, err := s.customers.ListCustomers(ctx, providerCode)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) CreateOffer(ctx context.Context, req CreateOfferRequest) (*core.Offer, error) {
	var price decimal.NullDecimal
	if req.MonthlyPrice != "" {
		d, err := decimal.NewFromString(req.MonthlyPrice)
		if err != nil {
			return nil, &core.ValidationError{Field: "monthly_price", Reason: "not a decimal amount: " + req.MonthlyPrice}
		}
		price = decimal.NewNullDecimal(d)
	}
	return s.offers.CreateOffer(ctx, req.ProviderCode, core.OfferInput{
		Type:         req.Type,
		SubType:      req.SubType,
		Category:     req.Category,
		Title:        req.Title,
		Venue:        req.Venue,
		MonthlyPrice: price,
	})
}

func (s *appService) ListOffers(ctx context.Context, providerCode string) (*OfferListResult, error) {
	offers, err := s.offers.ListOffers(ctx, providerCode)
	if err != nil {
		return nil, err
	}
	return &OfferListResult{Offers: offers}, nil
}

func (s *appService) GetOfferClassification(ctx context.Context, providerCode, offerID string) (*core.OfferClassification, error) {
	if err := s.verifyOfferProvider(ctx, providerCode, offerID); err != nil {
		return nil, err
	}
	return s.offers.ClassifyOffer(ctx, offerID)
}

// ── Booking lifecycle ────────────────────────────────────────────────────────

func (s *appService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResult, error) {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}

	b, err := s.bookings.CreateBooking(ctx, req.ProviderCode, req.CustomerID, req.OfferID, start)
	metrics.IncBookingTransition("create", err)
	if err != nil {
		return nil, err
	}
	metrics.IncDocumentIssued(string(core.DocParticipation))
	s.logger.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("offer_id", b.OfferID),
		zap.String("price", b.PriceAtBooking.StringFixed(2)))
	return s.bookingResult(ctx, b)
}

func (s *appService) GetBooking(ctx context.Context, providerCode, bookingID string) (*BookingResult, error) {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyProvider(ctx, providerCode, b.ProviderID, "booking", bookingID); err != nil {
		return nil, err
	}
	return s.bookingResult(ctx, b)
}

func (s *appService) ListBookings(ctx context.Context, providerCode, status string) (*BookingListResult, error) {
	var statusFilter *core.BookingStatus
	if status != "" {
		parsed, err := core.ParseBookingStatus(status)
		if err != nil {
			return nil, err
		}
		statusFilter = &parsed
	}
	bookings, err := s.bookings.ListBookings(ctx, providerCode, statusFilter)
	if err != nil {
		return nil, err
	}
	return &BookingListResult{Bookings: bookings}, nil
}

func (s *appService) CancelBooking(ctx context.Context, req CancelBookingRequest) (*BookingResult, error) {
	if err := s.verifyBookingProvider(ctx, req.ProviderCode, req.BookingID); err != nil {
		return nil, err
	}
	received, err := parseDate("cancel_received_date", req.ReceivedDate)
	if err != nil {
		return nil, err
	}
	effective, err := parseDate("cancel_effective_date", req.EffectiveDate)
	if err != nil {
		return nil, err
	}

	hadDoc := s.documentExists(ctx, req.BookingID, core.DocCancellation)
	b, err := s.bookings.Cancel(ctx, req.BookingID, received, effective, req.Reason)
	metrics.IncBookingTransition("cancel", err)
	if err != nil {
		return nil, err
	}
	if !hadDoc {
		metrics.IncDocumentIssued(string(core.DocCancellation))
	}
	s.logger.Info("booking cancelled",
		zap.String("booking_id", b.ID),
		zap.Time("effective", effective))
	return s.bookingResult(ctx, b)
}

func (s *appService) StornoBooking(ctx context.Context, req StornoBookingRequest) (*BookingResult, error) {
	if err := s.verifyBookingProvider(ctx, req.ProviderCode, req.BookingID); err != nil {
		return nil, err
	}
	var override *decimal.Decimal
	if req.Amount != "" {
		d, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return nil, &core.ValidationError{Field: "amount", Reason: "not a decimal amount: " + req.Amount}
		}
		override = &d
	}

	// Storno is idempotent; only the transition that actually writes the
	// credit note may bump the issued counter.
	hadDoc := s.documentExists(ctx, req.BookingID, core.DocStorno)
	b, err := s.bookings.Storno(ctx, req.BookingID, override)
	metrics.IncBookingTransition("storno", err)
	if err != nil {
		return nil, err
	}
	if !hadDoc {
		metrics.IncDocumentIssued(string(core.DocStorno))
	}
	s.logger.Info("booking reversed", zap.String("booking_id", b.ID))
	return s.bookingResult(ctx, b)
}

func (s *appService) RestoreBooking(ctx context.Context, providerCode, bookingID string) (*BookingResult, error) {
	if err := s.verifyBookingProvider(ctx, providerCode, bookingID); err != nil {
		return nil, err
	}
	b, err := s.bookings.Restore(ctx, bookingID)
	metrics.IncBookingTransition("restore", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking restored", zap.String("booking_id", b.ID))
	return s.bookingResult(ctx, b)
}

// ── Documents ────────────────────────────────────────────────────────────────

func (s *appService) EnsureDocument(ctx context.Context, providerCode, bookingID, kind string) (*core.BillingDocument, error) {
	if err := s.verifyBookingProvider(ctx, providerCode, bookingID); err != nil {
		return nil, err
	}
	parsedKind, err := core.ParseDocumentKind(kind)
	if err != nil {
		return nil, err
	}
	hadDoc := s.documentExists(ctx, bookingID, parsedKind)
	doc, err := s.documents.EnsureDocument(ctx, bookingID, parsedKind)
	if err != nil {
		return nil, err
	}
	if !hadDoc {
		metrics.IncDocumentIssued(string(parsedKind))
	}
	return doc, nil
}

// documentExists reports whether the booking already carries a document of
// the given kind, so idempotent replays do not inflate the issued counter.
func (s *appService) documentExists(ctx context.Context, bookingID string, kind core.DocumentKind) bool {
	_, err := s.documents.GetDocument(ctx, bookingID, kind)
	return err == nil
}

func (s *appService) SendDocument(ctx context.Context, providerCode, bookingID, kind string) error {
	parsedKind, err := core.ParseDocumentKind(kind)
	if err != nil {
		return err
	}
	doc, err := s.EnsureDocument(ctx, providerCode, bookingID, kind)
	if err != nil {
		return err
	}

	row, err := s.exportRowForDocument(ctx, providerCode, bookingID, parsedKind)
	if err != nil {
		return err
	}
	pdfBytes, err := export.BuildDocumentPDF(*row)
	if err != nil {
		return fmt.Errorf("render document %s: %w", doc.ID, err)
	}

	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	customer, err := s.customers.GetCustomer(ctx, b.CustomerID)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("%06d_%s.pdf", doc.InvoiceNumber, doc.Kind)
	if err := s.mailer.SendDocument(ctx, doc.ID, customer.Email, row.Description, filename, pdfBytes); err != nil {
		return err
	}
	s.logger.Info("document sent",
		zap.String("document_id", doc.ID),
		zap.String("recipient", customer.Email))
	return nil
}

func (s *appService) ListDocuments(ctx context.Context, providerCode string, q DocumentQuery) (*core.DocumentPage, error) {
	filter, err := toFilter(q)
	if err != nil {
		return nil, err
	}
	return s.exports.ListDocuments(ctx, providerCode, *filter)
}

func (s *appService) ExportDocuments(ctx context.Context, providerCode, format string, q DocumentQuery) (*ExportFile, error) {
	filter, err := toFilter(q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	file, err := s.buildExport(ctx, providerCode, format, *filter)
	metrics.ObserveExport(format, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	s.logger.Info("documents exported",
		zap.String("provider", providerCode),
		zap.String("format", format),
		zap.Int("bytes", len(file.Data)))
	return file, nil
}

func (s *appService) buildExport(ctx context.Context, providerCode, format string, filter core.DocumentFilter) (*ExportFile, error) {
	rows, err := s.exports.ExportRows(ctx, providerCode, filter)
	if err != nil {
		return nil, err
	}

	stamp := time.Now().Format("20060102")
	base := fmt.Sprintf("documents_%s_%s", providerCode, stamp)

	var data []byte
	var filename, contentType string
	switch format {
	case "csv":
		data, err = export.BuildCSV(rows)
		filename, contentType = base+".csv", "text/csv"
	case "datev":
		data, err = export.BuildDATEV(rows)
		filename, contentType = base+"_datev.csv", "text/csv; charset=utf-8"
	case "xlsx":
		data, err = export.BuildXLSX(rows)
		filename, contentType = base+".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "zip":
		data, err = export.BuildZIP(rows)
		filename, contentType = base+".zip", "application/zip"
	default:
		return nil, &core.ValidationError{Field: "format", Reason: "unsupported export format: " + format}
	}
	if err != nil {
		return nil, fmt.Errorf("serialize %s export: %w", format, err)
	}
	return &ExportFile{Filename: filename, ContentType: contentType, Data: data}, nil
}

// exportRowForDocument narrows the aggregator to a single document so PDF
// rendering and bulk export share one row shape.
func (s *appService) exportRowForDocument(ctx context.Context, providerCode, bookingID string, kind core.DocumentKind) (*core.ExportRow, error) {
	rows, err := s.exports.ExportRows(ctx, providerCode, core.DocumentFilter{
		Kinds: []core.DocumentKind{kind},
		Query: bookingID,
	})
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].BookingID == bookingID {
			return &rows[i], nil
		}
	}
	return nil, &core.NotFoundError{Entity: "document", Ref: core.DocumentID(bookingID, kind)}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *appService) bookingResult(ctx context.Context, b *core.Booking) (*BookingResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, provider_id, booking_id, kind, invoice_number, issued_at, referenced_invoice_number, amount, created_at
		FROM billing_documents
		WHERE booking_id = $1
		ORDER BY invoice_number
	`, b.ID)
	if err != nil {
		return nil, fmt.Errorf("query booking documents: %w", err)
	}
	defer rows.Close()

	var docs []core.BillingDocument
	for rows.Next() {
		var d core.BillingDocument
		var kind string
		if err := rows.Scan(&d.ID, &d.ProviderID, &d.BookingID, &kind, &d.InvoiceNumber,
			&d.IssuedAt, &d.ReferencedInvoiceNumber, &d.Amount, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking document: %w", err)
		}
		d.Kind = core.DocumentKind(kind)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking documents: %w", err)
	}
	return &BookingResult{Booking: b, Documents: docs}, nil
}

// verifyProvider guards cross-tenant access: an entity reached by id must
// belong to the provider named in the URL.
func (s *appService) verifyProvider(ctx context.Context, providerCode string, providerID int, entity, ref string) error {
	var code string
	if err := s.pool.QueryRow(ctx, "SELECT code FROM providers WHERE id = $1", providerID).Scan(&code); err != nil {
		return fmt.Errorf("resolve provider %d: %w", providerID, err)
	}
	if code != providerCode {
		return &core.NotFoundError{Entity: entity, Ref: ref}
	}
	return nil
}

func (s *appService) verifyBookingProvider(ctx context.Context, providerCode, bookingID string) error {
	b, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.verifyProvider(ctx, providerCode, b.ProviderID, "booking", bookingID)
}

func (s *appService) verifyOfferProvider(ctx context.Context, providerCode, offerID string) error {
	o, err := s.offers.GetOffer(ctx, offerID)
	if err != nil {
		return err
	}
	return s.verifyProvider(ctx, providerCode, o.ProviderID, "offer", offerID)
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &core.ValidationError{Field: field, Reason: "required, format YYYY-MM-DD"}
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: field, Reason: "invalid date, format YYYY-MM-DD"}
	}
	return t, nil
}

func toFilter(q DocumentQuery) (*core.DocumentFilter, error) {
	filter := &core.DocumentFilter{
		Query:     q.Query,
		SortField: q.SortField,
		SortDesc:  q.SortDesc,
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
	for _, k := range q.Kinds {
		kind, err := core.ParseDocumentKind(k)
		if err != nil {
			return nil, err
		}
		filter.Kinds = append(filter.Kinds, kind)
	}
	if q.DateFrom != "" {
		from, err := parseDate("date_from", q.DateFrom)
		if err != nil {
			return nil, err
		}
		filter.DateFrom = &from
	}
	if q.DateTo != "" {
		to, err := parseDate("date_to", q.DateTo)
		if err != nil {
			return nil, err
		}
		filter.DateTo = &to
	}
	return filter, nil
}
