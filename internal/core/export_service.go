package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// exportBatchSize bounds the rows read per round trip when assembling the
// full export set, so a large document corpus never lives in memory twice.
const exportBatchSize = 500

// DocumentFilter selects billing documents for listing and export. An empty
// Kinds slice means all three kinds; date bounds are inclusive on issued_at;
// Query matches case-insensitively against title, offer type, venue, booking
// id and invoice number.
type DocumentFilter struct {
	Kinds    []DocumentKind
	DateFrom *time.Time
	DateTo   *time.Time
	Query    string
	// SortField is one of issued_at (default), invoice_number, amount,
	// customer. SortDesc defaults to true for issued_at.
	SortField string
	SortDesc  bool
	Page      int
	PageSize  int
}

// BillingDocumentView is one row of the flattened cross-customer document
// listing, enriched with booking/customer/offer display fields.
type BillingDocumentView struct {
	BillingDocument
	BookingStatus BookingStatus `json:"booking_status"`
	CustomerID    string        `json:"customer_id"`
	CustomerName  string        `json:"customer_name"`
	OfferID       string        `json:"offer_id"`
	OfferTitle    string        `json:"offer_title"`
	OfferType     string        `json:"offer_type"`
	Venue         string        `json:"venue,omitempty"`
}

type DocumentPage struct {
	Items    []BillingDocumentView `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// ExportRow is the flat tabular form consumed by the CSV, DATEV and XLSX
// serializers. Net equals gross because the domain is VAT-exempt; the VAT
// columns are kept at zero for ledger compatibility.
type ExportRow struct {
	InvoiceNumber   int64
	DocumentID      string
	Kind            DocumentKind
	IssuedAt        time.Time
	BookingID       string
	CustomerName    string
	CustomerAddress string
	SupplierName    string
	SupplierAddress string
	Description     string
	Currency        string
	NetAmount       decimal.Decimal
	GrossAmount     decimal.Decimal
	VATRate         decimal.Decimal
	VATAmount       decimal.Decimal
	PaymentMethod   string
	PaymentStatus   string
	// Reference carries the corrected invoice number for cancellation and
	// storno rows (the credit-note-number column), empty for participation.
	Reference string
}

// ExportService flattens all billing documents of a provider into one
// logical list for on-screen listing and bulk export. All operations are
// read-only and never take booking-level locks.
type ExportService interface {
	ListDocuments(ctx context.Context, providerCode string, filter DocumentFilter) (*DocumentPage, error)
	// ExportRows applies the same filter as ListDocuments, ignores paging, and
	// returns the full matching set in a deterministic order (invoice number
	// ascending) so repeated runs are byte-identical.
	ExportRows(ctx context.Context, providerCode string, filter DocumentFilter) ([]ExportRow, error)
}

type exportService struct {
	pool *pgxpool.Pool
}

func NewExportService(pool *pgxpool.Pool) ExportService {
	return &exportService{pool: pool}
}

// sortColumns whitelists sortable fields; anything else is a validation
// failure, never string-built into SQL.
var sortColumns = map[string]string{
	"issued_at":      "d.issued_at",
	"invoice_number": "d.invoice_number",
	"amount":         "d.amount",
	"customer":       "c.name",
}

const documentJoins = `
	FROM billing_documents d
	JOIN bookings  b ON b.id = d.booking_id
	JOIN customers c ON c.id = b.customer_id
	JOIN offers    o ON o.id = b.offer_id
	JOIN providers p ON p.id = d.provider_id`

// buildFilter appends the filter predicates to args and returns the WHERE
// tail (starting with AND).
func buildFilter(filter DocumentFilter, args *[]any) (string, error) {
	var cond string

	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			if _, err := ParseDocumentKind(string(k)); err != nil {
				return "", err
			}
			kinds[i] = string(k)
		}
		*args = append(*args, kinds)
		cond += fmt.Sprintf(" AND d.kind = ANY($%d)", len(*args))
	}
	if filter.DateFrom != nil {
		*args = append(*args, *filter.DateFrom)
		cond += fmt.Sprintf(" AND d.issued_at >= $%d::date", len(*args))
	}
	if filter.DateTo != nil {
		*args = append(*args, *filter.DateTo)
		cond += fmt.Sprintf(" AND d.issued_at <= $%d::date", len(*args))
	}
	if filter.Query != "" {
		*args = append(*args, "%"+filter.Query+"%")
		n := len(*args)
		cond += fmt.Sprintf(` AND (o.title ILIKE $%d OR o.type ILIKE $%d OR COALESCE(o.venue, '') ILIKE $%d
			OR d.booking_id ILIKE $%d OR d.invoice_number::text ILIKE $%d)`, n, n, n, n, n)
	}
	return cond, nil
}

func (s *exportService) ListDocuments(ctx context.Context, providerCode string, filter DocumentFilter) (*DocumentPage, error) {
	providerID, err := resolveProviderID(ctx, s.pool, providerCode)
	if err != nil {
		return nil, err
	}

	sortField := filter.SortField
	if sortField == "" {
		sortField = "issued_at"
		filter.SortDesc = true
	}
	col, ok := sortColumns[sortField]
	if !ok {
		return nil, &ValidationError{Field: "sort", Reason: "unsupported sort field: " + sortField}
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 500 {
		pageSize = 500
	}

	args := []any{providerID}
	cond, err := buildFilter(filter, &args)
	if err != nil {
		return nil, err
	}

	var total int
	countQuery := "SELECT count(*)" + documentJoins + " WHERE d.provider_id = $1" + cond
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, storagef("count documents", err)
	}

	// The invoice number tie break makes the page order a total order.
	query := `
		SELECT d.id, d.provider_id, d.booking_id, d.kind, d.invoice_number, d.issued_at,
		       d.referenced_invoice_number, d.amount, d.created_at,
		       b.status, c.id, c.name, o.id, o.title, o.type, COALESCE(o.venue, '')` +
		documentJoins + `
		WHERE d.provider_id = $1` + cond +
		fmt.Sprintf(" ORDER BY %s %s, d.invoice_number ASC LIMIT %d OFFSET %d", col, dir, pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storagef("query documents", err)
	}
	defer rows.Close()

	items := []BillingDocumentView{}
	for rows.Next() {
		var v BillingDocumentView
		var kind, status string
		if err := rows.Scan(
			&v.ID, &v.ProviderID, &v.BookingID, &kind, &v.InvoiceNumber, &v.IssuedAt,
			&v.ReferencedInvoiceNumber, &v.Amount, &v.CreatedAt,
			&status, &v.CustomerID, &v.CustomerName, &v.OfferID, &v.OfferTitle, &v.OfferType, &v.Venue,
		); err != nil {
			return nil, storagef("scan document view", err)
		}
		v.Kind = DocumentKind(kind)
		v.BookingStatus = BookingStatus(status)
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storagef("iterate documents", err)
	}

	return &DocumentPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *exportService) ExportRows(ctx context.Context, providerCode string, filter DocumentFilter) ([]ExportRow, error) {
	providerID, err := resolveProviderID(ctx, s.pool, providerCode)
	if err != nil {
		return nil, err
	}

	baseArgs := []any{providerID}
	cond, err := buildFilter(filter, &baseArgs)
	if err != nil {
		return nil, err
	}

	out := []ExportRow{}
	lastInvoice := int64(0)
	for {
		args := append(append([]any{}, baseArgs...), lastInvoice)
		query := `
			SELECT d.invoice_number, d.id, d.kind, d.issued_at, d.booking_id,
			       d.referenced_invoice_number, d.amount,
			       c.name, COALESCE(c.address, ''),
			       p.name, p.address, p.currency,
			       o.title` +
			documentJoins + `
			WHERE d.provider_id = $1` + cond +
			fmt.Sprintf(" AND d.invoice_number > $%d ORDER BY d.invoice_number ASC LIMIT %d", len(args), exportBatchSize)

		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, storagef("query export batch", err)
		}

		n := 0
		for rows.Next() {
			var r ExportRow
			var kind string
			var referenced *int64
			if err := rows.Scan(
				&r.InvoiceNumber, &r.DocumentID, &kind, &r.IssuedAt, &r.BookingID,
				&referenced, &r.GrossAmount,
				&r.CustomerName, &r.CustomerAddress,
				&r.SupplierName, &r.SupplierAddress, &r.Currency,
				&r.Description,
			); err != nil {
				rows.Close()
				return nil, storagef("scan export row", err)
			}
			r.Kind = DocumentKind(kind)
			r.Description = DocumentTitle(r.Kind, r.Description)
			r.NetAmount = r.GrossAmount // VAT-exempt: net equals gross
			r.VATRate = decimal.Zero
			r.VATAmount = decimal.Zero
			r.PaymentStatus = "open"
			if referenced != nil {
				r.Reference = strconv.FormatInt(*referenced, 10)
			}
			out = append(out, r)
			lastInvoice = r.InvoiceNumber
			n++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, storagef("iterate export batch", err)
		}
		rows.Close()

		if n < exportBatchSize {
			return out, nil
		}
	}
}

// DocumentTitle is the human-readable line-item description of a document.
func DocumentTitle(kind DocumentKind, offerTitle string) string {
	switch kind {
	case DocParticipation:
		return "Participation confirmation: " + offerTitle
	case DocCancellation:
		return "Cancellation confirmation: " + offerTitle
	case DocStorno:
		return "Credit note: " + offerTitle
	}
	return offerTitle
}
