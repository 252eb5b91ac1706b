package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed course taxonomy every offer resolves into.
type Category string

const (
	CategoryWeekly       Category = "Weekly"
	CategoryHoliday      Category = "Holiday"
	CategoryIndividual   Category = "Individual"
	CategoryClubPrograms Category = "ClubPrograms"
	CategoryRentACoach   Category = "RentACoach"
	CategoryUnknown      Category = "Unknown"
)

// Legacy offer type keys still present on older records. The classifier
// falls back on these when no category tag is set.
const (
	OfferTypeFoerdertraining  = "Foerdertraining"
	OfferTypeKindergarten     = "Kindergarten"
	OfferTypeCamp             = "Camp"
	OfferTypePersonalTraining = "PersonalTraining"
)

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
	BookingStorno    BookingStatus = "storno"
	// BookingPending is assigned by the online intake upstream; the engine
	// never transitions into or out of it.
	BookingPending BookingStatus = "pending"
)

// ParseBookingStatus rejects unknown statuses at the boundary instead of
// defaulting silently.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingActive, BookingCancelled, BookingStorno, BookingPending:
		return BookingStatus(s), nil
	}
	return "", &ValidationError{Field: "status", Reason: "unknown booking status: " + s}
}

type DocumentKind string

const (
	DocParticipation DocumentKind = "participation"
	DocCancellation  DocumentKind = "cancellation"
	DocStorno        DocumentKind = "storno"
)

func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(s) {
	case DocParticipation, DocCancellation, DocStorno:
		return DocumentKind(s), nil
	}
	return "", &ValidationError{Field: "kind", Reason: "unknown document kind: " + s}
}

// Provider is the tenant scope every engine call is threaded through.
// Supplier identity fields appear on exported ledger rows.
type Provider struct {
	ID       int    `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Currency string `json:"currency"`
}

type Customer struct {
	ID         string    `json:"id"`
	ProviderID int       `json:"provider_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
}

// Offer is a sellable course product. Category and SubType are optional on
// legacy records; the classifier resolves every offer to exactly one bucket
// regardless.
type Offer struct {
	ID           string              `json:"id"`
	ProviderID   int                 `json:"provider_id"`
	Type         string              `json:"type"`
	SubType      string              `json:"sub_type,omitempty"`
	Category     Category            `json:"category,omitempty"`
	Title        string              `json:"title"`
	Venue        string              `json:"venue,omitempty"`
	MonthlyPrice decimal.NullDecimal `json:"monthly_price"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Booking is one customer's purchase of one offer. PriceAtBooking snapshots
// the resolved (prorated, for weekly courses) first-period price at creation
// so later offer edits never change historical documents.
type Booking struct {
	ID                  string          `json:"id"`
	ProviderID          int             `json:"provider_id"`
	CustomerID          string          `json:"customer_id"`
	OfferID             string          `json:"offer_id"`
	Status              BookingStatus   `json:"status"`
	StartDate           time.Time       `json:"start_date"`
	CancelReceivedDate  *time.Time      `json:"cancel_received_date,omitempty"`
	CancelEffectiveDate *time.Time      `json:"cancel_effective_date,omitempty"`
	CancelReason        string          `json:"cancel_reason,omitempty"`
	PriceAtBooking      decimal.Decimal `json:"price_at_booking"`
	CreatedAt           time.Time       `json:"created_at"`
}

// BillingDocument is an immutable financial artifact. At most one exists per
// (booking, kind); invoice numbers are sequential and never reused.
type BillingDocument struct {
	ID                      string          `json:"id"`
	ProviderID              int             `json:"provider_id"`
	BookingID               string          `json:"booking_id"`
	Kind                    DocumentKind    `json:"kind"`
	InvoiceNumber           int64           `json:"invoice_number"`
	IssuedAt                time.Time       `json:"issued_at"`
	ReferencedInvoiceNumber *int64          `json:"referenced_invoice_number,omitempty"`
	Amount                  decimal.Decimal `json:"amount"`
	CreatedAt               time.Time       `json:"created_at"`
}

// DocumentID builds the stable identifier "{bookingID}:{kind}".
func DocumentID(bookingID string, kind DocumentKind) string {
	return bookingID + ":" + string(kind)
}
