package app

import (
	"context"

	"course-billing/internal/core"
)

// ApplicationService is the single interface all adapters (web API, export
// CLI) call. It decouples presentation from business logic; implementations
// contain no display logic of any kind.
type ApplicationService interface {
	// CreateCustomer registers a customer under the given provider.
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*core.Customer, error)

	// ListCustomers returns all customers of a provider.
	ListCustomers(ctx context.Context, providerCode string) (*CustomerListResult, error)

	// CreateOffer adds an offer to the provider's catalog.
	CreateOffer(ctx context.Context, req CreateOfferRequest) (*core.Offer, error)

	// ListOffers returns the provider's offer catalog.
	ListOffers(ctx context.Context, providerCode string) (*OfferListResult, error)

	// GetOfferClassification resolves the taxonomy bucket and the derived
	// booking predicates of one offer.
	GetOfferClassification(ctx context.Context, providerCode, offerID string) (*core.OfferClassification, error)

	// CreateBooking books a customer onto an offer, snapshots the first-period
	// price and issues the participation document.
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResult, error)

	// GetBooking returns one booking plus its issued documents.
	GetBooking(ctx context.Context, providerCode, bookingID string) (*BookingResult, error)

	// ListBookings returns the provider's bookings, optionally filtered by
	// status ("active", "cancelled", "storno", "pending").
	ListBookings(ctx context.Context, providerCode, status string) (*BookingListResult, error)

	// CancelBooking runs the subscriber cancellation transition.
	CancelBooking(ctx context.Context, req CancelBookingRequest) (*BookingResult, error)

	// StornoBooking reverses a booking administratively, issuing a credit note.
	StornoBooking(ctx context.Context, req StornoBookingRequest) (*BookingResult, error)

	// RestoreBooking reverts a cancelled booking to active.
	RestoreBooking(ctx context.Context, providerCode, bookingID string) (*BookingResult, error)

	// EnsureDocument generates (or returns the existing) document of the given
	// kind for a booking.
	EnsureDocument(ctx context.Context, providerCode, bookingID, kind string) (*core.BillingDocument, error)

	// SendDocument renders the document as PDF and hands it to the delivery
	// collaborator.
	SendDocument(ctx context.Context, providerCode, bookingID, kind string) error

	// ListDocuments returns the paged cross-customer document listing.
	ListDocuments(ctx context.Context, providerCode string, q DocumentQuery) (*core.DocumentPage, error)

	// ExportDocuments serializes the full filtered document set into the given
	// format ("csv", "datev", "xlsx", "zip").
	ExportDocuments(ctx context.Context, providerCode, format string, q DocumentQuery) (*ExportFile, error)
}
