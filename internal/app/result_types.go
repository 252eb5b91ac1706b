package app

import "course-billing/internal/core"

// BookingResult is a booking plus the documents issued for it so far.
type BookingResult struct {
	Booking   *core.Booking          `json:"booking"`
	Documents []core.BillingDocument `json:"documents"`
}

type BookingListResult struct {
	Bookings []core.Booking `json:"bookings"`
}

type CustomerListResult struct {
	Customers []core.Customer `json:"customers"`
}

type OfferListResult struct {
	Offers []core.Offer `json:"offers"`
}

// ExportFile is a fully serialized export ready to stream to the caller.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
