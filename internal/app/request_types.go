package app

// CreateCustomerRequest is the input for registering a customer.
type CreateCustomerRequest struct {
	ProviderCode string
	Name         string
	Email        string
	Address      string
}

// CreateOfferRequest is the input for adding an offer to the catalog.
// MonthlyPrice is a decimal string; empty means the offer has no monthly
// price (one-off products).
type CreateOfferRequest struct {
	ProviderCode string
	Type         string
	SubType      string
	Category     string
	Title        string
	Venue        string
	MonthlyPrice string
}

// CreateBookingRequest is the input for booking a customer onto an offer.
// StartDate is YYYY-MM-DD.
type CreateBookingRequest struct {
	ProviderCode string
	CustomerID   string
	OfferID      string
	StartDate    string
}

// CancelBookingRequest is the input for the cancellation transition.
// Dates are YYYY-MM-DD.
type CancelBookingRequest struct {
	ProviderCode  string
	BookingID     string
	ReceivedDate  string
	EffectiveDate string
	Reason        string
}

// StornoBookingRequest is the input for the administrative reversal.
// Amount is an optional decimal string overriding the credited amount.
type StornoBookingRequest struct {
	ProviderCode string
	BookingID    string
	Amount       string
}

// DocumentQuery is the adapter-facing filter over the document listing.
// Kinds, dates and sort field are validated downstream; dates are YYYY-MM-DD.
type DocumentQuery struct {
	Kinds     []string
	DateFrom  string
	DateTo    string
	Query     string
	SortField string
	SortDesc  bool
	Page      int
	PageSize  int
}
