package web

import (
	"net/http"

	"course-billing/internal/app"

	"github.com/go-chi/chi/v5"
)

func bookingID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID string `json:"customer_id"`
		OfferID    string `json:"offer_id"`
		StartDate  string `json:"start_date"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.CreateBooking(r.Context(), app.CreateBookingRequest{
		ProviderCode: providerCode(r),
		CustomerID:   body.CustomerID,
		OfferID:      body.OfferID,
		StartDate:    body.StartDate,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetBooking(r.Context(), providerCode(r), bookingID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListBookings(r.Context(), providerCode(r), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReceivedDate  string `json:"received_date"`
		EffectiveDate string `json:"effective_date"`
		Reason        string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.CancelBooking(r.Context(), app.CancelBookingRequest{
		ProviderCode:  providerCode(r),
		BookingID:     bookingID(r),
		ReceivedDate:  body.ReceivedDate,
		EffectiveDate: body.EffectiveDate,
		Reason:        body.Reason,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) stornoBooking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount string `json:"amount"`
	}
	// Storno accepts an empty body: the amount override is optional.
	if r.ContentLength > 0 && !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.StornoBooking(r.Context(), app.StornoBookingRequest{
		ProviderCode: providerCode(r),
		BookingID:    bookingID(r),
		Amount:       body.Amount,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) restoreBooking(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RestoreBooking(r.Context(), providerCode(r), bookingID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}
