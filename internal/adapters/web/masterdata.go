package web

import (
	"net/http"

	"course-billing/internal/app"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Address string `json:"address"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	customer, err := h.svc.CreateCustomer(r.Context(), app.CreateCustomerRequest{
		ProviderCode: providerCode(r),
		Name:         body.Name,
		Email:        body.Email,
		Address:      body.Address,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, customer)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomers(r.Context(), providerCode(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) createOffer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type         string `json:"type"`
		SubType      string `json:"sub_type"`
		Category     string `json:"category"`
		Title        string `json:"title"`
		Venue        string `json:"venue"`
		MonthlyPrice string `json:"monthly_price"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	offer, err := h.svc.CreateOffer(r.Context(), app.CreateOfferRequest{
		ProviderCode: providerCode(r),
		Type:         body.Type,
		SubType:      body.SubType,
		Category:     body.Category,
		Title:        body.Title,
		Venue:        body.Venue,
		MonthlyPrice: body.MonthlyPrice,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, offer)
}

func (h *Handler) listOffers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListOffers(r.Context(), providerCode(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) offerClassification(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetOfferClassification(r.Context(), providerCode(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}
