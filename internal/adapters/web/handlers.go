// Package web exposes the billing engine as a provider-scoped JSON API.
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"course-billing/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	logger *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, logger *zap.Logger, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/providers/{code}", func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Master data
		r.Get("/customers", h.listCustomers)
		r.Post("/customers", h.createCustomer)
		r.Get("/offers", h.listOffers)
		r.Post("/offers", h.createOffer)
		r.Get("/offers/{id}/classification", h.offerClassification)

		// Booking lifecycle
		r.Get("/bookings", h.listBookings)
		r.Post("/bookings", h.createBooking)
		r.Get("/bookings/{id}", h.getBooking)
		r.Post("/bookings/{id}/cancel", h.cancelBooking)
		r.Post("/bookings/{id}/storno", h.stornoBooking)
		r.Post("/bookings/{id}/restore", h.restoreBooking)

		// Documents
		r.Post("/bookings/{id}/documents/{kind}", h.ensureDocument)
		r.Post("/bookings/{id}/documents/{kind}/send", h.sendDocument)
		r.Get("/documents", h.listDocuments)
		r.Get("/documents/export.csv", h.exportDocuments("csv"))
		r.Get("/documents/export.datev", h.exportDocuments("datev"))
		r.Get("/documents/export.xlsx", h.exportDocuments("xlsx"))
		r.Get("/documents/export.zip", h.exportDocuments("zip"))
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// providerCode extracts the {code} URL parameter.
func providerCode(r *http.Request) string {
	return chi.URLParam(r, "code")
}

// decodeJSON decodes the request body into v and writes an appropriate error
// response on failure. Returns HTTP 413 when the body exceeds the size limit
// set by RequestBodyLimit; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
