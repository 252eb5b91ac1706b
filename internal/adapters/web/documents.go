package web

import (
	"net/http"
	"strconv"
	"strings"

	"course-billing/internal/app"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ensureDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.EnsureDocument(r.Context(), providerCode(r), bookingID(r), chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, doc)
}

func (h *Handler) sendDocument(w http.ResponseWriter, r *http.Request) {
	err := h.svc.SendDocument(r.Context(), providerCode(r), bookingID(r), chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "sent"})
}

// documentQuery parses the shared listing/export query parameters.
func documentQuery(r *http.Request) app.DocumentQuery {
	q := r.URL.Query()

	var kinds []string
	if raw := q.Get("kinds"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kinds = append(kinds, k)
			}
		}
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	return app.DocumentQuery{
		Kinds:     kinds,
		DateFrom:  q.Get("from"),
		DateTo:    q.Get("to"),
		Query:     q.Get("q"),
		SortField: q.Get("sort"),
		SortDesc:  q.Get("order") == "desc",
		Page:      page,
		PageSize:  pageSize,
	}
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListDocuments(r.Context(), providerCode(r), documentQuery(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, page)
}

// exportDocuments streams the full filtered document set in the given format.
func (h *Handler) exportDocuments(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := h.svc.ExportDocuments(r.Context(), providerCode(r), format, documentQuery(r))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
		_, _ = w.Write(file.Data)
	}
}
