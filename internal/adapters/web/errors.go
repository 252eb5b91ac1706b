package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"course-billing/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	Rule      string `json:"rule,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses:
// validation 400, policy violation 422, not found 404, retryable conflict
// 409, everything else 500. The machine-readable code plus field/rule lets
// clients render specific guidance.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{
		Error:     err.Error(),
		RequestID: requestIDFromContext(r.Context()),
	}
	status := http.StatusInternalServerError
	resp.Code = "INTERNAL_ERROR"

	var validation *core.ValidationError
	var policy *core.PolicyViolation
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		resp.Code = "VALIDATION_ERROR"
		resp.Field = validation.Field
	case errors.As(err, &policy):
		status = http.StatusUnprocessableEntity
		resp.Code = "POLICY_VIOLATION"
		resp.Rule = policy.Rule
	case core.IsNotFound(err):
		status = http.StatusNotFound
		resp.Code = "NOT_FOUND"
	case core.IsConflict(err):
		status = http.StatusConflict
		resp.Code = "CONFLICT"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONStatus writes a JSON response with an explicit status code.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
