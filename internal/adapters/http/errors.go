package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/logging"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSchemaViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrMissingReference),
		errors.Is(err, domain.ErrSelfReference),
		errors.Is(err, domain.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateName),
		errors.Is(err, domain.ErrInUse),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func newErrorResponse(err error) (int, errorResponse) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return status, errorResponse{Error: "internal server error", Code: "internal"}
	}
	return status, errorResponse{Error: err.Error(), Code: domain.Code(err), Details: domain.Details(err)}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := newErrorResponse(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
