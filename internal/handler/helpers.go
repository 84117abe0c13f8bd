package handler

import (
	"errors"
	"net/http"

	"planwise/internal/domain"
	"planwise/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	httputil.RespondDomainError(w, err)
}

// PathParam extracts a required path parameter, responding 400 when absent
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondDomainError(w, &domain.ValidationError{Message: label + " is required"})
		return "", false
	}
	return value, true
}

// pathInt extracts a required integer path parameter
func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := httputil.PathInt(r, name)
	if err != nil {
		handleError(w, err)
		return 0, false
	}
	return n, true
}

// parseBody decodes the JSON request body, responding 400 on failure
func parseBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := httputil.ParseJSON(w, r, dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		httputil.RespondDomainError(w, &domain.ValidationError{Message: "invalid request body"})
		return false
	}
	return true
}
