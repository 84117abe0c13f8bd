package httputil

import (
	"fmt"
	"net/http"
	"strconv"

	"planwise/internal/domain"
)

// PathInt parses an integer path parameter
func PathInt(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Message: fmt.Sprintf("%s must be an integer", name)}
	}
	return n, nil
}

// QueryInt parses an optional integer query parameter. Absent yields nil.
func QueryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("%s must be an integer", name)}
	}
	return &n, nil
}
