package httputil

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"planwise/internal/domain"
)

// RespondJSON writes a JSON response with the given status code.
// The body is marshaled before headers go out so an encoding failure still
// produces a clean 500.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// ProblemDetail is an RFC 7807 body. Kind is the domain classification and
// RetryAfterSeconds is only set for throttled requests.
type ProblemDetail struct {
	Type              string      `json:"type"`
	Title             string      `json:"title"`
	Status            int         `json:"status"`
	Detail            string      `json:"detail,omitempty"`
	Kind              domain.Kind `json:"kind,omitempty"`
	RetryAfterSeconds int         `json:"retry_after_seconds,omitempty"`
}

// NewProblem builds the problem body for a status code.
func NewProblem(status int, detail string) ProblemDetail {
	return ProblemDetail{
		Type:   problemType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// RespondError writes an RFC 7807 Problem Details error response
func RespondError(w http.ResponseWriter, status int, detail string) {
	writeProblem(w, NewProblem(status, detail))
}

// RespondDomainError writes a classified core error. The body carries the
// error kind and, for throttling, a retry hint in whole seconds. Internal
// errors never leak their message.
func RespondDomainError(w http.ResponseWriter, err error) {
	problem := ProblemFor(err)
	if problem.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(problem.RetryAfterSeconds))
	}
	writeProblem(w, problem)
}

// ProblemFor classifies err into a problem body. SSE handlers reuse it for
// errors raised after the stream has started.
func ProblemFor(err error) ProblemDetail {
	status := domain.StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal server error"
	}

	problem := NewProblem(status, detail)
	problem.Kind = domain.KindOf(err)

	var limited *domain.RateLimitedError
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		problem.RetryAfterSeconds = int(math.Ceil(limited.RetryAfter.Seconds()))
	}
	return problem
}

func writeProblem(w http.ResponseWriter, problem ProblemDetail) {
	payload, err := json.Marshal(problem)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	w.Write(payload)
}

// problemType returns the RFC 7807 type URI for a status code
func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.1"
	case http.StatusUnauthorized:
		return "https://datatracker.ietf.org/doc/html/rfc7235#section-3.1"
	case http.StatusForbidden:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.3"
	case http.StatusNotFound:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.4"
	case http.StatusConflict:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.8"
	case http.StatusRequestEntityTooLarge:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.11"
	case http.StatusTooManyRequests:
		return "https://datatracker.ietf.org/doc/html/rfc6585#section-4"
	case http.StatusBadGateway:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.6.3"
	case http.StatusGatewayTimeout:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.6.5"
	case http.StatusInternalServerError:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.6.1"
	default:
		return "about:blank"
	}
}
