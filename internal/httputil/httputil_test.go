package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planwise/internal/domain"
)

type patch struct {
	Title Field[string] `json:"title"`
	Count Field[int]    `json:"count"`
}

func TestFieldTracksPresence(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"title": null}`), &p))

	assert.True(t, p.Title.Present)
	assert.True(t, p.Title.Null)
	assert.Nil(t, p.Title.Ptr())
	assert.False(t, p.Count.Present)
	assert.Nil(t, p.Count.Ptr())

	p = patch{}
	require.NoError(t, json.Unmarshal([]byte(`{"title": "", "count": 3}`), &p))
	require.NotNil(t, p.Title.Ptr())
	assert.Equal(t, "", *p.Title.Ptr())
	assert.Equal(t, 3, *p.Count.Ptr())
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, err error)
	}{
		{"valid", `{"title":"a"}`, func(t *testing.T, err error) { require.NoError(t, err) }},
		{"empty", ``, func(t *testing.T, err error) { require.ErrorIs(t, err, io.EOF) }},
		{"trailing", `{"title":"a"} {"title":"b"}`, func(t *testing.T, err error) { require.ErrorIs(t, err, ErrTrailingData) }},
		{"too large", `{"title":"` + strings.Repeat("x", MaxBodyBytes) + `"}`, func(t *testing.T, err error) {
			var tooLarge *http.MaxBytesError
			require.ErrorAs(t, err, &tooLarge)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p patch
			tt.check(t, ParseJSON(httptest.NewRecorder(), r, &p))
		})
	}
}

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		kind       domain.Kind
		detail     string
		retryAfter string
	}{
		{"validation", &domain.ValidationError{Message: "title is required"}, http.StatusBadRequest, domain.KindValidation, "title is required", ""},
		{"conflict", &domain.ConflictError{Message: "stale"}, http.StatusConflict, domain.KindConflict, "stale", ""},
		{"timeout", domain.NewAITimeoutError(errors.New("deadline")), http.StatusGatewayTimeout, domain.KindAIService, "ai service timed out: deadline", ""},
		{"rate limited", &domain.RateLimitedError{Message: "slow down", RetryAfter: 1500 * time.Millisecond}, http.StatusTooManyRequests, domain.KindRateLimited, "slow down", "2"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, domain.KindInternal, "internal server error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondDomainError(rec, tt.err)

			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))

			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.kind, problem.Kind)
			assert.Equal(t, tt.detail, problem.Detail)
			assert.Equal(t, tt.status, problem.Status)
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?step=3&bad=x", nil)

	step, err := QueryInt(r, "step")
	require.NoError(t, err)
	assert.Equal(t, 3, *step)

	missing, err := QueryInt(r, "status")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = QueryInt(r, "bad")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
