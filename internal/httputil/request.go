package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// MaxBodyBytes caps request bodies. Documents are markdown, so this leaves
// plenty of room.
const MaxBodyBytes = 10 << 20

// ErrTrailingData is returned when a body holds more than one JSON value.
var ErrTrailingData = errors.New("request body must contain a single JSON value")

// ParseJSON decodes one JSON value from the request body into dest. Oversized
// bodies surface as *http.MaxBytesError and an empty body as io.EOF, both
// wrapped.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if decoder.More() {
		return ErrTrailingData
	}
	return nil
}

// Field is a PATCH member that remembers whether it was sent. Null is kept
// apart from absent so a handler can refuse to clear a required column.
type Field[T any] struct {
	Present bool
	Null    bool
	Value   T
}

// UnmarshalJSON only runs for members present in the body.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// Ptr returns the sent value, or nil when the member was absent or null.
func (f Field[T]) Ptr() *T {
	if !f.Present || f.Null {
		return nil
	}
	v := f.Value
	return &v
}
