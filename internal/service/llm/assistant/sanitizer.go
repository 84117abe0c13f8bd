package assistant

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses bounds the fixed-point loop in Clean
const maxSanitizePasses = 4

// Sanitizer strips active HTML from model output before it is stored or
// returned. Safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer uses the UGC policy: common formatting survives while script
// and style bodies, event handler attributes and javascript: URLs are removed.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.UGCPolicy()}
}

// Clean returns text with active HTML removed. bluemonday escapes text nodes,
// which would mangle Markdown (quotes, "a < b", "> quote"), so the escaped
// output is decoded and sanitized again until it no longer changes. Entity
// encoded markup therefore cannot survive as live HTML.
func (s *Sanitizer) Clean(text string) string {
	current := text
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(current))
		if next == current {
			return next
		}
		current = next
	}
	return s.policy.Sanitize(current)
}
