package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_Clean(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"markdown untouched", "## Scope\n- Don't sync \"drafts\" & photos\n> quoted", "## Scope\n- Don't sync \"drafts\" & photos\n> quoted"},
		{"comparison", "latency < 200ms and size > 1MB", "latency < 200ms and size > 1MB"},
		{"script body removed", "Plan<script>alert(1)</script> done", "Plan done"},
		{"style body removed", "<style>body{display:none}</style>Visible", "Visible"},
		{"formatting kept", "<b>bold</b> text", "<b>bold</b> text"},
		{"encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;ok", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Clean(tt.in))
		})
	}
}

func TestSanitizer_RemovesActiveAttributes(t *testing.T) {
	s := NewSanitizer()

	out := s.Clean(`<a href="javascript:alert(1)" onclick="steal()">link</a> <iframe src="https://evil.example"></iframe>`)
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "iframe")
	assert.Contains(t, out, "link")
}
