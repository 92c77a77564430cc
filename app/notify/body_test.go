package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLBody(t *testing.T) {
	tests := []struct {
		name     string
		input    Notification
		expected string
	}{
		{
			name:     "anchor",
			input:    Notification{Title: "Go 1.22 is released", Link: "https://go.dev/blog/go1.22"},
			expected: `<a href="https://go.dev/blog/go1.22">Go 1.22 is released</a>`,
		},
		{
			name:     "escaped",
			input:    Notification{Title: "Tom & Jerry <3", Link: "https://example.com/?a=1&b=2"},
			expected: `<a href="https://example.com/?a=1&amp;b=2">Tom &amp; Jerry &lt;3</a>`,
		},
		{
			name:     "missing title falls back to link",
			input:    Notification{Link: "https://example.com/x"},
			expected: `<a href="https://example.com/x">https://example.com/x</a>`,
		},
		{
			name:     "excerpt",
			input:    Notification{Title: "T", Link: "L", Excerpt: "Some text"},
			expected: "<a href=\"L\">T</a>\n\nSome text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTMLBody(tt.input))
		})
	}
}

func TestTextBody(t *testing.T) {
	assert.Equal(t, "Title\nhttps://example.com", TextBody(Notification{Title: "Title", Link: "https://example.com"}))
	assert.Equal(t, "https://example.com", TextBody(Notification{Link: "https://example.com"}))
}
