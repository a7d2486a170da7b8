package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestProcessor() *TextProcessor {
	return NewTextProcessor(zap.NewNop())
}

func TestTruncateText(t *testing.T) {
	tp := newTestProcessor()

	tests := []struct {
		name     string
		text     string
		maxSize  int
		expected string
	}{
		{name: "under limit", text: "short", maxSize: 100, expected: "short"},
		{name: "at limit", text: "exact", maxSize: 5, expected: "exact"},
		{name: "over limit", text: "truncate me", maxSize: 8, expected: "truncate"},
		{name: "zero max keeps text", text: "anything", maxSize: 0, expected: "anything"},
		{name: "empty input", text: "", maxSize: 10, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tp.TruncateText(tt.text, tt.maxSize))
		})
	}
}

func TestTruncateTextRespectsUTF8Boundary(t *testing.T) {
	tp := newTestProcessor()

	// "héllo" with é as two bytes; cutting at 2 would split the rune
	text := "héllo"
	truncated := tp.TruncateText(text, 2)
	assert.True(t, utf8.ValidString(truncated))
	assert.Equal(t, "h", truncated)
}

func TestSanitizeUTF8(t *testing.T) {
	tp := newTestProcessor()

	assert.Equal(t, "clean text", tp.SanitizeUTF8("clean text"))
	assert.Equal(t, "café", tp.SanitizeUTF8("café"))

	invalid := "bad\xffbyte"
	sanitized := tp.SanitizeUTF8(invalid)
	assert.True(t, utf8.ValidString(sanitized))
	assert.Equal(t, "badbyte", sanitized)
}

func TestProcessText(t *testing.T) {
	tp := newTestProcessor()

	long := strings.Repeat("a", 200) + "\xff"
	processed := tp.ProcessText(long, 100)
	assert.Len(t, processed, 100)
	assert.True(t, utf8.ValidString(processed))
}
