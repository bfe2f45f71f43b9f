package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single value", "https://example.com", []string{"https://example.com"}},
		{"multiple values", "a,b,c", []string{"a", "b", "c"}},
		{"trims whitespace", " a , b , c ", []string{"a", "b", "c"}},
		{"skips empty segments", "a,,b,", []string{"a", "b"}},
		{"only separators", ", ,,", nil},
		{"wildcard", "*", []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCSV(tt.input))
		})
	}
}
