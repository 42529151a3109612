package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "single bpn",
			input:    []string{"BPNL001"},
			expected: []string{"BPNL001"},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  BPNL001  ", "BPNL002 "},
			expected: []string{"BPNL001", "BPNL002"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"BPNL002", "BPNL001", "BPNL002"},
			expected: []string{"BPNL002", "BPNL001"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"BPNL001", "", "  ", "BPNL002"},
			expected: []string{"BPNL001", "BPNL002"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
