package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeParameters(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected map[string][]string
		wantErr  bool
	}{
		{
			name:     "empty string defaults to empty object",
			raw:      "",
			expected: map[string][]string{},
		},
		{
			name:     "literal empty object",
			raw:      "{}",
			expected: map[string][]string{},
		},
		{
			name:     "single parameter list",
			raw:      `{"a":["1"]}`,
			expected: map[string][]string{"a": {"1"}},
		},
		{
			name: "multiple parameter lists",
			raw:  `{"commands":["uptime","df -h"],"workingDirectory":["/tmp"]}`,
			expected: map[string][]string{
				"commands":         {"uptime", "df -h"},
				"workingDirectory": {"/tmp"},
			},
		},
		{
			name:    "malformed JSON",
			raw:     `{"a":`,
			wantErr: true,
		},
		{
			name:    "wrong shape",
			raw:     `{"a":"not-a-list"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parameters, err := DecodeParameters(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, parameters)
		})
	}
}
