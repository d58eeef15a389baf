package httpclient

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no sensitive params",
			input:    "https://catalog.example.com/items?limit=100&page=2",
			expected: "https://catalog.example.com/items?limit=100&page=2",
		},
		{
			name:     "api_key param",
			input:    "https://catalog.example.com/items?api_key=secret123&limit=100",
			expected: "https://catalog.example.com/items?api_key=%5BREDACTED%5D&limit=100",
		},
		{
			name:     "token param",
			input:    "https://catalog.example.com/items?limit=100&token=abc123",
			expected: "https://catalog.example.com/items?limit=100&token=%5BREDACTED%5D",
		},
		{
			name:     "multiple sensitive params",
			input:    "https://catalog.example.com/items?api_key=key1&password=pass1&token=tok1",
			expected: "https://catalog.example.com/items?api_key=%5BREDACTED%5D&password=%5BREDACTED%5D&token=%5BREDACTED%5D",
		},
		{
			name:     "case insensitive",
			input:    "https://catalog.example.com/items?API_KEY=secret&ToKeN=tok",
			expected: "https://catalog.example.com/items?API_KEY=%5BREDACTED%5D&ToKeN=%5BREDACTED%5D",
		},
		{
			name:     "substring match in param name",
			input:    "https://catalog.example.com/items?my_api_key_value=secret",
			expected: "https://catalog.example.com/items?my_api_key_value=%5BREDACTED%5D",
		},
		{
			name:     "no query string",
			input:    "https://catalog.example.com/items",
			expected: "https://catalog.example.com/items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sanitizeURL(u))
		})
	}
}

func TestSanitizeURLNil(t *testing.T) {
	assert.Empty(t, sanitizeURL(nil))
}

func TestIsSensitiveParam(t *testing.T) {
	tests := []struct {
		param    string
		expected bool
	}{
		{"api_key", true},
		{"APIKEY", true},
		{"token", true},
		{"password", true},
		{"auth", true},
		{"secret", true},
		{"key", true},
		{"credential", true},
		{"bearer_token", true},
		{"limit", false},
		{"collections", false},
		{"datetime", false},
		{"bbox", false},
	}

	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, isSensitiveParam(tt.param))
		})
	}
}
