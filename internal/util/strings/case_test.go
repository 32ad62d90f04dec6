package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Order", []string{"Order"}},
		{"OrderLine", []string{"Order", "Line"}},
		{"HTTPRequest", []string{"HTTP", "Request"}},
		{"createdAt", []string{"created", "At"}},
		{"snake_case_name", []string{"snake", "case", "name"}},
		{"Line2Item", []string{"Line2", "Item"}},
		{"ID", []string{"ID"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Words(tt.input))
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"User", "user"},
		{"BlogPost", "blog_post"},
		{"HTTPRequest", "http_request"},
		{"createdAt", "created_at"},
		{"already_snake", "already_snake"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSnakeCase(tt.input))
		})
	}
}

func TestHumanize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"OrderLine", "Order Line"},
		{"createdAt", "Created At"},
		{"HTTPRequest", "HTTP Request"},
		{"email", "Email"},
		{"postal_code", "Postal Code"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Humanize(tt.input))
		})
	}
}
