package ui

import (
	"reflect"
	"testing"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1       string
		s2       string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"Order", "Ordr", 1},
		{"crm.Customer", "crm.Custmer", 1},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			result := LevenshteinDistance(tt.s1, tt.s2)
			if result != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d; want %d", tt.s1, tt.s2, result, tt.expected)
			}
		})
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{"crm.Customer", "crm.Address", "sales.Order", "sales.OrderLine", "catalog.Product"}

	tests := []struct {
		name     string
		target   string
		opts     *FuzzyMatchOptions
		expected []string
	}{
		{
			name:     "exact match",
			target:   "sales.Order",
			expected: []string{"sales.Order"},
		},
		{
			name:     "typo in full id",
			target:   "crm.Custmer",
			expected: []string{"crm.Customer"},
		},
		{
			name:     "last segment only",
			target:   "Ordr",
			expected: []string{"sales.Order"},
		},
		{
			name:     "case insensitive",
			target:   "CRM.CUSTOMER",
			expected: []string{"crm.Customer"},
		},
		{
			name:     "case sensitive",
			target:   "CRM.CUSTOMER",
			opts:     &FuzzyMatchOptions{CaseSensitive: true},
			expected: []string{},
		},
		{
			name:     "no match",
			target:   "inventory.Warehouse",
			expected: []string{},
		},
		{
			name:     "limited suggestions",
			target:   "Order",
			opts:     &FuzzyMatchOptions{MaxDistance: 10, MaxSuggestions: 2},
			expected: []string{"sales.Order", "sales.OrderLine"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindSimilar(tt.target, candidates, tt.opts)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("FindSimilar(%q) = %v; want %v", tt.target, result, tt.expected)
			}
		})
	}
}

func TestFindSimilarDoesNotMutateOptions(t *testing.T) {
	opts := &FuzzyMatchOptions{}
	FindSimilar("Order", []string{"sales.Order"}, opts)

	if opts.MaxDistance != 0 || opts.MaxSuggestions != 0 {
		t.Errorf("FindSimilar() mutated options: %+v", opts)
	}
}

func TestFindSimilarEmptyCandidates(t *testing.T) {
	result := FindSimilar("Order", nil, nil)
	if len(result) != 0 {
		t.Errorf("FindSimilar() with no candidates = %v; want empty", result)
	}
}
