package util

import "testing"

func TestNormalizeTagSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Basic normalization
		{"lowercase", "SALE", "sale"},
		{"spaces to dashes", "summer sale", "summer-sale"},
		{"underscores to dashes", "summer_sale", "summer-sale"},
		{"already normalized", "summer-sale", "summer-sale"},

		// Whitespace handling
		{"trim whitespace", "  sale  ", "sale"},
		{"multiple spaces", "summer   sale", "summer-sale"},
		{"tabs and spaces", "summer\t sale", "summer-sale"},

		// Special characters
		{"emoji removal", "🔥 Hot Deals!", "hot-deals"},
		{"slash to dash", "home/kitchen", "home-kitchen"},
		{"apostrophe removal", "kids' toys", "kids-toys"},

		// Dash handling
		{"multiple dashes", "summer--sale", "summer-sale"},
		{"leading dashes", "--sale", "sale"},
		{"trailing dashes", "sale--", "sale"},
		{"mixed dashes", "--summer--sale--", "summer-sale"},

		// Edge cases
		{"empty string", "", ""},
		{"only spaces", "   ", ""},
		{"only special chars", "!@#$%", ""},
		{"numbers allowed", "top10", "top10"},
		{"mixed case with numbers", "Top 10 Deals", "top-10-deals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTagSlug(tt.input); got != tt.expected {
				t.Errorf("NormalizeTagSlug(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
