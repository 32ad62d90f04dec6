package strings

import (
	"strings"
	"unicode"
)

// Words splits a Go identifier into its words. Acronyms stay together
// (HTTPRequest -> HTTP, Request) and underscores separate words.
func Words(s string) []string {
	var (
		words   []string
		current []rune
	)
	runes := []rune(s)

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = nil
		}
	}

	for i, r := range runes {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			// Boundary before an uppercase letter if:
			// 1. Previous char is lowercase or a digit
			// 2. Next char is lowercase (end of an acronym)
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				flush()
			} else if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()
	return words
}

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// Humanize converts an identifier into a display label
// (OrderLine -> Order Line, createdAt -> Created At, HTTPRequest -> HTTP Request)
func Humanize(s string) string {
	words := Words(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
