package market

import "strings"

// Search matches tokens whose name, symbol or slug contains query, ignoring case.
// An empty query matches nothing.
func Search(tokens []Token, query string) []Token {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Token
	for _, t := range tokens {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Symbol), q) ||
			strings.Contains(strings.ToLower(t.Slug), q) {
			out = append(out, t)
		}
	}
	return out
}
