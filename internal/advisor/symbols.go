package advisor

import (
	"strings"
)

// ExtractTickers returns the known tickers mentioned in text, deduplicated, in order of
// first mention. Matching is on whole alphanumeric words.
func ExtractTickers(text string, known []string) []string {
	if len(known) == 0 {
		return nil
	}
	set := make(map[string]bool, len(known))
	for _, k := range known {
		if k != "" {
			set[strings.ToUpper(k)] = true
		}
	}

	words := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})

	seen := make(map[string]bool)
	var result []string
	for _, w := range words {
		if set[w] && !seen[w] {
			seen[w] = true
			result = append(result, w)
		}
	}
	return result
}
