package ingest

import "strings"

// passesKeywordFilter implements spec.md §4.5 step 2: exclude wins
// over include; when the include list is non-empty, at least one
// entry must match. Matching is case-insensitive over title+content.
func passesKeywordFilter(title, content string, include, exclude []string) bool {
	haystack := strings.ToLower(title + " " + content)

	for _, kw := range exclude {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return false
		}
	}

	if len(include) == 0 {
		return true
	}
	for _, kw := range include {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// isRelevant implements spec.md §4.5 step 3b: the target's symbol or
// (case-insensitive) name must appear in the article's title or content.
func isRelevant(title, content, symbol, name string) bool {
	haystack := strings.ToLower(title + " " + content)
	if symbol != "" && strings.Contains(haystack, strings.ToLower(symbol)) {
		return true
	}
	if name != "" && strings.Contains(haystack, strings.ToLower(name)) {
		return true
	}
	return false
}
