package usecase

import (
	"regexp"
	"strings"
)

// maxExpandedTerms bounds ExpandTerms output; there are six broadening steps.
const maxExpandedTerms = 6

const unitWords = `(?:l|lt|lts|litro|litros|ml|mls|mililitro|mililitros|g|gr|gramo|gramos|kg|kilo|kilos)`

var (
	sizeTokenRegex    = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*` + unitWords + `\b`)
	unitAfterNumRegex = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*` + unitWords + `\b`)
	unitWordOnlyRegex = regexp.MustCompile(`\b` + unitWords + `\b`)
	looseNumberRegex  = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// NormalizeQuery lower-cases, strips diacritics and unifies separators without touching units
func NormalizeQuery(q string) string {
	return baseNormalize(q)
}

// ExpandTerms derives progressively broader retrieval terms for lexical upstream search.
// The most specific term comes first; the result is de-duplicated and empty for blank input.
func ExpandTerms(query string) []string {
	base := NormalizeQuery(query)
	if base == "" {
		return nil
	}

	terms := make([]string, 0, maxExpandedTerms)
	seen := make(map[string]bool, maxExpandedTerms)
	add := func(s string) {
		t := NormalizeQuery(s)
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		terms = append(terms, t)
	}

	add(base)
	add(removeUnitAfterNumber(base))

	withoutSize := removeSizeToken(base)
	if withoutSize != base {
		add(withoutSize)
	}

	withoutUnits := stripUnitWords(base)
	if withoutUnits != base {
		add(withoutUnits)
	}

	withoutNumbers := stripNumbers(firstNonEmpty(withoutSize, base))
	if withoutNumbers != base {
		add(withoutNumbers)
	}

	first := firstWord(firstNonEmpty(withoutUnits, withoutSize, base))
	if first != base {
		add(first)
	}

	return terms
}

func removeSizeToken(s string) string {
	return collapseSpaces(sizeTokenRegex.ReplaceAllString(NormalizeQuery(s), " "))
}

func removeUnitAfterNumber(s string) string {
	return collapseSpaces(unitAfterNumRegex.ReplaceAllString(NormalizeQuery(s), " ${1} "))
}

func stripUnitWords(s string) string {
	return collapseSpaces(unitWordOnlyRegex.ReplaceAllString(NormalizeQuery(s), " "))
}

func stripNumbers(s string) string {
	return collapseSpaces(looseNumberRegex.ReplaceAllString(NormalizeQuery(s), " "))
}

func firstWord(s string) string {
	fields := strings.Fields(NormalizeQuery(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
