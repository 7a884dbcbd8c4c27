// Package textsearch implements the accent and case insensitive matching used
// by the dashboard search boxes ("medecin" finds "Médecin", "ELISE" finds
// "Élise").
package textsearch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Fold strips diacritics, case-folds and trims s.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(folder.String(out))
}

// Match reports whether every whitespace separated term of query occurs in at
// least one of fields. An empty query matches everything.
func Match(query string, fields ...string) bool {
	terms := strings.Fields(Fold(query))
	if len(terms) == 0 {
		return true
	}
	folded := make([]string, len(fields))
	for i, f := range fields {
		folded[i] = Fold(f)
	}
	for _, term := range terms {
		found := false
		for _, f := range folded {
			if strings.Contains(f, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
