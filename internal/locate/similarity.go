// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package locate

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tokenWeight discounts the token-based scores against a plain ratio so a
// reordered or partial heading never outranks an exact one.
const tokenWeight = 0.95

var (
	folder = cases.Fold()

	// stopwords are ignored when comparing token sets.
	stopwords = map[string]bool{"and": true, "of": true, "the": true, "for": true, "in": true, "a": true}

	romanNumerals = map[string]bool{
		"i": true, "ii": true, "iii": true, "iv": true, "v": true,
		"vi": true, "vii": true, "viii": true, "ix": true, "x": true,
	}
)

// Normalize prepares a heading for comparison: compatibility decomposition
// with diacritics removed, case folding, "&" spelled out, punctuation
// replaced by spaces, and a leading section number ("2.1", "IV") dropped.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = folder.String(s)
	s = strings.ReplaceAll(s, "&", " and ")

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)

	tokens := strings.Fields(s)
	for len(tokens) > 1 && isNumbering(tokens[0]) {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}

func isNumbering(tok string) bool {
	if romanNumerals[tok] {
		return true
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Similarity scores two headings on a 0-100 scale. The score is symmetric:
// the best of an edit-distance ratio and two token-based ratios (sorted
// tokens, and the fuzzy token-set comparison that tolerates extra words such
// as "Methods (continued)").
func Similarity(a, b string) float64 {
	return similarity(Normalize(a), Normalize(b))
}

func similarity(a, b string) float64 {
	best := ratio(a, b)
	if s := tokenWeight * tokenSortRatio(a, b); s > best {
		best = s
	}
	if s := tokenWeight * tokenSetRatio(a, b); s > best {
		best = s
	}
	return best
}

// ratio is 100 * (1 - distance / longest length).
func ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

func tokenSortRatio(a, b string) float64 {
	return ratio(sortedTokens(strings.Fields(a)), sortedTokens(strings.Fields(b)))
}

func tokenSetRatio(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for tok := range setA {
		if setB[tok] {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			onlyB = append(onlyB, tok)
		}
	}

	t0 := sortedTokens(inter)
	t1 := strings.TrimSpace(t0 + " " + sortedTokens(onlyA))
	t2 := strings.TrimSpace(t0 + " " + sortedTokens(onlyB))

	best := ratio(t1, t2)
	if t0 != "" {
		best = max(best, ratio(t0, t1), ratio(t0, t2))
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		if !stopwords[tok] {
			set[tok] = true
		}
	}
	return set
}

func sortedTokens(tokens []string) string {
	out := append([]string(nil), tokens...)
	sort.Strings(out)
	return strings.Join(out, " ")
}
