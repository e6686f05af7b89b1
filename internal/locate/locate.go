// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package locate finds the Methods section of an article by fuzzy heading
// match and extracts its text.
package locate

import (
	"strings"

	"github.com/pdiddy/methodscan/pkg/types"
)

// Match describes one accepted section.
type Match struct {
	Heading string  `json:"heading" yaml:"heading"`
	Alias   string  `json:"alias" yaml:"alias"`
	Score   float64 `json:"score" yaml:"score"`
	Depth   int     `json:"depth" yaml:"depth"`

	text string
}

// Locator holds the alias set and threshold. It keeps no per-document
// state and is safe for concurrent use.
type Locator struct {
	aliases    []string
	normalized []string
	threshold  float64
}

// New returns a Locator for cfg, falling back to types.DefaultAliases and
// types.DefaultThreshold for unset values.
func New(cfg types.LocatorConfig) *Locator {
	aliases := cfg.Aliases
	if len(aliases) == 0 {
		aliases = types.DefaultAliases
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = types.DefaultThreshold
	}

	l := &Locator{threshold: threshold}
	for _, a := range aliases {
		if n := Normalize(a); n != "" {
			l.aliases = append(l.aliases, a)
			l.normalized = append(l.normalized, n)
		}
	}
	return l
}

// ExtractMethods is the one-shot form of New(...).ExtractMethods.
func ExtractMethods(doc *types.Document, aliases []string, threshold float64) (string, bool) {
	return New(types.LocatorConfig{Aliases: aliases, Threshold: threshold}).ExtractMethods(doc)
}

// BestAlias returns the alias closest to heading and its score.
func (l *Locator) BestAlias(heading string) (string, float64) {
	h := Normalize(heading)
	if h == "" {
		return "", 0
	}
	bestAlias, best := "", 0.0
	for i, n := range l.normalized {
		if s := similarity(h, n); s > best {
			bestAlias, best = l.aliases[i], s
		}
	}
	return bestAlias, best
}

// Matches returns every qualifying section in document order. Once a
// section qualifies, its subsections belong to it and are not scored.
func (l *Locator) Matches(doc *types.Document) []Match {
	if doc == nil {
		return nil
	}
	var out []Match
	doc.Walk(func(s *types.Section, depth int) bool {
		if !s.HasHeading() {
			return true
		}
		alias, score := l.BestAlias(s.Heading)
		if score < l.threshold {
			return true
		}
		out = append(out, Match{
			Heading: s.Heading,
			Alias:   alias,
			Score:   score,
			Depth:   depth,
			text:    sectionText(s),
		})
		return false
	})
	return out
}

// ExtractMethods returns the paragraph text of every qualifying section,
// headings excluded, sections joined by a blank line. It reports false when
// no section qualifies or the qualifying sections hold no text.
func (l *Locator) ExtractMethods(doc *types.Document) (string, bool) {
	var parts []string
	for _, m := range l.Matches(doc) {
		if m.text != "" {
			parts = append(parts, m.text)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

// sectionText joins a section's own paragraphs and those of all its
// subsections, in document order, one paragraph per line.
func sectionText(s *types.Section) string {
	var paras []string
	var collect func(s *types.Section)
	collect = func(s *types.Section) {
		for _, p := range s.Paragraphs {
			if p = strings.TrimSpace(p); p != "" {
				paras = append(paras, p)
			}
		}
		for i := range s.Subsections {
			collect(&s.Subsections[i])
		}
	}
	collect(s)
	return strings.Join(paras, "\n")
}
