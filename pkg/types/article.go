// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the methodscan pipeline:
// article documents as normalized from the bibliographic service, the
// extraction schema, the records produced per article, and configuration.
package types

import "strings"

// ArticleID is the opaque identifier of an article in the bibliographic
// service (a PMC numeric ID for the PMC backend). Nothing in the pipeline
// relies on its internal structure.
type ArticleID string

// Metadata holds the bibliographic fields carried into every Record.
type Metadata struct {
	// ArticleID identifies the article in the bibliographic service.
	ArticleID ArticleID `json:"article_id" yaml:"article_id"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the author names in document order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year as printed in the article.
	Year string `json:"year" yaml:"year"`

	// PMID is the PubMed identifier, when the article carries one.
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`

	// DOI is the digital object identifier, when the article carries one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Journal is the journal title.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`
}

// Section is one node of an article's section tree. A section without a
// heading is kept for its text but is never a Methods candidate.
type Section struct {
	Heading     string    `json:"heading,omitempty" yaml:"heading,omitempty"`
	Paragraphs  []string  `json:"paragraphs,omitempty" yaml:"paragraphs,omitempty"`
	Subsections []Section `json:"subsections,omitempty" yaml:"subsections,omitempty"`
}

// HasHeading reports whether the section carries a non-blank heading.
func (s Section) HasHeading() bool {
	return strings.TrimSpace(s.Heading) != ""
}

// Document is an article normalized at the retrieval boundary. Sections
// are kept in document order.
type Document struct {
	ID       ArticleID `json:"id" yaml:"id"`
	Metadata Metadata  `json:"metadata" yaml:"metadata"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Walk visits every section in document order, depth first. If fn returns
// false the section's subsections are not visited.
func (d *Document) Walk(fn func(s *Section, depth int) bool) {
	var visit func(secs []Section, depth int)
	visit = func(secs []Section, depth int) {
		for i := range secs {
			if fn(&secs[i], depth) {
				visit(secs[i].Subsections, depth+1)
			}
		}
	}
	visit(d.Sections, 0)
}
