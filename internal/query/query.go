// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns user keywords into a boolean search expression
// enriched with controlled-vocabulary (MeSH) synonyms.
package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/methodscan/pkg/types"
)

// Field is the search field a term is restricted to.
type Field string

const (
	FieldTitleAbstract Field = "tiab"
	FieldMeSH          Field = "MeSH Terms"
	FieldFilter        Field = "filter"
)

// OpenAccessFilter restricts results to freely accessible full texts.
var OpenAccessFilter = Term{Text: "open access", Field: FieldFilter}

// ErrNoKeywords is returned when Build receives no usable keyword.
var ErrNoKeywords = errors.New("no keywords: provide at least one search term")

// Term is one field-annotated search term.
type Term struct {
	Text  string `json:"text" yaml:"text"`
	Field Field  `json:"field" yaml:"field"`
}

func (t Term) String() string {
	return `"` + strings.ReplaceAll(t.Text, `"`, "") + `"[` + string(t.Field) + `]`
}

// Clause is the OR group for one keyword: the raw term first, then its
// expansions.
type Clause struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Terms   []Term `json:"terms" yaml:"terms"`

	// Degraded is set when synonym lookup failed and the clause holds the
	// raw term only.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

func (c Clause) String() string {
	parts := make([]string, len(c.Terms))
	for i, t := range c.Terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// Query ANDs one clause per keyword with a trailing filter clause.
type Query struct {
	Clauses []Clause `json:"clauses" yaml:"clauses"`
	Filter  Term     `json:"filter" yaml:"filter"`
}

// String renders the query in E-utilities syntax.
func (q Query) String() string {
	parts := make([]string, 0, len(q.Clauses)+1)
	for _, c := range q.Clauses {
		parts = append(parts, c.String())
	}
	parts = append(parts, q.Filter.String())
	return strings.Join(parts, " AND ")
}

// Thesaurus looks up controlled-vocabulary synonyms for a term.
type Thesaurus interface {
	Lookup(ctx context.Context, term string, limit int) ([]string, error)
}

const defaultMaxSynonyms = 5

// Builder expands keywords into a Query.
type Builder struct {
	thesaurus   Thesaurus
	maxSynonyms int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewBuilder returns a Builder using th for expansions. A nil thesaurus
// builds raw-term clauses only.
func NewBuilder(th Thesaurus, cfg types.SearchConfig, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxSyn := cfg.MaxSynonyms
	if maxSyn <= 0 {
		maxSyn = defaultMaxSynonyms
	}
	return &Builder{
		thesaurus:   th,
		maxSynonyms: maxSyn,
		timeout:     cfg.ThesaurusTimeout,
		logger:      logger,
	}
}

// Build returns one clause per non-blank keyword, in keyword order, plus the
// open-access filter. A failed or timed-out lookup degrades that keyword's
// clause to the raw term; it never fails the build.
func (b *Builder) Build(ctx context.Context, keywords []string) (Query, error) {
	var terms []string
	for _, kw := range keywords {
		if kw = strings.Join(strings.Fields(kw), " "); kw != "" {
			terms = append(terms, kw)
		}
	}
	if len(terms) == 0 {
		return Query{}, ErrNoKeywords
	}

	clauses := make([]Clause, len(terms))
	var wg sync.WaitGroup
	for i, term := range terms {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			clauses[i] = b.expand(ctx, term)
		}(i, term)
	}
	wg.Wait()

	return Query{Clauses: clauses, Filter: OpenAccessFilter}, nil
}

func (b *Builder) expand(ctx context.Context, term string) Clause {
	c := Clause{
		Keyword: term,
		Terms:   []Term{{Text: term, Field: FieldTitleAbstract}},
	}
	if b.thesaurus == nil {
		return c
	}

	lctx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	synonyms, err := b.thesaurus.Lookup(lctx, term, b.maxSynonyms)
	if err != nil {
		b.logger.Debug("synonym lookup degraded",
			zap.String("term", term),
			zap.String("kind", string(types.KindQueryExpansionDegraded)),
			zap.Error(err))
		c.Degraded = true
		return c
	}

	seen := map[string]bool{strings.ToLower(term): true}
	for _, s := range synonyms {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		c.Terms = append(c.Terms, Term{Text: s, Field: FieldMeSH})
		if len(c.Terms)-1 == b.maxSynonyms {
			break
		}
	}
	return c
}
