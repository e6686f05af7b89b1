// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Diagnostic explains why a Record holds schema defaults instead of
// extracted values.
type Diagnostic struct {
	// Kind is GenerationServiceError or SchemaParseFailure.
	Kind ErrorKind `json:"kind" yaml:"kind"`

	// Reason is the error message reported by the generator or the parser.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// RawOutput preserves the generated text that could not be parsed.
	RawOutput string `json:"raw_output,omitempty" yaml:"raw_output,omitempty"`
}

// Record is the structured result for one article: its metadata plus one
// instance of Schema. A Record always carries every schema field.
type Record struct {
	Metadata      Metadata    `json:"metadata" yaml:"metadata"`
	SchemaVersion string      `json:"schema_version" yaml:"schema_version"`
	Fields        Schema      `json:"fields" yaml:"fields"`
	Diagnostic    *Diagnostic `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
}

// Skip reasons reported for articles that do not yield a Record.
const (
	SkipNoFullText       = "no full text"
	SkipNoMethodsSection = "no methods section"
	SkipNotProcessed     = "not processed (run interrupted)"
)

// SkipEntry records an article that left the pipeline before extraction.
type SkipEntry struct {
	ArticleID ArticleID    `json:"article_id" yaml:"article_id"`
	Reason    string       `json:"reason" yaml:"reason"`
	State     ArticleState `json:"state" yaml:"state"`

	// Detail carries the underlying error message for logging.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// ArticleState is a position in the per-article state machine:
// queued → fetched | fetch_failed → section_found | section_missing → extracted.
type ArticleState string

const (
	StateQueued         ArticleState = "queued"
	StateFetched        ArticleState = "fetched"
	StateFetchFailed    ArticleState = "fetch_failed"
	StateSectionFound   ArticleState = "section_found"
	StateSectionMissing ArticleState = "section_missing"
	StateExtracted      ArticleState = "extracted"
)

// Terminal reports whether no further transition is possible from s.
func (s ArticleState) Terminal() bool {
	switch s {
	case StateFetchFailed, StateSectionMissing, StateExtracted:
		return true
	}
	return false
}

// RunOutput is the result of one pipeline run: Records in search order and
// a skip log holding every article that did not yield a Record.
type RunOutput struct {
	// ID is assigned when the run is saved to a store.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	Keywords []string    `json:"keywords" yaml:"keywords"`
	Query    string      `json:"query" yaml:"query"`
	Records  []Record    `json:"records" yaml:"records"`
	Skipped  []SkipEntry `json:"skipped" yaml:"skipped"`

	// Interrupted is set when cancellation stopped the run before every
	// search result was enqueued.
	Interrupted bool `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}
