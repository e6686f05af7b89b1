// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. Each kind has a fixed local
// handling rule; none aborts a run.
type ErrorKind string

const (
	// KindQueryExpansionDegraded: a thesaurus lookup failed; the keyword
	// is searched without synonyms.
	KindQueryExpansionDegraded ErrorKind = "query_expansion_degraded"

	// KindRetrievalFailure: search or fetch failed (transport, timeout,
	// status, malformed payload, or no full text). The article is skipped.
	KindRetrievalFailure ErrorKind = "retrieval_failure"

	// KindSectionNotFound: no heading cleared the similarity threshold.
	KindSectionNotFound ErrorKind = "section_not_found"

	// KindGenerationServiceError: the generation service reported an
	// explicit error. The article still yields an all-default Record.
	KindGenerationServiceError ErrorKind = "generation_service_error"

	// KindSchemaParseFailure: no valid JSON object in the generated text.
	KindSchemaParseFailure ErrorKind = "schema_parse_failure"
)

// StageError attaches an ErrorKind and the failing operation to an error.
type StageError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with kind and op.
func NewStageError(kind ErrorKind, op string, err error) *StageError {
	return &StageError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the ErrorKind of the first StageError in err's chain, or ""
// when there is none.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
