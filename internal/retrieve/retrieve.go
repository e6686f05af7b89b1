// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve searches a bibliographic service for candidate articles
// and fetches their full text as normalized types.Document trees.
package retrieve

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/methodscan/internal/query"
	"github.com/pdiddy/methodscan/pkg/types"
)

// ErrNoFullText reports that the service knows the article but offers no
// accessible full text. It is an expected outcome, not a transport failure.
var ErrNoFullText = errors.New("no full text available")

// Backend talks to one bibliographic service. Implementations classify
// transport failures, non-success statuses, and unparseable payloads as
// errors, and normalize payloads into types before returning.
type Backend interface {
	Name() string
	Search(ctx context.Context, term string, maxResults int) ([]types.ArticleID, error)
	Fetch(ctx context.Context, id types.ArticleID) (*types.Document, error)
}

// Retriever wraps a Backend with error classification and logging. Its
// failures are never fatal to a run: callers skip and continue.
type Retriever struct {
	backend Backend
	logger  *zap.Logger
}

// New returns a Retriever over backend.
func New(backend Backend, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{backend: backend, logger: logger}
}

// Search runs q and returns at most maxResults article IDs in service order.
// On any failure it logs and returns an empty slice together with a
// RetrievalFailure error the caller may inspect.
func (r *Retriever) Search(ctx context.Context, q query.Query, maxResults int) ([]types.ArticleID, error) {
	term := q.String()
	ids, err := r.backend.Search(ctx, term, maxResults)
	if err != nil {
		r.logger.Warn("search failed",
			zap.String("backend", r.backend.Name()),
			zap.String("query", term),
			zap.Error(err))
		return nil, types.NewStageError(types.KindRetrievalFailure, "search "+r.backend.Name(), err)
	}
	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	r.logger.Info("search complete",
		zap.String("backend", r.backend.Name()),
		zap.Int("results", len(ids)))
	return ids, nil
}

// Fetch returns the article's document. Both a missing full text and a
// transport failure come back as RetrievalFailure; errors.Is(err,
// ErrNoFullText) tells them apart for logging.
func (r *Retriever) Fetch(ctx context.Context, id types.ArticleID) (*types.Document, error) {
	doc, err := r.backend.Fetch(ctx, id)
	if err == nil && (doc == nil || len(doc.Sections) == 0) {
		err = ErrNoFullText
	}
	if err != nil {
		if errors.Is(err, ErrNoFullText) {
			r.logger.Info("no full text", zap.String("article", string(id)))
		} else {
			r.logger.Warn("fetch failed", zap.String("article", string(id)), zap.Error(err))
		}
		return nil, types.NewStageError(types.KindRetrievalFailure, fmt.Sprintf("fetch %s", id), err)
	}
	return doc, nil
}
