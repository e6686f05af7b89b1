// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives each search result through fetch, section
// location, and extraction, and aggregates the outcomes of a run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/methodscan/internal/query"
	"github.com/pdiddy/methodscan/pkg/types"
)

// QueryBuilder turns keywords into a search query.
type QueryBuilder interface {
	Build(ctx context.Context, keywords []string) (query.Query, error)
}

// ArticleSource searches for and fetches articles.
type ArticleSource interface {
	Search(ctx context.Context, q query.Query, maxResults int) ([]types.ArticleID, error)
	Fetch(ctx context.Context, id types.ArticleID) (*types.Document, error)
}

// MethodsLocator extracts the Methods text of a document.
type MethodsLocator interface {
	ExtractMethods(doc *types.Document) (string, bool)
}

// RecordExtractor produces a Record from Methods text. It never fails.
type RecordExtractor interface {
	Extract(ctx context.Context, meta types.Metadata, methodsText string) types.Record
}

// Pipeline wires the stages of a run together.
type Pipeline struct {
	Builder   QueryBuilder
	Source    ArticleSource
	Locator   MethodsLocator
	Extractor RecordExtractor

	// MaxResults caps the number of articles per run.
	MaxResults int
	Config     types.PipelineConfig
	Logger     *zap.Logger

	// Progress receives one human-readable line per article. May be nil.
	Progress io.Writer

	mu sync.Mutex
}

// BatchSummary holds counts from a run.
type BatchSummary struct {
	Extracted int
	Diagnosed int
	Skipped   int

	// Unprocessed counts search results never started because the run was
	// interrupted.
	Unprocessed int
}

// Total returns the number of articles that reached a terminal state.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped
}

// HasFailures reports whether any article was skipped, left unprocessed or
// yielded a Record with a diagnostic.
func (s BatchSummary) HasFailures() bool {
	return s.Skipped > 0 || s.Diagnosed > 0 || s.Unprocessed > 0
}

// Summarize counts the outcomes in out.
func Summarize(out types.RunOutput) BatchSummary {
	s := BatchSummary{Extracted: len(out.Records)}
	for _, sk := range out.Skipped {
		if sk.State == types.StateQueued {
			s.Unprocessed++
		} else {
			s.Skipped++
		}
	}
	for _, r := range out.Records {
		if r.Diagnostic != nil {
			s.Diagnosed++
		}
	}
	return s
}

// outcome is the terminal result of one article chain: exactly one of
// record and skip is set.
type outcome struct {
	record *types.Record
	skip   *types.SkipEntry
}

// now is replaced in tests.
var now = time.Now

// Run executes one batch. It fails only when no query can be built from
// keywords; every later failure is confined to its article. Records and
// skip entries follow search order whatever order the chains finish in.
//
// Cancelling ctx stops enqueueing. Chains already started run to their
// terminal state on a context detached from ctx, bounded by the per-call
// timeouts of their clients. Results never started get a skip entry left in
// the queued state.
func (p *Pipeline) Run(ctx context.Context, keywords []string) (types.RunOutput, error) {
	log := p.logger()
	out := types.RunOutput{Keywords: keywords, StartedAt: now()}

	q, err := p.Builder.Build(ctx, keywords)
	if err != nil {
		return out, fmt.Errorf("building query: %w", err)
	}
	out.Query = q.String()
	log.Info("query built", zap.String("query", out.Query))

	ids, err := p.Source.Search(ctx, q, p.MaxResults)
	if err != nil {
		// Logged by the source; the run simply has no articles.
		p.progressf("search failed: %v\n", err)
		out.FinishedAt = now()
		return out, nil
	}

	results := make([]*outcome, len(ids))
	chainCtx := context.WithoutCancel(ctx)

	workers := p.Config.Concurrency
	if workers <= 0 {
		workers = 1
	}
	var limiter *rate.Limiter
	if p.Config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.Config.RequestsPerSecond), 1)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.process(chainCtx, ids[i])
			}
		}()
	}

	enqueued := 0
enqueue:
	for i := range ids {
		if ctx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		select {
		case jobs <- i:
			enqueued++
		case <-ctx.Done():
			break enqueue
		}
	}
	close(jobs)
	wg.Wait()

	if enqueued < len(ids) {
		out.Interrupted = true
		log.Warn("run interrupted",
			zap.Int("enqueued", enqueued),
			zap.Int("found", len(ids)))
	}

	for i, r := range results {
		switch {
		case r == nil:
			out.Skipped = append(out.Skipped, types.SkipEntry{
				ArticleID: ids[i],
				Reason:    types.SkipNotProcessed,
				State:     types.StateQueued,
			})
		case r.record != nil:
			out.Records = append(out.Records, *r.record)
		case r.skip != nil:
			out.Skipped = append(out.Skipped, *r.skip)
		}
	}
	out.FinishedAt = now()
	return out, nil
}

// process runs one article through its state machine:
// queued → fetched | fetch_failed → section_found | section_missing → extracted.
func (p *Pipeline) process(ctx context.Context, id types.ArticleID) *outcome {
	log := p.logger().With(zap.String("article", string(id)))
	state := types.StateQueued

	doc, err := p.Source.Fetch(ctx, id)
	if err != nil {
		state = types.StateFetchFailed
		p.progressf("skipped %s: %s\n", id, types.SkipNoFullText)
		return &outcome{skip: &types.SkipEntry{
			ArticleID: id,
			Reason:    types.SkipNoFullText,
			State:     state,
			Detail:    err.Error(),
		}}
	}
	state = types.StateFetched
	log.Debug("fetched", zap.String("state", string(state)), zap.Int("sections", len(doc.Sections)))

	text, ok := p.Locator.ExtractMethods(doc)
	if !ok {
		state = types.StateSectionMissing
		log.Info("no methods section", zap.String("kind", string(types.KindSectionNotFound)))
		p.progressf("skipped %s: %s\n", id, types.SkipNoMethodsSection)
		return &outcome{skip: &types.SkipEntry{
			ArticleID: id,
			Reason:    types.SkipNoMethodsSection,
			State:     state,
		}}
	}
	state = types.StateSectionFound
	log.Debug("methods located", zap.String("state", string(state)), zap.Int("chars", len(text)))

	meta := doc.Metadata
	if meta.ArticleID == "" {
		meta.ArticleID = id
	}
	rec := p.Extractor.Extract(ctx, meta, text)
	state = types.StateExtracted

	if rec.Diagnostic != nil {
		p.progressf("extracted %s with diagnostic: %s\n", id, rec.Diagnostic.Kind)
	} else {
		p.progressf("extracted %s (%d fields)\n", id, rec.Fields.Filled())
	}
	log.Debug("chain complete", zap.String("state", string(state)))
	return &outcome{record: &rec}
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) progressf(format string, args ...any) {
	if p.Progress == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Progress, format, args...)
}
