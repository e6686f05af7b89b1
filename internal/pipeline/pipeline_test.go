// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/methodscan/internal/extract"
	"github.com/pdiddy/methodscan/internal/locate"
	"github.com/pdiddy/methodscan/internal/query"
	"github.com/pdiddy/methodscan/internal/retrieve"
	"github.com/pdiddy/methodscan/pkg/types"
)

// --- stubs ---

type stubSource struct {
	ids       []types.ArticleID
	searchErr error
	docs      map[types.ArticleID]*types.Document
	delay     map[types.ArticleID]time.Duration

	// onFetch runs at the start of every Fetch.
	onFetch func(ctx context.Context, id types.ArticleID)

	mu      sync.Mutex
	fetched []types.ArticleID
}

func (s *stubSource) Search(_ context.Context, _ query.Query, maxResults int) ([]types.ArticleID, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	ids := s.ids
	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

func (s *stubSource) Fetch(ctx context.Context, id types.ArticleID) (*types.Document, error) {
	if s.onFetch != nil {
		s.onFetch(ctx, id)
	}
	s.mu.Lock()
	s.fetched = append(s.fetched, id)
	s.mu.Unlock()
	if d, ok := s.delay[id]; ok {
		time.Sleep(d)
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, types.NewStageError(types.KindRetrievalFailure, "fetch "+string(id), retrieve.ErrNoFullText)
	}
	return doc, nil
}

type fixedGenerator struct{ out string }

func (g fixedGenerator) Generate(context.Context, string, types.SamplingConfig) (string, error) {
	return g.out, nil
}

type countingLocator struct {
	MethodsLocator
	mu    sync.Mutex
	calls int
}

func (c *countingLocator) ExtractMethods(doc *types.Document) (string, bool) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.MethodsLocator.ExtractMethods(doc)
}

func methodsDoc(id types.ArticleID) *types.Document {
	return &types.Document{
		ID:       id,
		Metadata: types.Metadata{ArticleID: id, Title: "Article " + string(id), Year: "2021"},
		Sections: []types.Section{
			{Heading: "Methods", Paragraphs: []string{"64-channel EEG during an oddball task."}},
			{Heading: "Results", Paragraphs: []string{"P300 amplitude increased."}},
		},
	}
}

func resultsOnlyDoc(id types.ArticleID) *types.Document {
	return &types.Document{
		ID:       id,
		Metadata: types.Metadata{ArticleID: id},
		Sections: []types.Section{{Heading: "Results", Paragraphs: []string{"Nothing else."}}},
	}
}

func newTestPipeline(src *stubSource, cfg types.PipelineConfig) (*Pipeline, *countingLocator) {
	loc := &countingLocator{MethodsLocator: locate.New(types.LocatorConfig{})}
	gen := fixedGenerator{out: `{"study": {"EEG channels": "64", "task": "oddball"}}`}
	return &Pipeline{
		Builder:    query.NewBuilder(query.StaticThesaurus{"eeg": {"Electroencephalography"}}, types.DefaultConfig().Search, nil),
		Source:     src,
		Locator:    loc,
		Extractor:  extract.New(gen, types.DefaultConfig().Extraction, nil),
		MaxResults: 10,
		Config:     cfg,
	}, loc
}

// --- Run ---

func TestRunFetchFailureAndSuccess(t *testing.T) {
	src := &stubSource{
		ids:  []types.ArticleID{"1", "2"},
		docs: map[types.ArticleID]*types.Document{"2": methodsDoc("2")},
	}
	p, loc := newTestPipeline(src, types.PipelineConfig{Concurrency: 1})
	var progress bytes.Buffer
	p.Progress = &progress

	out, err := p.Run(context.Background(), []string{"EEG", "oddball"})

	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, types.ArticleID("2"), out.Records[0].Metadata.ArticleID)
	assert.Equal(t, "64", out.Records[0].Fields.Study.EEGChannels)
	assert.Equal(t, "oddball", out.Records[0].Fields.Study.Task)
	assert.Nil(t, out.Records[0].Diagnostic)

	assert.Equal(t, types.SkipEntry{
		ArticleID: "1",
		Reason:    types.SkipNoFullText,
		State:     types.StateFetchFailed,
		Detail:    "fetch 1: " + retrieve.ErrNoFullText.Error(),
	}, out.Skipped[0])

	// The locator never sees an article whose fetch failed.
	assert.Equal(t, 1, loc.calls)
	assert.Contains(t, out.Query, `"Electroencephalography"[MeSH Terms]`)
	assert.False(t, out.Interrupted)
	assert.Contains(t, progress.String(), "skipped 1: no full text")
	assert.Contains(t, progress.String(), "extracted 2")
}

func TestRunSectionMissing(t *testing.T) {
	src := &stubSource{
		ids:  []types.ArticleID{"1"},
		docs: map[types.ArticleID]*types.Document{"1": resultsOnlyDoc("1")},
	}
	p, _ := newTestPipeline(src, types.PipelineConfig{})

	out, err := p.Run(context.Background(), []string{"EEG"})

	require.NoError(t, err)
	assert.Empty(t, out.Records)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, types.SkipNoMethodsSection, out.Skipped[0].Reason)
	assert.Equal(t, types.StateSectionMissing, out.Skipped[0].State)
	assert.True(t, out.Skipped[0].State.Terminal())
}

func TestRunPreservesSearchOrder(t *testing.T) {
	var ids []types.ArticleID
	docs := map[types.ArticleID]*types.Document{}
	delay := map[types.ArticleID]time.Duration{}
	for i := 0; i < 8; i++ {
		id := types.ArticleID(fmt.Sprintf("PMC%d", i))
		ids = append(ids, id)
		if i%3 == 0 {
			docs[id] = resultsOnlyDoc(id)
		} else {
			docs[id] = methodsDoc(id)
		}
		// Earlier articles finish last.
		delay[id] = time.Duration(8-i) * 5 * time.Millisecond
	}
	src := &stubSource{ids: ids, docs: docs, delay: delay}
	p, _ := newTestPipeline(src, types.PipelineConfig{Concurrency: 4, RequestsPerSecond: 1000})

	out, err := p.Run(context.Background(), []string{"EEG"})
	require.NoError(t, err)

	var gotRecords, gotSkipped []types.ArticleID
	for _, r := range out.Records {
		gotRecords = append(gotRecords, r.Metadata.ArticleID)
	}
	for _, s := range out.Skipped {
		gotSkipped = append(gotSkipped, s.ArticleID)
	}
	assert.Equal(t, []types.ArticleID{"PMC1", "PMC2", "PMC4", "PMC5", "PMC7"}, gotRecords)
	assert.Equal(t, []types.ArticleID{"PMC0", "PMC3", "PMC6"}, gotSkipped)
	assert.Equal(t, len(ids), len(out.Records)+len(out.Skipped))
}

func TestRunEveryArticleYieldsOneOutcome(t *testing.T) {
	src := &stubSource{
		ids: []types.ArticleID{"a", "b", "c", "d"},
		docs: map[types.ArticleID]*types.Document{
			"a": methodsDoc("a"),
			"c": resultsOnlyDoc("c"),
			"d": methodsDoc("d"),
		},
	}
	p, _ := newTestPipeline(src, types.PipelineConfig{Concurrency: 3})

	out, err := p.Run(context.Background(), []string{"EEG", "gait"})
	require.NoError(t, err)

	seen := map[types.ArticleID]int{}
	for _, r := range out.Records {
		seen[r.Metadata.ArticleID]++
	}
	for _, s := range out.Skipped {
		seen[s.ArticleID]++
	}
	assert.Equal(t, map[types.ArticleID]int{"a": 1, "b": 1, "c": 1, "d": 1}, seen)

	s := Summarize(out)
	assert.Equal(t, BatchSummary{Extracted: 2, Skipped: 2}, s)
	assert.Equal(t, 4, s.Total())
	assert.True(t, s.HasFailures())
}

func TestRunCancellationStopsEnqueueing(t *testing.T) {
	ids := []types.ArticleID{"1", "2", "3", "4", "5"}
	docs := map[types.ArticleID]*types.Document{}
	for _, id := range ids {
		docs[id] = methodsDoc(id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var chainErrs []error
	var mu sync.Mutex
	src := &stubSource{ids: ids, docs: docs}
	src.onFetch = func(fctx context.Context, id types.ArticleID) {
		if id == "1" {
			cancel()
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		chainErrs = append(chainErrs, fctx.Err())
		mu.Unlock()
	}
	p, _ := newTestPipeline(src, types.PipelineConfig{Concurrency: 1})

	out, err := p.Run(ctx, []string{"EEG"})

	require.NoError(t, err)
	assert.True(t, out.Interrupted)
	assert.Equal(t, len(ids), len(out.Records)+len(out.Skipped), "every search result is accounted for")

	s := Summarize(out)
	assert.GreaterOrEqual(t, s.Total(), 1)
	assert.Less(t, s.Total(), len(ids))
	assert.Equal(t, len(ids)-s.Total(), s.Unprocessed)
	assert.True(t, s.HasFailures())

	var unprocessed []types.ArticleID
	for _, sk := range out.Skipped {
		if sk.State == types.StateQueued {
			assert.Equal(t, types.SkipNotProcessed, sk.Reason)
			unprocessed = append(unprocessed, sk.ArticleID)
		}
	}
	assert.Equal(t, ids[len(ids)-s.Unprocessed:], unprocessed, "unprocessed results keep search order")

	// The in-flight chain finished despite cancellation.
	require.NotEmpty(t, out.Records)
	assert.Equal(t, types.ArticleID("1"), out.Records[0].Metadata.ArticleID)
	for _, e := range chainErrs {
		assert.NoError(t, e)
	}
}

func TestRunQueryFailure(t *testing.T) {
	p, _ := newTestPipeline(&stubSource{}, types.PipelineConfig{})

	_, err := p.Run(context.Background(), []string{"  ", ""})

	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrNoKeywords)
}

func TestRunSearchFailure(t *testing.T) {
	src := &stubSource{searchErr: types.NewStageError(types.KindRetrievalFailure, "search pmc", errors.New("timeout"))}
	p, _ := newTestPipeline(src, types.PipelineConfig{})

	out, err := p.Run(context.Background(), []string{"EEG"})

	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.Empty(t, out.Skipped)
	assert.NotEmpty(t, out.Query)
	assert.False(t, out.FinishedAt.IsZero())
}

func TestRunFillsMissingArticleID(t *testing.T) {
	doc := methodsDoc("")
	src := &stubSource{ids: []types.ArticleID{"PMC9"}, docs: map[types.ArticleID]*types.Document{"PMC9": doc}}
	p, _ := newTestPipeline(src, types.PipelineConfig{})

	out, err := p.Run(context.Background(), []string{"EEG"})

	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, types.ArticleID("PMC9"), out.Records[0].Metadata.ArticleID)
}
