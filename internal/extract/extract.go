// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract converts a Methods section into a schema-shaped Record
// through a text-generation service, repairing whatever the model returns.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/methodscan/pkg/types"
)

// errNoObject reports generated text without a balanced JSON object.
var errNoObject = errors.New("no JSON object in generated text")

// Extractor fills one Record per call. It is safe for concurrent use when
// its Generator is.
type Extractor struct {
	gen      Generator
	sampling types.SamplingConfig
	maxChars int
	logger   *zap.Logger
}

// New returns an Extractor that prompts gen with the sampling and input
// limits from cfg.
func New(gen Generator, cfg types.ExtractionConfig, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	sampling := cfg.Sampling
	if sampling.MaxNewTokens <= 0 {
		sampling.MaxNewTokens = 512
	}
	return &Extractor{
		gen:      gen,
		sampling: sampling,
		maxChars: cfg.MaxInputChars,
		logger:   logger,
	}
}

// Extract returns a Record for the article. It never fails: generation and
// parse errors produce an all-default Record carrying a Diagnostic.
func (e *Extractor) Extract(ctx context.Context, meta types.Metadata, methodsText string) types.Record {
	rec := types.Record{
		Metadata:      meta,
		SchemaVersion: types.SchemaVersion,
	}
	log := e.logger.With(zap.String("article", string(meta.ArticleID)))

	prompt, err := renderPrompt(meta, truncate(methodsText, e.maxChars))
	if err != nil {
		rec.Diagnostic = &types.Diagnostic{
			Kind:   types.KindGenerationServiceError,
			Reason: fmt.Sprintf("rendering prompt: %v", err),
		}
		return rec
	}

	raw, err := e.gen.Generate(ctx, prompt, e.sampling)
	if err != nil {
		log.Warn("generation failed",
			zap.String("kind", string(types.KindGenerationServiceError)),
			zap.Error(err))
		rec.Diagnostic = &types.Diagnostic{
			Kind:   types.KindGenerationServiceError,
			Reason: err.Error(),
		}
		return rec
	}

	parsed, err := parseObject(raw)
	if err != nil {
		log.Warn("unparseable generation",
			zap.String("kind", string(types.KindSchemaParseFailure)),
			zap.Error(err))
		rec.Diagnostic = &types.Diagnostic{
			Kind:      types.KindSchemaParseFailure,
			Reason:    err.Error(),
			RawOutput: raw,
		}
		return rec
	}

	merge(&rec.Fields, parsed)
	log.Debug("extracted", zap.Int("filled", rec.Fields.Filled()))
	return rec
}

// parseObject decodes the first JSON object embedded in text.
func parseObject(text string) (map[string]any, error) {
	_, obj, err := firstObject(text)
	return obj, err
}

// firstObject returns the first brace-balanced {...} span in text that
// decodes as a JSON object. An opening brace that never balances is skipped
// on its own; a balanced span that does not decode is skipped whole. Braces
// inside JSON strings, including escaped quotes, do not count.
func firstObject(text string) (string, map[string]any, error) {
	var decodeErr error
	for i := 0; i < len(text); {
		start := strings.IndexByte(text[i:], '{')
		if start < 0 {
			break
		}
		start += i
		end, ok := balancedEnd(text, start)
		if !ok {
			i = start + 1
			continue
		}
		span := text[start:end]
		obj, err := decodeObject(span)
		if err == nil {
			return span, obj, nil
		}
		if decodeErr == nil {
			decodeErr = err
		}
		i = end
	}
	if decodeErr != nil {
		return "", nil, decodeErr
	}
	return "", nil, errNoObject
}

// balancedEnd returns the index just past the brace that closes the one at
// start.
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func decodeObject(span string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding JSON object: %w", err)
	}
	return out, nil
}

// merge copies every usable scalar from parsed onto s. Category and field
// names match case-insensitively; unknown keys, objects, nulls and empty
// values leave the default in place.
func merge(s *types.Schema, parsed map[string]any) {
	categories := foldKeys(parsed)
	fieldsByCategory := make(map[string]map[string]any)

	for _, f := range s.Fields() {
		fields, ok := fieldsByCategory[f.Category]
		if !ok {
			obj, _ := categories[fold(f.Category)].(map[string]any)
			fields = foldKeys(obj)
			fieldsByCategory[f.Category] = fields
		}
		if v, ok := scalarString(fields[fold(f.Name)]); ok {
			*f.Value = v
		}
	}
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// foldKeys indexes m by folded key. On collision the non-null value of the
// lexically smallest key wins.
func foldKeys(m map[string]any) map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		fk := fold(k)
		if prev, ok := out[fk]; ok && prev != nil {
			continue
		}
		out[fk] = m[k]
	}
	return out
}

// scalarString renders v as a field value. Arrays of scalars are joined
// with "; ".
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case float64:
		return fmt.Sprint(t), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	case []any:
		var parts []string
		for _, item := range t {
			if _, nested := item.([]any); nested {
				continue
			}
			if s, ok := scalarString(item); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, "; "), true
	}
	return "", false
}
