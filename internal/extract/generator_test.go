// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/methodscan/pkg/types"
)

var testSampling = types.SamplingConfig{Temperature: 0.1, MaxNewTokens: 512}

func withHF(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	orig := hfInferenceBase
	hfInferenceBase = srv.URL + "/models/"
	t.Cleanup(func() { hfInferenceBase = orig })
}

func withClaude(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	orig := claudeAPIURL
	claudeAPIURL = srv.URL + "/v1/messages"
	t.Cleanup(func() { claudeAPIURL = orig })
}

// --- HuggingFaceGenerator ---

func TestHuggingFaceGenerate(t *testing.T) {
	var got hfRequest
	withHF(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/org/model", r.URL.Path)
		assert.Equal(t, "Bearer hf-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[{"generated_text": "{\"study\": {}}"}]`))
	})

	g := &HuggingFaceGenerator{APIKey: "hf-key", Model: "org/model", WaitForModel: true}
	out, err := g.Generate(context.Background(), "the prompt", testSampling)

	require.NoError(t, err)
	assert.Equal(t, `{"study": {}}`, out)
	assert.Equal(t, "the prompt", got.Inputs)
	assert.Equal(t, 512, got.Parameters.MaxNewTokens)
	assert.Equal(t, 0.1, got.Parameters.Temperature)
	assert.False(t, got.Parameters.ReturnFullText)
	assert.True(t, got.Options.WaitForModel)
}

func TestHuggingFaceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   GenerationReason
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error": "Invalid credentials"}`, ReasonAuth},
		{"forbidden", http.StatusForbidden, `{"error": "no access"}`, ReasonAuth},
		{"rate limited", http.StatusTooManyRequests, `{"error": "Rate limit reached"}`, ReasonRateLimit},
		{"model loading", http.StatusServiceUnavailable, `{"error": "Model org/model is currently loading", "estimated_time": 20.5}`, ReasonModelLoading},
		{"unavailable", http.StatusServiceUnavailable, `{"error": "Service Unavailable"}`, ReasonUnavailable},
		{"server error", http.StatusInternalServerError, `oops`, ReasonUnavailable},
		{"bad request", http.StatusBadRequest, `{"error": "Input validation error"}`, ReasonOther},
		{"error object with 200", http.StatusOK, `{"error": "something odd"}`, ReasonOther},
		{"empty list", http.StatusOK, `[]`, ReasonOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withHF(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			g := &HuggingFaceGenerator{Model: "org/model"}
			_, err := g.Generate(context.Background(), "p", testSampling)

			var gerr *GenerationError
			require.True(t, errors.As(err, &gerr), "got %v", err)
			assert.Equal(t, tt.want, gerr.Reason)
			assert.Equal(t, tt.want == ReasonModelLoading, gerr.Retryable())
		})
	}
}

func TestHuggingFaceLoadingEstimate(t *testing.T) {
	withHF(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": "Model is currently loading", "estimated_time": 20.5}`))
	})
	_, err := (&HuggingFaceGenerator{Model: "m"}).Generate(context.Background(), "p", testSampling)
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 20.5, gerr.EstimatedTime)
	assert.Contains(t, gerr.Error(), "model loading")
}

func TestHuggingFaceMalformed(t *testing.T) {
	withHF(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	_, err := (&HuggingFaceGenerator{Model: "m"}).Generate(context.Background(), "p", testSampling)
	require.Error(t, err)
	var gerr *GenerationError
	assert.False(t, errors.As(err, &gerr))
}

// --- ClaudeGenerator ---

func TestClaudeGenerate(t *testing.T) {
	var got claudeRequest
	withClaude(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "claude-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content": [{"type": "text", "text": "{\"study\": "}, {"type": "text", "text": "{}}"}]}`))
	})

	g := &ClaudeGenerator{APIKey: "claude-key", Model: "claude-test"}
	out, err := g.Generate(context.Background(), "prompt", testSampling)

	require.NoError(t, err)
	assert.Equal(t, `{"study": {}}`, out)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "prompt", got.Messages[0].Content)
}

func TestClaudeErrors(t *testing.T) {
	tests := []struct {
		status int
		want   GenerationReason
	}{
		{http.StatusUnauthorized, ReasonAuth},
		{http.StatusTooManyRequests, ReasonRateLimit},
		{statusOverloaded, ReasonUnavailable},
		{http.StatusBadRequest, ReasonOther},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			withClaude(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"type": "error", "error": {"type": "x", "message": "details"}}`))
			})
			_, err := (&ClaudeGenerator{Model: "m"}).Generate(context.Background(), "p", testSampling)
			var gerr *GenerationError
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, tt.want, gerr.Reason)
			assert.Equal(t, "details", gerr.Message)
		})
	}
}

func TestClaudeNoText(t *testing.T) {
	withClaude(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": []}`))
	})
	_, err := (&ClaudeGenerator{Model: "m"}).Generate(context.Background(), "p", testSampling)
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ReasonOther, gerr.Reason)
}

// --- RetryingGenerator ---

func TestRetryingGenerator(t *testing.T) {
	loading := &GenerationError{Reason: ReasonModelLoading, Status: 503}
	tests := []struct {
		name      string
		errs      []error
		outputs   []string
		wantCalls int
		wantOut   string
		wantErr   bool
	}{
		{"success", nil, []string{"ok"}, 1, "ok", false},
		{"loading then success", []error{loading, nil}, []string{"", "ok"}, 2, "ok", false},
		{"loading twice", []error{loading, loading}, nil, 2, "", true},
		{"rate limit not retried", []error{&GenerationError{Reason: ReasonRateLimit, Status: 429}}, nil, 1, "", true},
		{"transport error not retried", []error{errors.New("connection reset")}, nil, 1, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubGenerator{outputs: tt.outputs, errs: tt.errs}
			g := &RetryingGenerator{Next: stub}

			out, err := g.Generate(context.Background(), "p", testSampling)

			assert.Equal(t, tt.wantCalls, stub.calls)
			assert.Equal(t, tt.wantOut, out)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestRetryingGeneratorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &stubGenerator{errs: []error{&GenerationError{Reason: ReasonModelLoading}}}

	_, err := (&RetryingGenerator{Next: stub}).Generate(ctx, "p", testSampling)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stub.calls)
}

func TestNewGenerator(t *testing.T) {
	gen, err := NewGenerator(types.AIConfig{Backend: types.GeneratorHuggingFace, Model: "m", WaitForModel: true}, nil, nil)
	require.NoError(t, err)
	r, ok := gen.(*RetryingGenerator)
	require.True(t, ok)
	require.IsType(t, &HuggingFaceGenerator{}, r.Next)
	assert.True(t, r.Next.(*HuggingFaceGenerator).WaitForModel)

	gen, err = NewGenerator(types.AIConfig{Backend: types.GeneratorClaude, Model: "m"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &ClaudeGenerator{}, gen.(*RetryingGenerator).Next)

	_, err = NewGenerator(types.AIConfig{Backend: "gpt"}, nil, nil)
	assert.Error(t, err)
}
