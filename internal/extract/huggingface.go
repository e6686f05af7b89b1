// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/methodscan/pkg/types"
)

// hfInferenceBase is the Hugging Face Inference API model endpoint prefix.
// Package-level var for test substitution.
var hfInferenceBase = "https://api-inference.huggingface.co/models/"

// HuggingFaceGenerator calls a text-generation model hosted on the Hugging
// Face Inference API.
type HuggingFaceGenerator struct {
	APIKey string
	Model  string
	Client *http.Client

	// WaitForModel asks the service to hold the request while a cold model
	// loads instead of answering 503.
	WaitForModel bool
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

type hfError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// Generate sends prompt to the model and returns the generated text.
func (g *HuggingFaceGenerator) Generate(ctx context.Context, prompt string, sampling types.SamplingConfig) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens: sampling.MaxNewTokens,
			Temperature:  sampling.Temperature,
		},
		Options: hfOptions{WaitForModel: g.WaitForModel},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hfInferenceBase+g.Model, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Hugging Face: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading Hugging Face response: %w", err)
	}

	// The service reports errors as a JSON object, sometimes with status 200.
	trimmed := bytes.TrimSpace(data)
	if resp.StatusCode != http.StatusOK || bytes.HasPrefix(trimmed, []byte("{")) {
		var e hfError
		_ = json.Unmarshal(trimmed, &e)
		msg := e.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		status := resp.StatusCode
		loading := strings.Contains(strings.ToLower(msg), "loading")
		if status == http.StatusOK && loading {
			status = http.StatusServiceUnavailable
		}
		return "", &GenerationError{
			Reason:        classifyStatus(status, loading),
			Status:        status,
			Message:       msg,
			EstimatedTime: e.EstimatedTime,
		}
	}

	var out []hfGeneration
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return "", fmt.Errorf("decoding Hugging Face response: %w", err)
	}
	if len(out) == 0 {
		return "", &GenerationError{Reason: ReasonOther, Status: resp.StatusCode, Message: "empty generation list"}
	}
	return out[0].GeneratedText, nil
}
