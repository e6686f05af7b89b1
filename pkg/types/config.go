// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds every single request; exceeding it counts as a
	// transport failure.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "methodscan/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retries for transient failures (default 2,
	// i.e. at most three attempts).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SearchConfig holds settings for query construction and retrieval.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of articles per run (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MaxSynonyms caps controlled-vocabulary expansions per keyword (default 5).
	MaxSynonyms int `json:"max_synonyms" yaml:"max_synonyms"`

	// ThesaurusTimeout bounds each synonym lookup (default 10s).
	ThesaurusTimeout time.Duration `json:"thesaurus_timeout" yaml:"thesaurus_timeout"`

	// APIKey is the optional NCBI E-utilities key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email and Tool identify the caller to NCBI.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Tool  string `json:"tool,omitempty" yaml:"tool,omitempty"`
}

// LocatorConfig holds settings for Methods section detection.
type LocatorConfig struct {
	// Aliases are the canonical Methods headings headings are compared against.
	Aliases []string `json:"aliases" yaml:"aliases"`

	// Threshold is the minimum 0-100 similarity for a heading to qualify.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// GeneratorBackend identifies the text-generation service.
type GeneratorBackend string

const (
	GeneratorHuggingFace GeneratorBackend = "huggingface"
	GeneratorClaude      GeneratorBackend = "claude"
)

// SamplingConfig controls generation. Low temperature keeps structured
// output stable across runs.
type SamplingConfig struct {
	Temperature  float64 `json:"temperature" yaml:"temperature"`
	MaxNewTokens int     `json:"max_new_tokens" yaml:"max_new_tokens"`
}

// AIConfig holds settings for the generation service.
type AIConfig struct {
	// Backend selects the generation service.
	Backend GeneratorBackend `json:"backend" yaml:"backend"`

	// Model is the model identifier (e.g. "mistralai/Mistral-7B-Instruct-v0.2").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the generation service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout bounds each generation call (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// WaitForModel asks a Hugging Face endpoint to hold the request while a
	// cold model loads (default true). Other backends ignore it.
	WaitForModel bool `json:"wait_for_model" yaml:"wait_for_model"`

	Sampling SamplingConfig `json:"sampling" yaml:"sampling"`
}

// ExtractionConfig holds settings for the schema extraction stage.
type ExtractionConfig struct {
	AIConfig `yaml:",inline"`

	// MaxInputChars truncates the methods text to its earliest characters
	// before prompting (default 12000).
	MaxInputChars int `json:"max_input_chars" yaml:"max_input_chars"`
}

// PipelineConfig holds settings for the per-article driver.
type PipelineConfig struct {
	// Concurrency is the number of articles processed at once (default 1).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// RequestsPerSecond limits how fast article chains start (0 = unlimited).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	// Path is the SQLite database file (e.g. "runs/methodscan.db").
	Path string `json:"path" yaml:"path"`
}

// Config groups all stage configurations.
type Config struct {
	Search     SearchConfig     `json:"search" yaml:"search"`
	Locator    LocatorConfig    `json:"locator" yaml:"locator"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Pipeline   PipelineConfig   `json:"pipeline" yaml:"pipeline"`
	Store      StoreConfig      `json:"store" yaml:"store"`
}

// DefaultAliases are the canonical Methods headings.
var DefaultAliases = []string{
	"methods",
	"materials and methods",
	"methodology",
	"experimental procedure",
}

// DefaultThreshold is the heading similarity cut-off used when none is
// configured. Observed usage ranges from 65 to 80.
const DefaultThreshold = 70.0

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:    30 * time.Second,
				UserAgent:  "methodscan/0.1",
				MaxRetries: 2,
			},
			MaxResults:       10,
			MaxSynonyms:      5,
			ThesaurusTimeout: 10 * time.Second,
			Tool:             "methodscan",
		},
		Locator: LocatorConfig{
			Aliases:   append([]string(nil), DefaultAliases...),
			Threshold: DefaultThreshold,
		},
		Extraction: ExtractionConfig{
			AIConfig: AIConfig{
				Backend: GeneratorHuggingFace,
				Model:   "mistralai/Mistral-7B-Instruct-v0.2",
				Timeout:      60 * time.Second,
				WaitForModel: true,
				Sampling: SamplingConfig{
					Temperature:  0.1,
					MaxNewTokens: 512,
				},
			},
			MaxInputChars: 12000,
		},
		Pipeline: PipelineConfig{
			Concurrency: 1,
		},
		Store: StoreConfig{
			Path: "runs/methodscan.db",
		},
	}
}
