// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/methodscan/internal/secrets"
	"github.com/pdiddy/methodscan/pkg/types"
)

// defaultClaudeModel is used when the claude backend is selected without a
// model of its own.
const defaultClaudeModel = "claude-sonnet-4-20250514"

// setDefaults registers every configuration key with its default.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("http.timeout", d.Search.Timeout)
	v.SetDefault("http.user_agent", d.Search.UserAgent)
	v.SetDefault("http.max_retries", d.Search.MaxRetries)

	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.max_synonyms", d.Search.MaxSynonyms)
	v.SetDefault("search.thesaurus_timeout", d.Search.ThesaurusTimeout)
	v.SetDefault("search.email", d.Search.Email)
	v.SetDefault("search.tool", d.Search.Tool)

	v.SetDefault("locator.aliases", d.Locator.Aliases)
	v.SetDefault("locator.threshold", d.Locator.Threshold)

	v.SetDefault("generation.backend", string(d.Extraction.Backend))
	v.SetDefault("generation.model", "")
	v.SetDefault("generation.temperature", d.Extraction.Sampling.Temperature)
	v.SetDefault("generation.max_new_tokens", d.Extraction.Sampling.MaxNewTokens)
	v.SetDefault("generation.max_input_chars", d.Extraction.MaxInputChars)
	v.SetDefault("generation.timeout", d.Extraction.Timeout)
	v.SetDefault("generation.wait_for_model", d.Extraction.WaitForModel)

	v.SetDefault("pipeline.concurrency", d.Pipeline.Concurrency)
	v.SetDefault("pipeline.requests_per_second", d.Pipeline.RequestsPerSecond)

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("log.level", "warn")
}

// loadConfig assembles a Config from v and fills credentials from s.
func loadConfig(v *viper.Viper, s secrets.Set) (types.Config, error) {
	cfg := types.DefaultConfig()

	cfg.Search.HTTPConfig = types.HTTPConfig{
		Timeout:    v.GetDuration("http.timeout"),
		UserAgent:  v.GetString("http.user_agent"),
		MaxRetries: v.GetInt("http.max_retries"),
	}
	cfg.Search.MaxResults = v.GetInt("search.max_results")
	cfg.Search.MaxSynonyms = v.GetInt("search.max_synonyms")
	cfg.Search.ThesaurusTimeout = v.GetDuration("search.thesaurus_timeout")
	cfg.Search.Email = v.GetString("search.email")
	cfg.Search.Tool = v.GetString("search.tool")
	cfg.Search.APIKey = s.Get(secrets.NCBIAPIKey)

	if aliases := v.GetStringSlice("locator.aliases"); len(aliases) > 0 {
		cfg.Locator.Aliases = aliases
	}
	cfg.Locator.Threshold = v.GetFloat64("locator.threshold")
	if cfg.Locator.Threshold < 0 || cfg.Locator.Threshold > 100 {
		return cfg, fmt.Errorf("locator.threshold must be within 0-100, got %v", cfg.Locator.Threshold)
	}

	ext := &cfg.Extraction
	ext.Backend = types.GeneratorBackend(v.GetString("generation.backend"))
	ext.Model = v.GetString("generation.model")
	ext.Timeout = v.GetDuration("generation.timeout")
	ext.WaitForModel = v.GetBool("generation.wait_for_model")
	ext.Sampling.Temperature = v.GetFloat64("generation.temperature")
	ext.Sampling.MaxNewTokens = v.GetInt("generation.max_new_tokens")
	ext.MaxInputChars = v.GetInt("generation.max_input_chars")

	switch ext.Backend {
	case types.GeneratorHuggingFace:
		ext.APIKey = s.Get(secrets.HFAPIKey)
		if ext.Model == "" {
			ext.Model = types.DefaultConfig().Extraction.Model
		}
	case types.GeneratorClaude:
		ext.APIKey = s.Get(secrets.AnthropicAPIKey)
		if ext.Model == "" {
			ext.Model = defaultClaudeModel
		}
	default:
		return cfg, fmt.Errorf("unknown generation.backend %q (want %s or %s)",
			ext.Backend, types.GeneratorHuggingFace, types.GeneratorClaude)
	}

	cfg.Pipeline.Concurrency = v.GetInt("pipeline.concurrency")
	cfg.Pipeline.RequestsPerSecond = v.GetFloat64("pipeline.requests_per_second")
	cfg.Store.Path = v.GetString("store.path")
	return cfg, nil
}

// bindFlags binds command flags to configuration keys, flag name → key.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}
