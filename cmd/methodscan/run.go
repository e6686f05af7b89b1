// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/methodscan/internal/extract"
	"github.com/pdiddy/methodscan/internal/locate"
	"github.com/pdiddy/methodscan/internal/pipeline"
	"github.com/pdiddy/methodscan/internal/query"
	"github.com/pdiddy/methodscan/internal/retrieve"
	"github.com/pdiddy/methodscan/internal/store"
	"github.com/pdiddy/methodscan/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search, locate Methods sections, and extract EEG parameters",
	Long: `Run builds a PubMed Central query from the keywords, fetches each open-access
article, locates its Methods section, and extracts one schema record per
article. Articles without full text or without a Methods section are listed
as skipped. Interrupting a run stops new articles from starting; articles
already in progress finish.`,
	Example: `  methodscan run --keywords EEG,gait --max-results 20 --out runs/gait.yaml --save`,
	RunE:    runRun,
}

func init() {
	runCmd.Flags().StringSlice("keywords", nil, "search keywords (comma-separated or repeated)")
	runCmd.Flags().String("out", "", "write the run to this file (.json or .yaml)")
	runCmd.Flags().Bool("save", false, "save the run in the SQLite store")
	runCmd.Flags().Bool("no-expand", false, "skip MeSH synonym expansion")
	runCmd.Flags().Int("max-results", 0, "maximum number of articles (default 10)")
	runCmd.Flags().Int("concurrency", 0, "articles processed at once (default 1)")
	runCmd.Flags().Float64("rps", 0, "maximum article starts per second (0 = unlimited)")
	runCmd.Flags().Float64("threshold", 0, "Methods heading similarity threshold, 0-100 (default 70)")
	runCmd.Flags().String("backend", "", "generation backend: huggingface or claude")
	runCmd.Flags().String("model", "", "generation model identifier")
	runCmd.Flags().String("store", "", "SQLite store path")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{
		"max-results": "search.max_results",
		"concurrency": "pipeline.concurrency",
		"rps":         "pipeline.requests_per_second",
		"threshold":   "locator.threshold",
		"backend":     "generation.backend",
		"model":       "generation.model",
		"store":       "store.path",
	})

	keywords, _ := cmd.Flags().GetStringSlice("keywords")
	keywords = append(keywords, args...)
	if len(keywords) == 0 {
		return fmt.Errorf("provide keywords with --keywords or as arguments")
	}

	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	noExpand, _ := cmd.Flags().GetBool("no-expand")

	p, err := buildPipeline(cfg, noExpand)
	if err != nil {
		return err
	}
	p.Progress = os.Stderr

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out, err := p.Run(ctx, keywords)
	if err != nil {
		return err
	}

	if err := store.FormatTable(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	s := pipeline.Summarize(out)
	fmt.Fprintf(os.Stderr, "\nextracted: %d (with diagnostics: %d), skipped: %d", s.Extracted, s.Diagnosed, s.Skipped)
	if s.Unprocessed > 0 {
		fmt.Fprintf(os.Stderr, ", not processed: %d", s.Unprocessed)
	}
	fmt.Fprintln(os.Stderr)
	if out.Interrupted {
		fmt.Fprintln(os.Stderr, "run interrupted: not every search result was processed")
	}

	if path, _ := cmd.Flags().GetString("out"); path != "" {
		if err := store.WriteFile(path, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		id, err := saveRun(context.WithoutCancel(ctx), cfg.Store, &out)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved run %s to %s\n", id, cfg.Store.Path)
	}
	return nil
}

// buildPipeline wires the production stages from cfg.
func buildPipeline(cfg types.Config, noExpand bool) (*pipeline.Pipeline, error) {
	searchClient := &http.Client{Timeout: cfg.Search.Timeout}

	var th query.Thesaurus
	if !noExpand {
		th = &query.MeSHThesaurus{Client: searchClient, Config: cfg.Search}
	}

	gen, err := extract.NewGenerator(cfg.Extraction.AIConfig, nil, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("pipeline configured",
		zap.String("backend", string(cfg.Extraction.Backend)),
		zap.String("model", cfg.Extraction.Model),
		zap.Float64("threshold", cfg.Locator.Threshold),
		zap.Int("concurrency", cfg.Pipeline.Concurrency))

	return &pipeline.Pipeline{
		Builder:    query.NewBuilder(th, cfg.Search, logger),
		Source:     retrieve.New(retrieve.NewPMCBackend(searchClient, cfg.Search), logger),
		Locator:    locate.New(cfg.Locator),
		Extractor:  extract.New(gen, cfg.Extraction, logger),
		MaxResults: cfg.Search.MaxResults,
		Config:     cfg.Pipeline,
		Logger:     logger,
	}, nil
}

func saveRun(ctx context.Context, cfg types.StoreConfig, out *types.RunOutput) (string, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.Save(ctx, out)
}
