// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/methodscan/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query [keywords...]",
	Short: "Print the search query built from keywords",
	Long: `Query expands each keyword with MeSH synonyms and prints the PubMed Central
query a run would send, without fetching any article.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSlice("keywords", nil, "search keywords (comma-separated or repeated)")
	queryCmd.Flags().Bool("no-expand", false, "skip MeSH synonym expansion")
	queryCmd.Flags().Int("max-synonyms", 0, "synonyms per keyword (default 5)")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{"max-synonyms": "search.max_synonyms"})

	keywords, _ := cmd.Flags().GetStringSlice("keywords")
	keywords = append(keywords, args...)

	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	var th query.Thesaurus
	if noExpand, _ := cmd.Flags().GetBool("no-expand"); !noExpand {
		th = &query.MeSHThesaurus{Client: &http.Client{Timeout: cfg.Search.Timeout}, Config: cfg.Search}
	}

	q, err := query.NewBuilder(th, cfg.Search, logger).Build(cmd.Context(), keywords)
	if err != nil {
		return err
	}
	for _, c := range q.Clauses {
		if c.Degraded {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: no synonyms for %q (thesaurus unavailable)\n", c.Keyword)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), q.String())
	return nil
}
