// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/methodscan/internal/locate"
	"github.com/pdiddy/methodscan/internal/retrieve"
	"github.com/pdiddy/methodscan/pkg/types"
)

var locateCmd = &cobra.Command{
	Use:   "locate <article.xml>",
	Short: "Show the Methods section found in a JATS article file",
	Long: `Locate parses a JATS XML file (as returned by PubMed Central efetch), lists
the headings that qualify as Methods with their similarity scores, and
prints the extracted Methods text.`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

func init() {
	locateCmd.Flags().Float64("threshold", 0, "Methods heading similarity threshold, 0-100 (default 70)")
	locateCmd.Flags().Bool("scores-only", false, "list qualifying headings without the text")

	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{"threshold": "locator.threshold"})

	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	doc, err := retrieve.ParseJATS(f, types.ArticleID(args[0]))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	loc := locate.New(cfg.Locator)
	w := cmd.OutOrStdout()
	matches := loc.Matches(doc)
	if len(matches) == 0 {
		fmt.Fprintf(w, "%s: %s (threshold %.0f)\n", args[0], types.SkipNoMethodsSection, cfg.Locator.Threshold)
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(w, "%5.1f  %-30q matches %q\n", m.Score, m.Heading, m.Alias)
	}

	if scoresOnly, _ := cmd.Flags().GetBool("scores-only"); scoresOnly {
		return nil
	}
	text, _ := loc.ExtractMethods(doc)
	fmt.Fprintf(w, "\n%s\n", text)
	return nil
}
