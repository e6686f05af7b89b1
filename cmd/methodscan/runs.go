// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/methodscan/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List saved runs or show one of them",
	Long: `Runs lists the runs saved with "methodscan run --save". Given a run ID it
prints that run as a table, YAML, or JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("format", "table", "output format for a single run: table, yaml, or json")
	runsCmd.Flags().String("store", "", "SQLite store path")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, map[string]string{"store": "store.path"})

	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	if len(args) == 0 {
		runs, err := st.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		return store.FormatRuns(w, runs)
	}

	out, err := st.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	switch format, _ := cmd.Flags().GetString("format"); format {
	case "table":
		return store.FormatTable(w, out)
	case "yaml":
		return store.WriteYAML(w, out)
	case "json":
		return store.WriteJSON(w, out)
	default:
		return fmt.Errorf("unknown format %q (want table, yaml, or json)", format)
	}
}
