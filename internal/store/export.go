// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/methodscan/pkg/types"
)

// WriteYAML writes out as a YAML document.
func WriteYAML(w io.Writer, out types.RunOutput) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// WriteJSON writes out as indented JSON.
func WriteJSON(w io.Writer, out types.RunOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

// WriteFile writes out to path, as JSON when the extension is .json and as
// YAML otherwise.
func WriteFile(path string, out types.RunOutput) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = WriteJSON(f, out)
	} else {
		err = WriteYAML(f, out)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// FormatTable prints one row per article: Records first, then skip
// entries, each in run order.
func FormatTable(w io.Writer, out types.RunOutput) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ARTICLE\tYEAR\tFILLED\tSTATUS\tTITLE")
	fmt.Fprintln(tw, "-------\t----\t------\t------\t-----")

	var empty types.Schema
	total := len(empty.Fields())
	for _, r := range out.Records {
		status := "ok"
		if r.Diagnostic != nil {
			status = string(r.Diagnostic.Kind)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\n",
			r.Metadata.ArticleID, r.Metadata.Year, r.Fields.Filled(), total, status, clip(r.Metadata.Title, 60))
	}
	for _, s := range out.Skipped {
		fmt.Fprintf(tw, "%s\t\t\tskipped: %s\t\n", s.ArticleID, s.Reason)
	}
	return tw.Flush()
}

// FormatRuns prints the run list produced by ListRuns.
func FormatRuns(w io.Writer, runs []RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tRECORDS\tSKIPPED\tQUERY")
	fmt.Fprintln(tw, "--\t-------\t-------\t-------\t-----")
	for _, r := range runs {
		started := ""
		if !r.StartedAt.IsZero() {
			started = r.StartedAt.Local().Format("2006-01-02 15:04")
		}
		records := fmt.Sprint(r.Records)
		if r.Interrupted {
			records += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, started, records, r.Skipped, clip(r.Query, 80))
	}
	return tw.Flush()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
