// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/methodscan/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "runs", "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() types.RunOutput {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	good := types.Record{
		Metadata: types.Metadata{
			ArticleID: "PMC100",
			Title:     "Cortical dynamics of walking",
			Authors:   []string{"Jane Smith", "Bao Nguyen"},
			Year:      "2020",
			PMID:      "321",
		},
		SchemaVersion: types.SchemaVersion,
	}
	good.Fields.Study.EEGChannels = "128"
	good.Fields.Preprocessing.ICA = "AMICA"

	failed := types.Record{
		Metadata:      types.Metadata{ArticleID: "PMC200", Title: "Oddball", Authors: []string{"A B"}, Year: "2019"},
		SchemaVersion: types.SchemaVersion,
		Diagnostic: &types.Diagnostic{
			Kind:      types.KindSchemaParseFailure,
			Reason:    "no JSON object in generated text",
			RawOutput: "sorry",
		},
	}

	return types.RunOutput{
		Keywords: []string{"EEG", "gait"},
		Query:    `("EEG"[tiab]) AND ("gait"[tiab]) AND "open access"[filter]`,
		Records:  []types.Record{good, failed},
		Skipped: []types.SkipEntry{
			{ArticleID: "PMC300", Reason: types.SkipNoFullText, State: types.StateFetchFailed, Detail: "fetch PMC300: 404"},
			{ArticleID: "PMC400", Reason: types.SkipNoMethodsSection, State: types.StateSectionMissing},
		},
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := sampleRun()

	id, err := s.Save(ctx, &run)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, id, run.ID)

	got, err := s.LoadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestSaveKeepsExplicitID(t *testing.T) {
	s := openTestStore(t)
	run := sampleRun()
	run.ID = "fixed-id"

	id, err := s.Save(context.Background(), &run)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	_, err = s.Save(context.Background(), &run)
	assert.Error(t, err, "duplicate run IDs are rejected")
}

func TestLoadRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := sampleRun()
	newer := sampleRun()
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	newer.Records = newer.Records[:1]
	newer.Skipped = nil
	newer.Interrupted = true

	_, err := s.Save(ctx, &older)
	require.NoError(t, err)
	_, err = s.Save(ctx, &newer)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, 1, runs[0].Records)
	assert.Equal(t, 0, runs[0].Skipped)
	assert.True(t, runs[0].Interrupted)
	assert.True(t, newer.StartedAt.Equal(runs[0].StartedAt))

	assert.Equal(t, older.ID, runs[1].ID)
	assert.Equal(t, 2, runs[1].Records)
	assert.Equal(t, 2, runs[1].Skipped)

	var buf bytes.Buffer
	require.NoError(t, FormatRuns(&buf, runs))
	assert.Contains(t, buf.String(), newer.ID)
	assert.Contains(t, buf.String(), "1*")
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open(types.StoreConfig{})
	assert.Error(t, err)
}

// --- export ---

func TestWriteYAMLUsesSchemaKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleRun()))

	var doc struct {
		Records []struct {
			Fields map[string]map[string]string `yaml:"fields"`
		} `yaml:"records"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Records, 2)

	fields := doc.Records[0].Fields
	assert.Equal(t, "128", fields["study"]["EEG channels"])
	assert.Equal(t, "AMICA", fields["preprocessing"]["ICA"])
	assert.Contains(t, fields["processing"], "IC clustering")
	assert.Equal(t, "", fields["processing"]["IC clustering"])
	assert.Len(t, fields["study"], 8)
	assert.Len(t, fields["preprocessing"], 18)
	assert.Len(t, fields["processing"], 8)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	run := sampleRun()
	require.NoError(t, WriteJSON(&buf, run))

	var got types.RunOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, run, got)
}

func TestWriteFileChoosesFormat(t *testing.T) {
	dir := t.TempDir()
	run := sampleRun()

	jsonPath := filepath.Join(dir, "out", "run.json")
	require.NoError(t, WriteFile(jsonPath, run))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	yamlPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, WriteFile(yamlPath, run))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "schema_version: eeg-methods/1")
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatTable(&buf, sampleRun()))
	out := buf.String()

	assert.Contains(t, out, "ARTICLE")
	assert.Contains(t, out, "PMC100")
	assert.Contains(t, out, "2/34")
	assert.Contains(t, out, "schema_parse_failure")
	assert.Contains(t, out, "skipped: no full text")
	assert.Contains(t, out, "skipped: no methods section")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcdefg...", clip("abcdefghijklmnop", 10))
}
