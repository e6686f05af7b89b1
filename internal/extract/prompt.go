// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/pdiddy/methodscan/pkg/types"
)

// methodsPromptTmpl asks the model to fill the schema skeleton from one
// Methods section. The skeleton is the indented JSON form of types.Schema{}.
var methodsPromptTmpl = template.Must(template.New("methods").Parse(`You are an EEG methods extraction assistant. Given the article metadata and Methods section below, return one JSON object that matches the schema exactly. If a field is not reported in the text, leave it as an empty string. Do not add fields.

Schema:
{{.Skeleton}}

Article Metadata:
article ID: {{.Metadata.ArticleID}}
PMID: {{.Metadata.PMID}}
title: {{.Metadata.Title}}
authors: {{.Authors}}
year: {{.Metadata.Year}}
journal: {{.Metadata.Journal}}

Methods Section:
{{.Methods}}

Return ONLY valid JSON following the schema.
`))

// skeleton is the serialized empty schema embedded in every prompt.
var skeleton = func() string {
	b, err := json.MarshalIndent(types.Schema{}, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}()

type promptData struct {
	Skeleton string
	Metadata types.Metadata
	Authors  string
	Methods  string
}

// renderPrompt executes the prompt template for one article.
func renderPrompt(meta types.Metadata, methods string) (string, error) {
	var buf bytes.Buffer
	err := methodsPromptTmpl.Execute(&buf, promptData{
		Skeleton: skeleton,
		Metadata: meta,
		Authors:  strings.Join(meta.Authors, ", "),
		Methods:  methods,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// truncate keeps the first limit characters of s, never splitting a rune.
// A non-positive limit disables truncation.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
