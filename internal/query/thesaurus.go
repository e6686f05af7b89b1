// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/methodscan/internal/httputil"
	"github.com/pdiddy/methodscan/pkg/types"
)

// eutilsBase is the NCBI E-utilities endpoint. Declared as a var so tests
// can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

// maxDescriptors caps how many MeSH descriptors contribute entry terms.
const maxDescriptors = 2

// MeSHThesaurus looks up synonyms in the MeSH database through E-utilities:
// esearch finds descriptors matching the term, esummary lists each
// descriptor's heading and entry terms.
type MeSHThesaurus struct {
	Client *http.Client
	Config types.SearchConfig
}

type meshSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type meshSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type meshDocSum struct {
	MeshTerms []string `json:"ds_meshterms"`
}

// Lookup returns up to limit synonyms for term, descriptor headings first.
// The term itself is never among them.
func (m *MeSHThesaurus) Lookup(ctx context.Context, term string, limit int) ([]string, error) {
	var search meshSearchResponse
	params := url.Values{
		"db":     {"mesh"},
		"term":   {term},
		"retmax": {fmt.Sprintf("%d", maxDescriptors)},
	}
	if err := m.getJSON(ctx, "esearch.fcgi", params, &search); err != nil {
		return nil, fmt.Errorf("MeSH search for %q: %w", term, err)
	}
	ids := search.ESearchResult.IDList
	if len(ids) == 0 {
		return nil, nil
	}

	var summary meshSummaryResponse
	params = url.Values{
		"db": {"mesh"},
		"id": {strings.Join(ids, ",")},
	}
	if err := m.getJSON(ctx, "esummary.fcgi", params, &summary); err != nil {
		return nil, fmt.Errorf("MeSH summary for %q: %w", term, err)
	}

	var out []string
	for _, id := range ids {
		raw, ok := summary.Result[id]
		if !ok {
			continue
		}
		var doc meshDocSum
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parsing MeSH summary %s: %w", id, err)
		}
		out = append(out, doc.MeshTerms...)
	}
	return distinctSynonyms(term, out, limit), nil
}

// distinctSynonyms drops blanks, the term itself and case-insensitive
// repeats before applying limit, so a descriptor that lists the term among
// its entry terms still yields limit synonyms.
func distinctSynonyms(term string, candidates []string, limit int) []string {
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(term)): true}
	var out []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (m *MeSHThesaurus) getJSON(ctx context.Context, endpoint string, params url.Values, v any) error {
	params.Set("retmode", "json")
	if m.Config.APIKey != "" {
		params.Set("api_key", m.Config.APIKey)
	}
	if m.Config.Tool != "" {
		params.Set("tool", m.Config.Tool)
	}
	if m.Config.Email != "" {
		params.Set("email", m.Config.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eutilsBase+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", m.Config.UserAgent)

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, m.Config.MaxRetries)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("E-utilities returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// StaticThesaurus serves synonyms from an in-memory table keyed by
// lower-cased term. It is used for offline runs and tests.
type StaticThesaurus map[string][]string

// Lookup returns the table entry for term without the term itself,
// truncated to limit.
func (s StaticThesaurus) Lookup(_ context.Context, term string, limit int) ([]string, error) {
	return distinctSynonyms(term, s[strings.ToLower(term)], limit), nil
}
