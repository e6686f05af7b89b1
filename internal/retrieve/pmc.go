// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/methodscan/internal/httputil"
	"github.com/pdiddy/methodscan/pkg/types"
)

// eutilsBase is the NCBI E-utilities endpoint. Declared as a var so tests
// can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

const defaultMaxResults = 10

// PMCBackend searches PubMed Central and fetches JATS full text through
// E-utilities.
type PMCBackend struct {
	Client *http.Client
	Config types.SearchConfig
}

// NewPMCBackend returns a backend whose client enforces cfg.Timeout on
// every request when client is nil.
func NewPMCBackend(client *http.Client, cfg types.SearchConfig) *PMCBackend {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &PMCBackend{Client: client, Config: cfg}
}

// Name returns the backend identifier.
func (b *PMCBackend) Name() string { return "pmc" }

// eSearchResult is the esearch XML payload.
type eSearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   int      `xml:"Count"`
	IDs     []string `xml:"IdList>Id"`
	Error   string   `xml:"ERROR"`
}

// Search runs term against the pmc database.
func (b *PMCBackend) Search(ctx context.Context, term string, maxResults int) ([]types.ArticleID, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	params := url.Values{
		"db":     {"pmc"},
		"term":   {term},
		"retmax": {fmt.Sprintf("%d", maxResults)},
	}

	body, err := b.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var res eSearchResult
	if err := newDecoder(body).Decode(&res); err != nil {
		return nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("esearch error: %s", strings.TrimSpace(res.Error))
	}

	ids := make([]types.ArticleID, 0, len(res.IDs))
	for _, id := range res.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, types.ArticleID(id))
		}
	}
	return ids, nil
}

// Fetch retrieves the JATS record for id and normalizes it.
func (b *PMCBackend) Fetch(ctx context.Context, id types.ArticleID) (*types.Document, error) {
	params := url.Values{
		"db": {"pmc"},
		"id": {strings.TrimPrefix(string(id), "PMC")},
	}

	body, err := b.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return ParseJATS(body, id)
}

func (b *PMCBackend) get(ctx context.Context, endpoint string, params url.Values) (io.ReadCloser, error) {
	params.Set("retmode", "xml")
	if b.Config.APIKey != "" {
		params.Set("api_key", b.Config.APIKey)
	}
	if b.Config.Tool != "" {
		params.Set("tool", b.Config.Tool)
	}
	if b.Config.Email != "" {
		params.Set("email", b.Config.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eutilsBase+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, b.Config.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned HTTP %d", endpoint, resp.StatusCode)
	}
	return resp.Body, nil
}

func newDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.Entity = xml.HTMLEntity
	return d
}
