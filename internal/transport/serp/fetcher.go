// Package serp fetches web search results from a Jina-compatible SERP API.
package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
	"github.com/luminehq/lumine/internal/metrics"
)

// Config holds the SERP provider settings.
type Config struct {
	BaseURL  string
	APIKey   string
	Country  string
	Language string
	PageSize int
	Logger   *zap.Logger
}

// Fetcher implements usecase/retrieval.LiveSourceFetcher for web results.
type Fetcher struct {
	httpClient *http.Client
	cfg        Config
	logger     *zap.Logger
}

// NewFetcher creates a SERP fetcher.
func NewFetcher(cfg *Config) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        *cfg,
		logger:     cfg.Logger,
	}
}

type serpResponse struct {
	Data []serpResult `json:"data"`
}

type serpResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Fetch runs a web search and maps organic results to documents.
func (f *Fetcher) Fetch(ctx context.Context, query string) ([]domain.Document, error) {
	u, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse serp base url: %w", err)
	}

	q := u.Query()
	q.Set("q", query)
	q.Set("gl", f.cfg.Country)
	q.Set("hl", f.cfg.Language)
	q.Set("num", strconv.Itoa(f.cfg.PageSize))
	q.Set("page", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build serp request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.cfg.APIKey)
	// snippets only, skip full page content
	req.Header.Set("X-Respond-With", "no-content")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.LiveFetchTotal.WithLabelValues("serp", "error").Inc()
		return nil, fmt.Errorf("serp request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.LiveFetchTotal.WithLabelValues("serp", "error").Inc()
		return nil, fmt.Errorf("serp API error: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.LiveFetchTotal.WithLabelValues("serp", "error").Inc()
		return nil, fmt.Errorf("decode serp response: %w", err)
	}

	docs := make([]domain.Document, 0, len(parsed.Data))
	for _, r := range parsed.Data {
		docs = append(docs, domain.Document{
			URI:  r.URL,
			Text: r.Title + " - " + r.Description,
		})
	}

	metrics.LiveFetchTotal.WithLabelValues("serp", "success").Inc()
	metrics.LiveFetchDocuments.WithLabelValues("serp").Add(float64(len(docs)))

	f.logger.Debug("Fetched serp results",
		zap.String("query", query),
		zap.Int("count", len(docs)),
	)
	return docs, nil
}
