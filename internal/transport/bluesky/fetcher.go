// Package bluesky fetches posts from the public Bluesky search API.
package bluesky

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
	"github.com/luminehq/lumine/internal/metrics"
)

const searchPostsPath = "/xrpc/app.bsky.feed.searchPosts"

// Spam-adjacent phrases excluded from every search.
var ignoredTerms = []string{
	"No explanations",
	"for 20 days",
	"top 10",
	"top 5",
	"AI generated",
	"travel guide",
	"travel booking portal",
	"tour guide",
}

var exclusionSuffix = buildExclusionSuffix(ignoredTerms)

func buildExclusionSuffix(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, `-"`+strings.ToLower(t)+`"`)
	}
	return strings.Join(parts, " ")
}

// Config holds the Bluesky search settings.
type Config struct {
	BaseURL string
	Limit   int
	Logger  *zap.Logger
}

// Fetcher implements usecase/retrieval.LiveSourceFetcher for social posts.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
	limit      int
	logger     *zap.Logger
}

// NewFetcher creates a Bluesky post fetcher.
func NewFetcher(cfg *Config) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		limit:      cfg.Limit,
		logger:     cfg.Logger,
	}
}

type searchPostsResponse struct {
	Posts []post `json:"posts"`
}

type post struct {
	URI    string `json:"uri"`
	Record record `json:"record"`
}

type record struct {
	Text  string         `json:"text"`
	Embed map[string]any `json:"embed"`
}

// Fetch searches top posts for the query with the exclusion terms applied.
func (f *Fetcher) Fetch(ctx context.Context, query string) ([]domain.Document, error) {
	q := url.Values{}
	q.Set("q", query+" "+exclusionSuffix)
	q.Set("limit", strconv.Itoa(f.limit))
	q.Set("sort", "top")

	reqURL := f.baseURL + searchPostsPath + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build bluesky request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.LiveFetchTotal.WithLabelValues("bluesky", "error").Inc()
		return nil, fmt.Errorf("bluesky request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.LiveFetchTotal.WithLabelValues("bluesky", "error").Inc()
		return nil, fmt.Errorf("bluesky API error: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed searchPostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.LiveFetchTotal.WithLabelValues("bluesky", "error").Inc()
		return nil, fmt.Errorf("decode bluesky response: %w", err)
	}

	docs := make([]domain.Document, 0, len(parsed.Posts))
	for _, p := range parsed.Posts {
		if p.URI == "" || p.Record.Text == "" {
			continue
		}
		docs = append(docs, domain.Document{
			URI:  p.URI,
			Text: formatPostText(p.Record),
		})
	}

	metrics.LiveFetchTotal.WithLabelValues("bluesky", "success").Inc()
	metrics.LiveFetchDocuments.WithLabelValues("bluesky").Add(float64(len(docs)))

	f.logger.Debug("Fetched bluesky posts",
		zap.String("query", query),
		zap.Int("count", len(docs)),
	)
	return docs, nil
}

// formatPostText appends image alt text and embed details so the
// embedding captures media context, not just the post body.
func formatPostText(r record) string {
	text := r.Text

	if alt := firstImageAlt(r.Embed); alt != "" {
		text += "\n\nAlt Text: " + alt
	}
	if len(r.Embed) > 0 {
		if embedJSON, err := json.Marshal(r.Embed); err == nil {
			text += "\n\nEmbed Info: " + string(embedJSON)
		}
	}
	return text
}

func firstImageAlt(embed map[string]any) string {
	images, ok := embed["images"].([]any)
	if !ok || len(images) == 0 {
		return ""
	}
	first, ok := images[0].(map[string]any)
	if !ok {
		return ""
	}
	alt, _ := first["alt"].(string)
	return alt
}
