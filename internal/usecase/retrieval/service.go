// Package retrieval implements the hybrid cache-then-backfill search:
// probe the semantic cache with every candidate query, and only when the
// cache looks stale or thin fetch live documents, ingest them, and
// re-search anchored to the primary query.
package retrieval

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
	"github.com/luminehq/lumine/internal/metrics"
)

// Params tunes the retrieval algorithm.
type Params struct {
	ProbeLimit     int     // cache probe size per candidate
	ProbeMinScore  float64 // cache probe score threshold
	MaxResults     int     // hard cap on accumulated and final results
	MinMeanScore   float64 // backfill gate: minimum mean probe score
	MinHits        int     // backfill gate: minimum probe result count
	MaxLiveQueries int     // candidates used for live fetching
}

// Service orchestrates retrieval for a single request.
type Service struct {
	expander Expander
	embedder Embedder
	store    VectorStore
	social   LiveFetcher
	web      LiveFetcher
	params   Params
	logger   *zap.Logger
}

// New creates a retrieval orchestrator.
func New(
	expander Expander,
	embedder Embedder,
	store VectorStore,
	social, web LiveFetcher,
	params Params,
	logger *zap.Logger,
) *Service {
	return &Service{
		expander: expander,
		embedder: embedder,
		store:    store,
		social:   social,
		web:      web,
		params:   params,
		logger:   logger,
	}
}

// Retrieve runs the retrieval algorithm for a single query. An empty
// expansion still searches with the primary query alone.
func (s *Service) Retrieve(ctx context.Context, query string, source domain.Source) ([]domain.Document, error) {
	expansions := s.expander.ExpandQuery(ctx, query)
	return s.retrieve(ctx, query, expansions, source)
}

// RetrieveConversation runs the retrieval algorithm for a conversation.
// An empty expansion means the LLM judged search unnecessary for this
// turn, so no retrieval happens at all.
func (s *Service) RetrieveConversation(
	ctx context.Context, messages []domain.Message, source domain.Source,
) ([]domain.Document, error) {
	expansions := s.expander.ExpandConversation(ctx, messages)
	if len(expansions) == 0 {
		return nil, nil
	}

	idx := domain.LastUserIndex(messages)
	if idx < 0 {
		return nil, nil
	}

	return s.retrieve(ctx, messages[idx].Content, expansions, source)
}

func (s *Service) retrieve(
	ctx context.Context, primary string, expansions []string, source domain.Source,
) ([]domain.Document, error) {
	candidates := append([]string{primary}, expansions...)

	embedded, err := s.embedder.EmbedTexts(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}
	if len(embedded) == 0 {
		return nil, nil
	}

	probe, err := s.probeCache(ctx, embedded)
	if err != nil {
		return nil, err
	}

	mean := meanScore(probe)
	if mean >= s.params.MinMeanScore && len(probe) >= s.params.MinHits {
		metrics.CacheProbeTotal.WithLabelValues("hit").Inc()
		s.logger.Debug("Cache probe sufficient",
			zap.Float64("mean_score", mean),
			zap.Int("hits", len(probe)),
		)
		return toDocuments(probe), nil
	}

	metrics.CacheProbeTotal.WithLabelValues("backfill").Inc()
	s.logger.Info("Cache probe insufficient, backfilling from live sources",
		zap.Float64("mean_score", mean),
		zap.Int("hits", len(probe)),
	)

	fetched := s.fetchLive(ctx, embedded, source)
	if len(fetched) == 0 {
		// nothing new to ingest, the probe set stands
		return toDocuments(probe), nil
	}

	if err := s.ingest(ctx, fetched); err != nil {
		return nil, err
	}

	// Authoritative re-search anchored to the primary query, unthresholded,
	// replacing the probe set.
	final, err := s.store.Search(ctx, embedded[0].Vector, s.params.MaxResults, 0)
	if err != nil {
		return nil, fmt.Errorf("post-backfill search: %w", err)
	}
	return toDocuments(final), nil
}

// probeCache searches the cache with every candidate vector sequentially.
// Sequential order matters: deduplication is first-seen-wins across
// candidates in query order. Capped at MaxResults.
func (s *Service) probeCache(ctx context.Context, embedded []domain.EmbeddedText) (
	[]domain.ScoredDocument, error,
) {
	seen := make(map[string]bool)
	accumulated := make([]domain.ScoredDocument, 0, s.params.MaxResults)

	for _, cand := range embedded {
		if len(accumulated) >= s.params.MaxResults {
			break
		}

		results, err := s.store.Search(ctx, cand.Vector, s.params.ProbeLimit, s.params.ProbeMinScore)
		if err != nil {
			return nil, fmt.Errorf("cache probe: %w", err)
		}

		for _, r := range results {
			if len(accumulated) >= s.params.MaxResults {
				break
			}
			if r.Text == "" || seen[r.Text] {
				continue
			}
			seen[r.Text] = true
			accumulated = append(accumulated, r)
		}
	}

	return accumulated, nil
}

// fetchLive pulls fresh documents concurrently: the social provider for up
// to MaxLiveQueries candidates, the web provider for the best expansion
// (or the primary when there is none). Provider failures degrade to an
// empty contribution, never a request failure. Results are deduplicated
// by content, first fetch wins.
func (s *Service) fetchLive(
	ctx context.Context, embedded []domain.EmbeddedText, source domain.Source,
) []domain.Document {
	queries := make([]string, 0, s.params.MaxLiveQueries)
	for _, e := range embedded {
		if len(queries) == s.params.MaxLiveQueries {
			break
		}
		queries = append(queries, e.Text)
	}

	var mu sync.Mutex
	var fetched []domain.Document
	var wg sync.WaitGroup

	collect := func(provider string, fetch func() ([]domain.Document, error)) {
		defer wg.Done()
		docs, err := fetch()
		if err != nil {
			s.logger.Warn("Live fetch failed, continuing without its results",
				zap.String("provider", provider),
				zap.Error(err),
			)
			return
		}
		mu.Lock()
		fetched = append(fetched, docs...)
		mu.Unlock()
	}

	if source.IncludesSocial() {
		for _, q := range queries {
			wg.Add(1)
			go collect("social", func() ([]domain.Document, error) {
				return s.social.Fetch(ctx, q)
			})
		}
	}

	if source.IncludesWeb() {
		webQuery := queries[0]
		if len(queries) > 1 {
			webQuery = queries[1]
		}
		wg.Add(1)
		go collect("web", func() ([]domain.Document, error) {
			return s.web.Fetch(ctx, webQuery)
		})
	}

	wg.Wait()
	return domain.DedupDocuments(fetched)
}

// ingest embeds fetched documents and upserts them in one acknowledged
// batch, so the re-search that follows sees them.
func (s *Service) ingest(ctx context.Context, docs []domain.Document) error {
	sourced, err := s.embedder.EmbedDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("embed fetched documents: %w", err)
	}
	if len(sourced) == 0 {
		return nil
	}

	points := make([]domain.StoredPoint, 0, len(sourced))
	for _, sv := range sourced {
		points = append(points, domain.NewStoredPoint(sv.Document, sv.Vector))
	}

	if err := s.store.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert fetched documents: %w", err)
	}

	s.logger.Debug("Ingested live documents", zap.Int("count", len(points)))
	return nil
}

func meanScore(docs []domain.ScoredDocument) float64 {
	if len(docs) == 0 {
		return 0
	}
	var sum float64
	for _, d := range docs {
		sum += d.Score
	}
	return sum / float64(len(docs))
}

func toDocuments(scored []domain.ScoredDocument) []domain.Document {
	docs := make([]domain.Document, 0, len(scored))
	for _, s := range scored {
		if s.Text == "" {
			continue
		}
		docs = append(docs, s.Document)
	}
	return docs
}
