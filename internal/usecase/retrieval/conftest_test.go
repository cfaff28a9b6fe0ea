package retrieval

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
)

type mockExpander struct {
	queries []string
}

func (m *mockExpander) ExpandQuery(_ context.Context, _ string) []string {
	return m.queries
}

func (m *mockExpander) ExpandConversation(_ context.Context, _ []domain.Message) []string {
	return m.queries
}

// mockEmbedder derives a fake vector from the text length.
type mockEmbedder struct {
	textsErr error
	docsErr  error
}

func fakeVector(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (m *mockEmbedder) EmbedTexts(_ context.Context, texts []string) ([]domain.EmbeddedText, error) {
	if m.textsErr != nil {
		return nil, m.textsErr
	}
	out := make([]domain.EmbeddedText, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, domain.EmbeddedText{Text: t, Vector: fakeVector(t)})
	}
	return out, nil
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, docs []domain.Document) ([]domain.SourcedVector, error) {
	if m.docsErr != nil {
		return nil, m.docsErr
	}
	out := make([]domain.SourcedVector, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.SourcedVector{Document: d, Vector: fakeVector(d.Text)})
	}
	return out, nil
}

// mockStore serves canned probe results and records upserts.
type mockStore struct {
	mu          sync.Mutex
	searchFn    func(vector []float32, limit int, minScore float64) ([]domain.ScoredDocument, error)
	searchCalls []searchCall
	upserted    [][]domain.StoredPoint
	upsertErr   error
}

type searchCall struct {
	vector   []float32
	limit    int
	minScore float64
}

func (m *mockStore) Search(_ context.Context, vector []float32, limit int, minScore float64) (
	[]domain.ScoredDocument, error,
) {
	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, searchCall{vector, limit, minScore})
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(vector, limit, minScore)
	}
	return nil, nil
}

func (m *mockStore) Upsert(_ context.Context, points []domain.StoredPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, points)
	return nil
}

// mockFetcher records queries and serves canned documents.
type mockFetcher struct {
	mu      sync.Mutex
	docs    []domain.Document
	err     error
	queries []string
}

func (m *mockFetcher) Fetch(_ context.Context, query string) ([]domain.Document, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.docs, nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

type fixture struct {
	expander *mockExpander
	embedder *mockEmbedder
	store    *mockStore
	social   *mockFetcher
	web      *mockFetcher
	svc      *Service
}

func defaultParams() Params {
	return Params{
		ProbeLimit:     10,
		ProbeMinScore:  0.6,
		MaxResults:     17,
		MinMeanScore:   0.89,
		MinHits:        7,
		MaxLiveQueries: 3,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		expander: &mockExpander{},
		embedder: &mockEmbedder{},
		store:    &mockStore{},
		social:   &mockFetcher{},
		web:      &mockFetcher{},
	}
	f.svc = New(f.expander, f.embedder, f.store, f.social, f.web, defaultParams(), zap.NewNop())
	return f
}

// scoredDocs builds n distinct documents at the given score.
func scoredDocs(prefix string, n int, score float64) []domain.ScoredDocument {
	out := make([]domain.ScoredDocument, 0, n)
	for i := range n {
		out = append(out, domain.ScoredDocument{
			Document: domain.Document{
				URI:  prefix + "-uri-" + string(rune('a'+i)),
				Text: prefix + " text " + string(rune('a'+i)),
			},
			Score: score,
		})
	}
	return out
}
