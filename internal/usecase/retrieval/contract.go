package retrieval

import (
	"context"

	"github.com/luminehq/lumine/internal/domain"
)

// Expander produces ranked search query candidates. An empty result
// means the LLM judged search unnecessary.
type Expander interface {
	ExpandQuery(ctx context.Context, query string) []string
	ExpandConversation(ctx context.Context, messages []domain.Message) []string
}

// Embedder vectorizes candidate queries and fetched documents.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([]domain.EmbeddedText, error)
	EmbedDocuments(ctx context.Context, docs []domain.Document) ([]domain.SourcedVector, error)
}

// VectorStore is the semantic cache.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]domain.ScoredDocument, error)
	Upsert(ctx context.Context, points []domain.StoredPoint) error
}

// LiveFetcher pulls fresh documents from an external search provider.
type LiveFetcher interface {
	Fetch(ctx context.Context, query string) ([]domain.Document, error)
}
