// Package embedding vectorizes texts and documents with fan-out over the
// configured provider.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
)

// Service embeds texts in batches. The provider is constructed lazily on
// the first call; concurrent first calls initialize it exactly once.
type Service struct {
	factory Factory
	logger  *zap.Logger

	once     sync.Once
	embedder domain.Embedder
	initErr  error
}

// New creates an embedding service around a lazily-initialized provider.
func New(factory Factory, logger *zap.Logger) *Service {
	return &Service{factory: factory, logger: logger}
}

func (s *Service) init() (domain.Embedder, error) {
	s.once.Do(func() {
		s.embedder, s.initErr = s.factory()
		if s.initErr == nil {
			s.logger.Info("Embedding provider initialized")
		}
	})
	if s.initErr != nil {
		return nil, fmt.Errorf("init embedder: %w", s.initErr)
	}
	return s.embedder, nil
}

// EmbedTexts embeds all non-blank texts concurrently, preserving input
// order. Blank texts are dropped, so the output may be shorter than the
// input; each entry pairs the kept text with its vector. Any single
// failure fails the whole batch.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([]domain.EmbeddedText, error) {
	embedder, err := s.init()
	if err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	out := make([]domain.EmbeddedText, len(kept))
	errs := make([]error, len(kept))

	var wg sync.WaitGroup
	for i, text := range kept {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			result, err := embedder.Embed(ctx, text)
			if err != nil {
				errs[i] = err
				return
			}
			out[i] = domain.EmbeddedText{Text: text, Vector: result.Embedding}
		}(i, text)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("embed text %d of %d: %w", i+1, len(kept), err)
		}
	}
	return out, nil
}

// EmbedDocuments embeds documents concurrently, keeping each vector paired
// with its source document. Per-item failures are logged and the item is
// skipped; the remaining documents are returned.
func (s *Service) EmbedDocuments(ctx context.Context, docs []domain.Document) ([]domain.SourcedVector, error) {
	embedder, err := s.init()
	if err != nil {
		return nil, err
	}

	results := make([]*domain.SourcedVector, len(docs))

	var wg sync.WaitGroup
	for i, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			s.logger.Warn("Skipping document with empty text", zap.String("uri", doc.URI))
			continue
		}
		wg.Add(1)
		go func(i int, doc domain.Document) {
			defer wg.Done()
			result, err := embedder.Embed(ctx, doc.Text)
			if err != nil {
				s.logger.Warn("Failed to embed document, skipping",
					zap.String("uri", doc.URI),
					zap.Error(err),
				)
				return
			}
			results[i] = &domain.SourcedVector{Document: doc, Vector: result.Embedding}
		}(i, doc)
	}
	wg.Wait()

	out := make([]domain.SourcedVector, 0, len(docs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}
