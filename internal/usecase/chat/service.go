// Package chat assembles grounded prompts from retrieved documents and
// runs the completion, plain or streaming.
package chat

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
	"github.com/luminehq/lumine/internal/metrics"
)

// Service is the chat orchestrator.
type Service struct {
	retriever Retriever
	llm       Completer
	model     string
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a chat service.
func New(retriever Retriever, llm Completer, model string, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		llm:       llm,
		model:     model,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) personaPrompt() string {
	return fmt.Sprintf(personaPromptTemplate, s.now().UTC().Format("2006-01-02"))
}

// Answer runs single-turn retrieval-grounded completion. When retrieval
// finds nothing, the bare query is answered ungrounded.
func (s *Service) Answer(ctx context.Context, query string, source domain.Source) (
	string, []domain.Document, error,
) {
	docs, err := s.retriever.Retrieve(ctx, query, source)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve context: %w", err)
	}

	prompt := query
	if len(docs) > 0 {
		prompt = fmt.Sprintf(
			"Using the following search results as context, answer the query: %s \nSources: %s",
			query, formatSources(docs),
		)
	}

	answer, err := s.llm.Complete(ctx, s.model, []domain.Message{
		{Role: domain.RoleSystem, Content: s.personaPrompt()},
		{Role: domain.RoleUser, Content: prompt},
	})
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues("answer", "error").Inc()
		return "", nil, fmt.Errorf("complete answer: %w", err)
	}

	metrics.CompletionRequestsTotal.WithLabelValues("answer", "success").Inc()
	return answer, docs, nil
}

// AnswerStream runs multi-turn retrieval-grounded streaming completion.
// The returned reader is the raw upstream SSE stream; the caller owns it.
func (s *Service) AnswerStream(ctx context.Context, messages []domain.Message, source domain.Source) (
	io.ReadCloser, []domain.Document, error,
) {
	docs, err := s.retriever.RetrieveConversation(ctx, messages, source)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve context: %w", err)
	}

	augmented := s.augmentConversation(messages, docs)

	stream, err := s.llm.StreamCompletion(ctx, s.model, augmented)
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues("stream", "error").Inc()
		return nil, nil, fmt.Errorf("open completion stream: %w", err)
	}

	metrics.CompletionRequestsTotal.WithLabelValues("stream", "success").Inc()
	return stream, docs, nil
}

// augmentConversation inserts the retrieved context as a system message
// immediately before the last user message, so grounding precedes the
// turn it supports. Without a user message the context is silently
// dropped. The persona prompt is prepended unless the conversation
// already opens with a system message.
func (s *Service) augmentConversation(messages []domain.Message, docs []domain.Document) []domain.Message {
	augmented := make([]domain.Message, 0, len(messages)+2)

	if len(messages) == 0 || messages[0].Role != domain.RoleSystem {
		augmented = append(augmented, domain.Message{
			Role:    domain.RoleSystem,
			Content: s.personaPrompt(),
		})
	}

	if len(docs) == 0 {
		return append(augmented, messages...)
	}

	idx := domain.LastUserIndex(messages)
	if idx < 0 {
		s.logger.Warn("No user message in conversation, dropping retrieved context",
			zap.Int("documents", len(docs)),
		)
		return append(augmented, messages...)
	}

	contextMsg := domain.Message{
		Role: domain.RoleSystem,
		Content: "Search results for the user's next query:\nSources: " +
			formatSources(docs),
	}

	augmented = append(augmented, messages[:idx]...)
	augmented = append(augmented, contextMsg)
	augmented = append(augmented, messages[idx:]...)
	return augmented
}
