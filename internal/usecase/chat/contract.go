package chat

import (
	"context"
	"io"

	"github.com/luminehq/lumine/internal/domain"
)

// Retriever supplies grounding documents for a query or conversation.
type Retriever interface {
	Retrieve(ctx context.Context, query string, source domain.Source) ([]domain.Document, error)
	RetrieveConversation(ctx context.Context, messages []domain.Message, source domain.Source) ([]domain.Document, error)
}

// Completer runs chat completions, plain and streaming.
type Completer interface {
	Complete(ctx context.Context, model string, messages []domain.Message) (string, error)
	StreamCompletion(ctx context.Context, model string, messages []domain.Message) (io.ReadCloser, error)
}
