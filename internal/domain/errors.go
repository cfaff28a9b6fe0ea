package domain

import "errors"

// Sentinel errors shared across layers. Transport maps them to HTTP statuses.
var (
	// ErrEmbeddingProviderError marks failures of the embedding API.
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrCompletionProviderError marks failures of the chat-completion API.
	ErrCompletionProviderError = errors.New("completion provider error")

	// ErrStoreUnavailable marks vector-store connectivity failures.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)
