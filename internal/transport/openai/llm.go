package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
)

// LLMClient talks to an OpenAI-compatible chat completions API.
// Non-streaming calls go through the SDK; streaming returns the raw
// response body so the relay controls SSE framing byte-for-byte.
type LLMClient struct {
	client     *openai.Client
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// LLMConfig holds the completion provider settings.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Logger  *zap.Logger
}

// NewLLMClient creates an OpenAI-compatible chat completion client.
func NewLLMClient(cfg *LLMConfig) *LLMClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &LLMClient{
		client:     openai.NewClientWithConfig(clientCfg),
		httpClient: &http.Client{}, // no timeout: streams run until the model finishes
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     cfg.Logger,
	}
}

// Complete runs a non-streaming chat completion and returns the first choice.
func (c *LLMClient) Complete(ctx context.Context, model string, messages []domain.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toChatMessages(messages),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", parseCompletionError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrCompletionProviderError)
	}

	return resp.Choices[0].Message.Content, nil
}

// streamRequest is the wire shape of a streaming chat completion request.
type streamRequest struct {
	Model    string                         `json:"model"`
	Messages []openai.ChatCompletionMessage `json:"messages"`
	Stream   bool                           `json:"stream"`
}

// StreamCompletion starts a streaming chat completion and returns the raw
// SSE body. The caller owns the ReadCloser and must close it.
func (c *LLMClient) StreamCompletion(ctx context.Context, model string, messages []domain.Message) (
	io.ReadCloser, error,
) {
	body, err := json.Marshal(streamRequest{
		Model:    model,
		Messages: toChatMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal stream request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w: %w", err, domain.ErrCompletionProviderError)
	}

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("completion API error %d: %s: %w",
			resp.StatusCode, string(detail), domain.ErrCompletionProviderError)
	}

	c.logger.Debug("Completion stream opened",
		zap.String("model", model),
		zap.Duration("ttfb", time.Since(start)),
	)

	return resp.Body, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *LLMClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func toChatMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}

// parseCompletionError wraps SDK errors with domain.ErrCompletionProviderError,
// preserving the upstream status and message.
func parseCompletionError(err error) error {
	wrap := domain.ErrCompletionProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request failed: %w: %w", err, wrap)
}
