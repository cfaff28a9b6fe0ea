package lumine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	httpClient *http.Client
	source     string
}

// WithHTTPClient overrides the underlying HTTP client. The default has a
// 30s timeout for Chat; streams always use a client without a timeout.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithSource restricts which live providers back retrieval: SourceSocial,
// SourceWeb or SourceBoth (default).
func WithSource(source string) Option {
	return optionFunc(func(c *clientConfig) {
		c.source = source
	})
}

// Client is the lumine SDK entry point.
type Client struct {
	baseURL    string
	source     string
	httpClient *http.Client
	// streams stay open past any request timeout
	streamClient *http.Client
}

// New creates a client for a service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		source:       cfg.source,
		httpClient:   hc,
		streamClient: &http.Client{},
	}
}

// Chat answers a single query, grounded on retrieved documents.
func (c *Client) Chat(ctx context.Context, query string) (*ChatResult, error) {
	q := url.Values{"q": {query}}
	if c.source != "" {
		q.Set("source", c.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	var result ChatResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &result, nil
}

// ChatStream streams the answer for a conversation. The caller must Close
// the returned stream.
func (c *Client) ChatStream(ctx context.Context, messages []Message) (*Stream, error) {
	payload, err := json.Marshal(struct {
		Messages []Message `json:"messages"`
		Source   string    `json:"source,omitempty"`
	}{Messages: messages, Source: c.source})
	if err != nil {
		return nil, fmt.Errorf("encode stream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/stream", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := newStatusError(resp)
		_ = resp.Body.Close()
		return nil, err
	}

	return newStream(resp.Body), nil
}

// StatusError reports a non-200 response from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service returned status %d: %s", e.StatusCode, e.Body)
}

func newStatusError(resp *http.Response) *StatusError {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(detail)),
	}
}
