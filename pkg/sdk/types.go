package lumine

import (
	"encoding/json"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stream event types.
const (
	EventContext = "context"
	EventToken   = "token"
)

// Source selection for live retrieval.
const (
	SourceSocial = "social"
	SourceWeb    = "web"
	SourceBoth   = "both"
)

// Document is one retrieved source: a social post or a web snippet.
type Document struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

// Message is one conversation turn. The full history is sent on every
// request; the service keeps no conversation state.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult is the single-turn answer together with its sources.
type ChatResult struct {
	Response string     `json:"response"`
	Context  []Document `json:"context"`
}

// StreamEvent is one decoded frame of the streaming protocol. Data is
// left raw; use Token or Documents depending on Type.
type StreamEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	ID   string          `json:"id"`
}

// Token decodes the payload of a token event.
func (e StreamEvent) Token() (string, error) {
	if e.Type != EventToken {
		return "", fmt.Errorf("event type is %q, not %q", e.Type, EventToken)
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return "", fmt.Errorf("decode token payload: %w", err)
	}
	return s, nil
}

// Documents decodes the payload of a context event.
func (e StreamEvent) Documents() ([]Document, error) {
	if e.Type != EventContext {
		return nil, fmt.Errorf("event type is %q, not %q", e.Type, EventContext)
	}
	var docs []Document
	if err := json.Unmarshal(e.Data, &docs); err != nil {
		return nil, fmt.Errorf("decode context payload: %w", err)
	}
	return docs, nil
}
