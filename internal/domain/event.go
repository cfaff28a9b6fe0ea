package domain

// Stream event types.
const (
	EventContext = "context"
	EventToken   = "token"
)

// StreamEvent is one frame of the outbound SSE protocol. The context event
// carries the retrieved documents and is always sent before any tokens;
// token events carry incremental text. ID is the per-request correlation id.
type StreamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
	ID   string `json:"id"`
}

// ContextEvent builds the initial frame carrying the source documents.
func ContextEvent(docs []Document, id string) StreamEvent {
	if docs == nil {
		docs = []Document{}
	}
	return StreamEvent{Type: EventContext, Data: docs, ID: id}
}

// TokenEvent builds a frame carrying one incremental text fragment.
func TokenEvent(text, id string) StreamEvent {
	return StreamEvent{Type: EventToken, Data: text, ID: id}
}
