package lumine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChat_DecodesAnswerAndContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "latest launch" {
			t.Errorf("unexpected query %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"it launched","context":[{"uri":"at://p/1","text":"liftoff"}]}`))
	}))
	defer ts.Close()

	client := New(ts.URL)
	res, err := client.Chat(context.Background(), "latest launch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Response != "it launched" {
		t.Errorf("unexpected response: %q", res.Response)
	}
	if len(res.Context) != 1 || res.Context[0].URI != "at://p/1" {
		t.Errorf("unexpected context: %+v", res.Context)
	}
}

func TestChat_SourceForwarded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("source"); got != SourceWeb {
			t.Errorf("unexpected source %q", got)
		}
		_, _ = w.Write([]byte(`{"response":"","context":[]}`))
	}))
	defer ts.Close()

	client := New(ts.URL, WithSource(SourceWeb))
	if _, err := client.Chat(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChat_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
	}))
	defer ts.Close()

	client := New(ts.URL)
	_, err := client.Chat(context.Background(), "")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected status: %d", statusErr.StatusCode)
	}
	if statusErr.Body != "missing q parameter" {
		t.Errorf("unexpected body: %q", statusErr.Body)
	}
}

func TestChatStream_DecodesEvents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "tell me" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			`data: {"type":"context","data":[{"uri":"u1","text":"doc"}],"id":"chatcmpl-1"}` + "\n\n" +
				": keepalive\n\n" +
				`data: {"type":"token","data":"Hello","id":"chatcmpl-1"}` + "\n\n" +
				"data: [DONE]\n\n",
		))
	}))
	defer ts.Close()

	client := New(ts.URL)
	stream, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "tell me"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	first, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv context: %v", err)
	}
	if first.Type != EventContext {
		t.Fatalf("expected context event, got %q", first.Type)
	}
	docs, err := first.Documents()
	if err != nil || len(docs) != 1 || docs[0].URI != "u1" {
		t.Fatalf("unexpected documents: %v %v", docs, err)
	}

	second, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv token: %v", err)
	}
	token, err := second.Token()
	if err != nil || token != "Hello" {
		t.Fatalf("unexpected token: %q %v", token, err)
	}
	if second.ID != first.ID {
		t.Errorf("correlation id changed mid-stream: %q vs %q", second.ID, first.ID)
	}

	if _, err := stream.Recv(); err != io.EOF {
		t.Fatalf("expected EOF after [DONE], got %v", err)
	}
	// EOF is sticky
	if _, err := stream.Recv(); err != io.EOF {
		t.Fatalf("expected repeated EOF, got %v", err)
	}
}

func TestChatStream_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "messages must not be empty", http.StatusBadRequest)
	}))
	defer ts.Close()

	client := New(ts.URL)
	_, err := client.ChatStream(context.Background(), nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
}

func TestStreamEvent_TypeMismatch(t *testing.T) {
	ev := StreamEvent{Type: EventToken, Data: []byte(`"x"`)}
	if _, err := ev.Documents(); err == nil {
		t.Error("expected error decoding documents from a token event")
	}
	ev = StreamEvent{Type: EventContext, Data: []byte(`[]`)}
	if _, err := ev.Token(); err == nil {
		t.Error("expected error decoding token from a context event")
	}
}
