package expansion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/domain"
)

type mockCompleter struct {
	out      string
	err      error
	gotModel string
	gotMsgs  []domain.Message
}

func (m *mockCompleter) Complete(_ context.Context, model string, messages []domain.Message) (string, error) {
	m.gotModel = model
	m.gotMsgs = messages
	return m.out, m.err
}

func newTestService(t *testing.T, llm *mockCompleter) *Service {
	t.Helper()
	return New(llm, "expansion-model", zap.NewNop())
}

func TestExpandQuery_ParsesArray(t *testing.T) {
	llm := &mockCompleter{out: `["quantum chip 2026", "qubit record -\"top 10\"", "quantum computing lang:en"]`}
	svc := newTestService(t, llm)

	got := svc.ExpandQuery(context.Background(), "quantum chip")
	if len(got) != 3 {
		t.Fatalf("expected 3 queries, got %d: %v", len(got), got)
	}
	if got[0] != "quantum chip 2026" {
		t.Errorf("unexpected first query: %q", got[0])
	}
	if llm.gotModel != "expansion-model" {
		t.Errorf("unexpected model: %s", llm.gotModel)
	}
	if len(llm.gotMsgs) != 2 || llm.gotMsgs[0].Role != domain.RoleSystem {
		t.Fatalf("expected system+user messages, got %v", llm.gotMsgs)
	}
	if !strings.Contains(llm.gotMsgs[1].Content, `Original query: "quantum chip"`) {
		t.Errorf("expected serialized query in user message, got %q", llm.gotMsgs[1].Content)
	}
}

func TestExpandQuery_CapsAtThree(t *testing.T) {
	llm := &mockCompleter{out: `["a","b","c","d","e"]`}
	svc := newTestService(t, llm)

	got := svc.ExpandQuery(context.Background(), "q")
	if len(got) != 3 {
		t.Fatalf("expected cap at 3, got %d", len(got))
	}
}

func TestExpandQuery_ToleratesCodeFences(t *testing.T) {
	llm := &mockCompleter{out: "```json\n[\"one\", \"two\"]\n```"}
	svc := newTestService(t, llm)

	got := svc.ExpandQuery(context.Background(), "q")
	if len(got) != 2 || got[0] != "one" {
		t.Fatalf("expected fenced array parsed, got %v", got)
	}
}

func TestExpandQuery_ToleratesSurroundingProse(t *testing.T) {
	llm := &mockCompleter{out: `Here are the queries: ["one"] hope that helps`}
	svc := newTestService(t, llm)

	got := svc.ExpandQuery(context.Background(), "q")
	if len(got) != 1 || got[0] != "one" {
		t.Fatalf("expected embedded array parsed, got %v", got)
	}
}

func TestExpandQuery_MalformedOutputIsEmpty(t *testing.T) {
	for _, out := range []string{"not json at all", `{"queries": []}`, `[1, 2, 3]`} {
		llm := &mockCompleter{out: out}
		svc := newTestService(t, llm)

		if got := svc.ExpandQuery(context.Background(), "q"); len(got) != 0 {
			t.Errorf("output %q: expected empty, got %v", out, got)
		}
	}
}

func TestExpandQuery_EmptyArray(t *testing.T) {
	llm := &mockCompleter{out: `[]`}
	svc := newTestService(t, llm)

	if got := svc.ExpandQuery(context.Background(), "hello there"); len(got) != 0 {
		t.Fatalf("expected empty expansion, got %v", got)
	}
}

func TestExpandQuery_ProviderErrorIsEmpty(t *testing.T) {
	llm := &mockCompleter{err: errors.New("provider down")}
	svc := newTestService(t, llm)

	if got := svc.ExpandQuery(context.Background(), "q"); got != nil {
		t.Fatalf("expected nil on provider error, got %v", got)
	}
}

func TestExpandConversation_SerializesMessages(t *testing.T) {
	llm := &mockCompleter{out: `["follow up query"]`}
	svc := newTestService(t, llm)

	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "what happened"},
		{Role: domain.RoleAssistant, Content: "a lot"},
		{Role: domain.RoleUser, Content: "tell me more"},
	}
	got := svc.ExpandConversation(context.Background(), msgs)
	if len(got) != 1 {
		t.Fatalf("expected 1 query, got %v", got)
	}
	if !strings.Contains(llm.gotMsgs[1].Content, `"tell me more"`) {
		t.Errorf("expected conversation serialized into prompt, got %q", llm.gotMsgs[1].Content)
	}
}

func TestExpand_DropsBlankQueries(t *testing.T) {
	llm := &mockCompleter{out: `["good", "", "  "]`}
	svc := newTestService(t, llm)

	got := svc.ExpandQuery(context.Background(), "q")
	if len(got) != 1 || got[0] != "good" {
		t.Fatalf("expected blanks dropped, got %v", got)
	}
}
