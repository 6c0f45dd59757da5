package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"xiaojin-bot/internal/config"
	"xiaojin-bot/internal/llm"
	"xiaojin-bot/internal/message"
	"xiaojin-bot/internal/ui"
)

type stubClient struct {
	resp llm.Response
	err  error
	seen []llm.Message
}

func (s *stubClient) Generate(ctx context.Context, messages []llm.Message) (llm.Response, error) {
	s.seen = messages
	return s.resp, s.err
}

func newTestFlow(client llm.Client) *Flow {
	render := ui.NewRenderer(config.DefaultLabels(), "https://static.example.com/", "", zerolog.Nop())
	return NewFlow(client, render, zerolog.Nop())
}

func replyText(t *testing.T, msgs []message.Message) string {
	t.Helper()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	txt, ok := msgs[0].(message.Text)
	if !ok {
		t.Fatalf("expected text message, got %T", msgs[0])
	}
	return txt.Text
}

func TestAskPrependsDomainInstruction(t *testing.T) {
	client := &stubClient{resp: llm.Response{Content: "  定存是一種存款商品。  "}}
	f := newTestFlow(client)

	got := replyText(t, f.Ask(context.Background(), "u1", "什麼是定存？"))
	if got != "定存是一種存款商品。" {
		t.Errorf("answer = %q", got)
	}
	if len(client.seen) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(client.seen))
	}
	if client.seen[0].Role != "system" || client.seen[0].Content != "請與金融相關回覆，字數300字內" {
		t.Errorf("system message = %+v", client.seen[0])
	}
	if client.seen[1].Role != "user" || client.seen[1].Content != "什麼是定存？" {
		t.Errorf("user message = %+v", client.seen[1])
	}
}

func TestAskMapsEmptyResponse(t *testing.T) {
	f := newTestFlow(&stubClient{err: llm.ErrEmptyResponse})
	got := replyText(t, f.Ask(context.Background(), "u1", "問題"))
	if got != "抱歉，無法取得回覆，請稍後再試。" {
		t.Errorf("fallback = %q", got)
	}
}

func TestAskMapsBlankContent(t *testing.T) {
	f := newTestFlow(&stubClient{resp: llm.Response{Content: "   "}})
	got := replyText(t, f.Ask(context.Background(), "u1", "問題"))
	if got != "抱歉，無法取得回覆，請稍後再試。" {
		t.Errorf("fallback = %q", got)
	}
}

func TestAskMapsFailure(t *testing.T) {
	f := newTestFlow(&stubClient{err: errors.New("api unavailable")})
	got := replyText(t, f.Ask(context.Background(), "u1", "問題"))
	if got != "抱歉，無法回答您的問題，請稍後再試。" {
		t.Errorf("fallback = %q", got)
	}
}

func TestEnterRendersCard(t *testing.T) {
	f := newTestFlow(&stubClient{})
	msgs := f.Enter()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(message.Flex); !ok {
		t.Errorf("expected flex card, got %T", msgs[0])
	}
}
