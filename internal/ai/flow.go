// Package ai wraps the LLM client in the question/answer dialogue.
package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"xiaojin-bot/internal/llm"
	"xiaojin-bot/internal/message"
	"xiaojin-bot/internal/ui"
)

// domainInstruction keeps answers on finance topics and bounded in
// length, mirroring the customer-service positioning of the bot.
const domainInstruction = "請與金融相關回覆，字數300字內"

const (
	fallbackEmpty   = "抱歉，無法取得回覆，請稍後再試。"
	fallbackFailure = "抱歉，無法回答您的問題，請稍後再試。"
)

// Flow is the AI Q&A dialogue. It holds no per-user memory: every
// question is an independent completion.
type Flow struct {
	client llm.Client
	render *ui.Renderer
	log    zerolog.Logger
}

func NewFlow(client llm.Client, render *ui.Renderer, log zerolog.Logger) *Flow {
	return &Flow{
		client: client,
		render: render,
		log:    log.With().Str("component", "ai").Logger(),
	}
}

// Enter announces AI mode. Leaving it is handled by the router.
func (f *Flow) Enter() []message.Message {
	return []message.Message{f.render.AIModeCard()}
}

// Ask forwards the user text with the domain instruction and maps any
// failure to a fixed fallback reply; errors never escape.
func (f *Flow) Ask(ctx context.Context, userID, text string) []message.Message {
	resp, err := f.client.Generate(ctx, []llm.Message{
		{Role: "system", Content: domainInstruction},
		{Role: "user", Content: text},
	})
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			f.log.Warn().Str("user_id", userID).Msg("llm returned empty response")
			return []message.Message{message.NewText(fallbackEmpty)}
		}
		f.log.Error().Err(err).Str("user_id", userID).Msg("llm call failed")
		return []message.Message{message.NewText(fallbackFailure)}
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return []message.Message{message.NewText(fallbackEmpty)}
	}

	f.log.Debug().Str("user_id", userID).Str("model", resp.Model).
		Int("total_tokens", resp.TotalTokens).Msg("llm response")
	return []message.Message{message.NewText(content)}
}
