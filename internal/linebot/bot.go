// Package linebot is the transport boundary: it terminates the LINE
// webhook, feeds text events into the dialogue router and converts the
// router's replies into messaging API payloads.
package linebot

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/rs/zerolog"

	"xiaojin-bot/internal/config"
	"xiaojin-bot/internal/member"
	"xiaojin-bot/internal/message"
	"xiaojin-bot/internal/router"
	"xiaojin-bot/internal/session"
	"xiaojin-bot/internal/storage"
	"xiaojin-bot/internal/ui"
)

// replyLimit is the LINE platform cap on messages per reply token.
const replyLimit = 5

const genericFailureText = "系統發生錯誤，請稍後再試。"

type Bot struct {
	api           *messaging_api.MessagingApiAPI
	channelSecret string
	router        *router.Router
	sessions      session.Store
	members       *member.Service
	render        *ui.Renderer
	recorder      storage.Recorder
	staticDir     string
	log           zerolog.Logger
}

func New(cfg *config.Config, r *router.Router, sessions session.Store,
	members *member.Service, render *ui.Renderer, recorder storage.Recorder,
	log zerolog.Logger) (*Bot, error) {
	api, err := messaging_api.NewMessagingApiAPI(cfg.LineChannelToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:           api,
		channelSecret: cfg.LineChannelSecret,
		router:        r,
		sessions:      sessions,
		members:       members,
		render:        render,
		recorder:      recorder,
		staticDir:     cfg.StaticDir,
		log:           log.With().Str("component", "linebot").Logger(),
	}, nil
}

// Handler returns the HTTP surface: callback, static images and a
// liveness probe.
func (b *Bot) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", b.handleCallback)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(b.staticDir))))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (b *Bot) handleCallback(w http.ResponseWriter, req *http.Request) {
	cb, err := webhook.ParseRequest(b.channelSecret, req)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			b.log.Warn().Msg("webhook signature mismatch")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.log.Error().Err(err).Msg("webhook parse failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	for _, event := range cb.Events {
		switch e := event.(type) {
		case webhook.MessageEvent:
			b.handleMessageEvent(req.Context(), e)
		case webhook.FollowEvent:
			b.handleFollowEvent(e)
		default:
			b.log.Debug().Msg("ignoring unsupported event type")
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (b *Bot) handleMessageEvent(ctx context.Context, e webhook.MessageEvent) {
	userID := eventUserID(e.Source)
	if userID == "" {
		b.log.Debug().Msg("message event without user source, skipped")
		return
	}
	text, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		b.log.Debug().Str("user_id", userID).Msg("non-text message, skipped")
		return
	}

	log := b.log.With().Str("trace_id", uuid.NewString()).Str("user_id", userID).Logger()

	msgs := b.dispatch(ctx, log, userID, text.Text)
	if len(msgs) == 0 {
		return
	}
	b.reply(log, e.ReplyToken, msgs)
	b.record(log, userID, text.Text, len(msgs))
}

// dispatch runs the router under a recover barrier: one user's bad
// turn must never take the process down.
func (b *Bot) dispatch(ctx context.Context, log zerolog.Logger, userID, text string) (msgs []message.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("dialogue handler panicked")
			msgs = []message.Message{message.NewText(genericFailureText)}
		}
	}()
	return b.router.Handle(ctx, userID, text)
}

func (b *Bot) handleFollowEvent(e webhook.FollowEvent) {
	userID := eventUserID(e.Source)
	if userID == "" {
		return
	}
	log := b.log.With().Str("trace_id", uuid.NewString()).Str("user_id", userID).Logger()

	var name, picture string
	if profile, err := b.api.GetProfile(userID); err != nil {
		log.Warn().Err(err).Msg("failed to fetch profile, using defaults")
	} else {
		name = profile.DisplayName
		picture = profile.PictureUrl
	}

	rec, created := b.members.Ensure(userID, name, picture)
	if created {
		log.Info().Str("name", rec.Name).Msg("new follower")
	}
	b.sessions.SetMode(userID, session.ModeMainMenu)

	msgs := append([]message.Message{b.render.Welcome(rec.Name)}, b.render.MainMenu()...)
	b.reply(log, e.ReplyToken, msgs)
}

func (b *Bot) reply(log zerolog.Logger, replyToken string, msgs []message.Message) {
	msgs = capReplies(log, msgs)
	out := make([]messaging_api.MessageInterface, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, b.convert(log, m))
	}
	if _, err := b.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   out,
	}); err != nil {
		log.Error().Err(err).Msg("reply failed")
	}
}

// capReplies enforces the platform cap on messages per reply token.
func capReplies(log zerolog.Logger, msgs []message.Message) []message.Message {
	if len(msgs) <= replyLimit {
		return msgs
	}
	log.Warn().Int("count", len(msgs)).Msg("reply truncated to the platform limit")
	return msgs[:replyLimit]
}

// convert maps a dialogue reply onto its messaging API counterpart.
func (b *Bot) convert(log zerolog.Logger, m message.Message) messaging_api.MessageInterface {
	switch m := m.(type) {
	case message.Text:
		return messaging_api.TextMessage{Text: m.Text}
	case message.Flex:
		contents, err := messaging_api.UnmarshalFlexContainer(m.Contents)
		if err != nil {
			log.Error().Err(err).Str("alt_text", m.AltText).Msg("flex payload rejected")
			return messaging_api.TextMessage{Text: m.AltText}
		}
		return messaging_api.FlexMessage{AltText: m.AltText, Contents: contents}
	case message.Carousel:
		columns := make([]messaging_api.CarouselColumn, 0, len(m.Columns))
		for _, col := range m.Columns {
			actions := make([]messaging_api.ActionInterface, 0, len(col.Actions))
			for _, a := range col.Actions {
				actions = append(actions, messaging_api.MessageAction{Label: a.Label, Text: a.Text})
			}
			columns = append(columns, messaging_api.CarouselColumn{
				ThumbnailImageUrl: col.ImageURL,
				Title:             col.Title,
				Text:              col.Text,
				Actions:           actions,
			})
		}
		return messaging_api.TemplateMessage{
			AltText: m.AltText,
			Template: messaging_api.CarouselTemplate{
				Columns:          columns,
				ImageAspectRatio: m.ImageAspectRatio,
				ImageSize:        m.ImageSize,
			},
		}
	default:
		log.Error().Msg("unknown outbound message variant")
		return messaging_api.TextMessage{Text: genericFailureText}
	}
}

func (b *Bot) record(log zerolog.Logger, userID, text string, replyCount int) {
	if b.recorder == nil {
		return
	}
	err := b.recorder.AppendInteraction(storage.Event{
		Timestamp:   time.Now().UTC(),
		UserID:      userID,
		Mode:        string(b.sessions.Mode(userID)),
		UserMessage: text,
		ReplyCount:  replyCount,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to record dialogue event")
	}
}

func eventUserID(source webhook.SourceInterface) string {
	if s, ok := source.(webhook.UserSource); ok {
		return s.UserId
	}
	return ""
}
