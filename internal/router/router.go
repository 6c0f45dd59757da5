// Package router owns the per-user dialogue state machine: it assigns
// one mode per user, dispatches each inbound text to the flow owning
// that mode and performs the mode transitions when a flow finishes.
package router

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"xiaojin-bot/internal/ai"
	"xiaojin-bot/internal/config"
	"xiaojin-bot/internal/forex"
	"xiaojin-bot/internal/member"
	"xiaojin-bot/internal/message"
	"xiaojin-bot/internal/quiz"
	"xiaojin-bot/internal/session"
	"xiaojin-bot/internal/ui"
)

type Router struct {
	sessions session.Store
	locks    *session.Locks
	members  *member.Service
	forex    *forex.Flow
	quiz     *quiz.Flow
	ai       *ai.Flow
	render   *ui.Renderer
	labels   config.Labels
	log      zerolog.Logger
}

func New(sessions session.Store, members *member.Service, forexFlow *forex.Flow,
	quizFlow *quiz.Flow, aiFlow *ai.Flow, render *ui.Renderer, log zerolog.Logger) *Router {
	return &Router{
		sessions: sessions,
		locks:    session.NewLocks(),
		members:  members,
		forex:    forexFlow,
		quiz:     quizFlow,
		ai:       aiFlow,
		render:   render,
		labels:   render.Labels(),
		log:      log.With().Str("component", "router").Logger(),
	}
}

// Handle processes one inbound text for one user and returns the
// reply set. Handling is serialized per user key; events for distinct
// users proceed concurrently. Failures inside the sub-flows never
// surface here: each flow degrades to a fallback reply on its own.
func (r *Router) Handle(ctx context.Context, userID, text string) []message.Message {
	unlock := r.locks.Lock(userID)
	defer unlock()

	r.members.Ensure(userID, "", "")
	text = strings.TrimSpace(text)
	cmd, arg := classify(r.labels, text)

	// Quiz restart commands take priority over whatever mode the
	// user is in.
	switch cmd {
	case cmdNextLevelQuiz:
		r.members.SetLevel(userID, arg)
		return r.enterQuiz(userID, arg)
	case cmdRetryQuiz:
		return r.enterQuiz(userID, arg)
	case cmdStartAnswering:
		if msgs := r.quiz.CurrentQuestion(userID); msgs != nil {
			r.sessions.SetMode(userID, session.ModeQuiz)
			return msgs
		}
		return r.enterQuiz(userID, r.members.Level(userID))
	}

	switch mode := r.sessions.Mode(userID); mode {
	case session.ModeMainMenu:
		return r.handleMainMenu(ctx, userID, cmd)
	case session.ModeForex:
		msgs := r.forex.Advance(ctx, userID, text)
		if r.forex.IsDone(userID) {
			r.sessions.SetMode(userID, session.ModeMainMenu)
		}
		return msgs
	case session.ModeQuiz:
		return r.handleQuiz(userID, text)
	case session.ModeAI:
		if cmd == cmdExitAI {
			r.sessions.SetMode(userID, session.ModeMainMenu)
			return append(r.render.MainMenu(), message.NewText("已離開AI客服，回到主選單"))
		}
		return r.ai.Ask(ctx, userID, text)
	default:
		// Unknown mode value: reset rather than get stuck.
		r.log.Error().Str("user_id", userID).Str("mode", string(mode)).Msg("unknown session mode")
		r.sessions.SetMode(userID, session.ModeMainMenu)
		return append(r.render.MainMenu(), message.NewText("發生異常，已回到主選單，請重新操作"))
	}
}

func (r *Router) handleMainMenu(ctx context.Context, userID string, cmd command) []message.Message {
	switch cmd {
	case cmdMenuForex:
		r.sessions.SetMode(userID, session.ModeForex)
		msgs := r.forex.Start(ctx, userID)
		if r.forex.IsDone(userID) {
			r.sessions.SetMode(userID, session.ModeMainMenu)
		}
		return msgs
	case cmdMenuQuiz:
		return r.enterQuiz(userID, r.members.Level(userID))
	case cmdMenuAI:
		r.sessions.SetMode(userID, session.ModeAI)
		return r.ai.Enter()
	default:
		return append(r.render.MainMenu(), message.NewText("請從下方選單選擇功能或點擊按鈕開始。"))
	}
}

// enterQuiz starts a quiz at the given tier and sets the mode to quiz
// while a session is actually open (a tier without questions refuses
// to start).
func (r *Router) enterQuiz(userID, level string) []message.Message {
	msgs := r.quiz.Start(userID, level)
	if r.quiz.IsDone(userID) {
		r.sessions.SetMode(userID, session.ModeMainMenu)
	} else {
		r.sessions.SetMode(userID, session.ModeQuiz)
	}
	return msgs
}

func (r *Router) handleQuiz(userID, text string) []message.Message {
	msgs, res := r.quiz.Advance(userID, text)
	if res != nil {
		if res.UpgradeTo != "" {
			r.members.SetLevel(userID, res.UpgradeTo)
		}
		r.members.RecordQuizResult(userID, res.Correct, res.Answered, res.Passed)
	}
	if r.quiz.IsDone(userID) {
		r.sessions.SetMode(userID, session.ModeMainMenu)
	}
	return msgs
}
