// Package quiz implements the tiered certification quiz dialogue.
package quiz

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"xiaojin-bot/internal/message"
	"xiaojin-bot/internal/ui"
)

// passAccuracy is the share of correct answers required to pass.
const passAccuracy = 0.9

type progress struct {
	level   string
	order   []int
	index   int
	correct int
}

// Result summarizes a finished quiz. UpgradeTo is non-empty when the
// member earned the next tier; the router persists it.
type Result struct {
	Level     string
	Answered  int
	Correct   int
	Passed    bool
	UpgradeTo string
}

// Flow tracks one quiz session per user. The session exists exactly
// while a quiz is in progress and is removed when the last question
// has been answered.
type Flow struct {
	mu       sync.Mutex
	bank     *Bank
	sessions map[string]*progress
	rng      *rand.Rand
	render   *ui.Renderer
	log      zerolog.Logger
}

// NewFlow builds the quiz flow. rng may be nil; tests pass a seeded
// source to make question and option order reproducible.
func NewFlow(bank *Bank, render *ui.Renderer, rng *rand.Rand, log zerolog.Logger) *Flow {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Flow{
		bank:     bank,
		sessions: make(map[string]*progress),
		rng:      rng,
		render:   render,
		log:      log.With().Str("component", "quiz").Logger(),
	}
}

// Start opens a fresh session at the given tier with a new random
// question order and renders the first question. Tiers with no
// questions refuse to start so that scoring never divides by zero.
func (f *Flow) Start(userID, level string) []message.Message {
	questions := f.bank.QuestionsFor(level)
	if len(questions) == 0 {
		f.log.Warn().Str("level", level).Msg("no questions for level")
		return []message.Message{message.NewText(fmt.Sprintf("「%s」的題庫尚未開放，請稍後再試。", level))}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[userID] = &progress{
		level: level,
		order: f.rng.Perm(len(questions)),
	}
	return f.renderQuestion(f.sessions[userID])
}

// CurrentQuestion re-renders the pending question of a live session.
// Option order is re-shuffled per render.
func (f *Flow) CurrentQuestion(userID string) []message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.sessions[userID]
	if !ok {
		return nil
	}
	return f.renderQuestion(p)
}

// Advance checks the answer, moves to the next question and, when the
// quiz is exhausted, returns the scoring Result and removes the
// session.
func (f *Flow) Advance(userID, answer string) ([]message.Message, *Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.sessions[userID]
	if !ok {
		return []message.Message{message.NewText(fmt.Sprintf(
			"請輸入「%s」開始測驗", f.render.Labels().StartAnswering))}, nil
	}

	questions := f.bank.QuestionsFor(p.level)
	q := questions[p.order[p.index]]

	var feedback message.Message
	if answer == q.Answer {
		p.correct++
		feedback = message.NewText("答對了！🎉")
	} else {
		feedback = message.NewText(fmt.Sprintf("答錯了！正確答案是：%s", q.Answer))
	}
	p.index++

	if p.index < len(p.order) {
		return append([]message.Message{feedback}, f.renderQuestion(p)...), nil
	}
	return f.finish(userID, p, feedback)
}

// IsDone reports whether the user has no live quiz session.
func (f *Flow) IsDone(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[userID]
	return !ok
}

// Order exposes the session's question permutation for tests.
func (f *Flow) Order(userID string) ([]int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.sessions[userID]
	if !ok {
		return nil, false
	}
	return append([]int(nil), p.order...), true
}

func (f *Flow) renderQuestion(p *progress) []message.Message {
	questions := f.bank.QuestionsFor(p.level)
	q := questions[p.order[p.index]]

	options := append([]string(nil), q.Options...)
	f.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return []message.Message{f.render.QuestionBubble(p.level, p.index, q.Question, options)}
}

func (f *Flow) finish(userID string, p *progress, feedback message.Message) ([]message.Message, *Result) {
	delete(f.sessions, userID)

	correct, total := p.correct, p.index
	res := &Result{Level: p.level, Answered: total, Correct: correct}
	res.Passed = total > 0 && float64(correct)/float64(total) >= passAccuracy

	msgs := []message.Message{feedback}
	levelNum := LevelIndex(p.level)
	switch {
	case res.Passed && levelNum >= 0 && levelNum < len(Levels)-1:
		next := Levels[levelNum+1]
		res.UpgradeTo = next
		msgs = append(msgs,
			message.NewText(fmt.Sprintf("本次答對 %d / %d 題，正確率達標！🎉 恭喜升級為 %s！", correct, total, next)),
			message.NewText("請點選下方主選單繼續操作。"),
		)
	case res.Passed:
		msgs = append(msgs,
			message.NewText(fmt.Sprintf("恭喜您，已完成最高等級 %s 的所有題目且答對率優異！🎉", p.level)),
			message.NewText("感謝您的熱情參與，歡迎再次練習或探索其他功能。"),
			message.NewText("請點選下方主選單繼續操作。"),
		)
	default:
		msgs = append(msgs,
			message.NewText(fmt.Sprintf("本次答對 %d / %d 題。", correct, total)),
			message.NewText("未達升級標準，歡迎再接再厲！"),
			message.NewText("請點選下方主選單繼續操作。"),
		)
	}
	msgs = append(msgs, f.render.MainMenu()...)

	f.log.Info().Str("user_id", userID).Str("level", p.level).
		Int("correct", correct).Int("total", total).Bool("passed", res.Passed).
		Msg("quiz finished")
	return msgs, res
}
