// Package forex implements the four-step currency conversion dialogue.
package forex

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"xiaojin-bot/internal/config"
	"xiaojin-bot/internal/message"
	"xiaojin-bot/internal/ui"
)

// Step is the position inside the conversion dialogue.
type Step int

const (
	StepChooseDirection Step = iota + 1
	StepChooseCurrency
	StepEnterAmount
	StepResult
)

type state struct {
	step      Step
	direction string
	currency  string
}

// Flow advances one user through direction → currency → amount →
// result. A user with no live state is idle; the session is removed
// when the user leaves for the main menu.
type Flow struct {
	mu     sync.Mutex
	states map[string]*state
	rates  RateSource
	render *ui.Renderer
	labels config.Labels
	log    zerolog.Logger
}

func NewFlow(rates RateSource, render *ui.Renderer, log zerolog.Logger) *Flow {
	return &Flow{
		states: make(map[string]*state),
		rates:  rates,
		render: render,
		labels: render.Labels(),
		log:    log.With().Str("component", "forex").Logger(),
	}
}

const unavailableText = "匯率服務暫時無法使用，請稍後再試。"

// Start opens the dialogue with the direction prompt. When no rate
// table is available at all the flow refuses to open and stays idle.
func (f *Flow) Start(ctx context.Context, userID string) []message.Message {
	f.refresh(ctx)
	if len(f.rates.Rates()) == 0 {
		return []message.Message{message.NewText(unavailableText)}
	}

	f.mu.Lock()
	f.states[userID] = &state{step: StepChooseDirection}
	f.mu.Unlock()
	return []message.Message{f.render.DirectionPrompt()}
}

// Advance consumes one user text at the current step. Invalid input
// re-prompts without moving the step.
func (f *Flow) Advance(ctx context.Context, userID, text string) []message.Message {
	f.refresh(ctx)
	text = strings.TrimSpace(text)

	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[userID]
	if !ok {
		s = &state{step: StepChooseDirection}
		f.states[userID] = s
	}

	switch s.step {
	case StepChooseDirection:
		return f.chooseDirection(s, text)
	case StepChooseCurrency:
		return f.chooseCurrency(s, text)
	case StepEnterAmount:
		return f.enterAmount(s, text)
	case StepResult:
		return f.afterResult(userID, s, text)
	default:
		f.states[userID] = &state{step: StepChooseDirection}
		return []message.Message{message.NewText(fmt.Sprintf(
			"流程錯誤，重新開始。請輸入『%s』或『%s』", f.labels.ToForeign, f.labels.ToLocal))}
	}
}

// IsDone reports whether the user has no live conversion dialogue.
func (f *Flow) IsDone(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.states[userID]
	return !ok
}

// Step exposes the user's current step for tests and diagnostics.
func (f *Flow) Step(userID string) (Step, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[userID]
	if !ok {
		return 0, false
	}
	return s.step, true
}

func (f *Flow) chooseDirection(s *state, text string) []message.Message {
	if text != f.labels.ToForeign && text != f.labels.ToLocal {
		return []message.Message{f.render.DirectionPrompt()}
	}
	s.direction = text
	s.step = StepChooseCurrency
	return []message.Message{f.render.CurrencyCarousel(f.available())}
}

func (f *Flow) chooseCurrency(s *state, text string) []message.Message {
	rates := f.rates.Rates()
	if r, ok := rates[text]; !ok || r <= 0 {
		return []message.Message{message.NewText(fmt.Sprintf(
			"我們目前支援的幣種為：%s，請重新輸入。", f.supportedList()))}
	}
	s.currency = text
	s.step = StepEnterAmount
	prompt := f.labels.LocalCurrency
	if s.direction == f.labels.ToLocal {
		prompt = text
	}
	return []message.Message{message.NewText(fmt.Sprintf("請輸入您要換算的金額（%s）：", prompt))}
}

func (f *Flow) enterAmount(s *state, text string) []message.Message {
	amount, err := strconv.ParseFloat(text, 64)
	if err != nil || amount <= 0 {
		return []message.Message{message.NewText("請輸入有效的正數金額，請重新輸入。")}
	}

	rate, ok := f.rates.Rates()[s.currency]
	if !ok || rate <= 0 {
		// Currency dropped out of the table between steps.
		s.step = StepChooseCurrency
		return []message.Message{message.NewText(fmt.Sprintf(
			"我們目前支援的幣種為：%s，請重新輸入。", f.supportedList()))}
	}

	local := f.labels.LocalCurrency
	var amountLine, convertedLine string
	if s.direction == f.labels.ToForeign {
		converted := amount * rate
		amountLine = fmt.Sprintf("金額%s %s", formatAmount(amount), local)
		convertedLine = fmt.Sprintf("可換%.2f %s", converted, s.currency)
	} else {
		converted := amount / rate
		amountLine = fmt.Sprintf("金額%s %s", formatAmount(amount), s.currency)
		convertedLine = fmt.Sprintf("可換%.2f %s", converted, local)
	}
	rateLine := fmt.Sprintf("今日匯率：1 %s = %.4f %s", local, rate, s.currency)

	s.step = StepResult
	return []message.Message{f.render.ConversionResult(amountLine, convertedLine, rateLine)}
}

func (f *Flow) afterResult(userID string, s *state, text string) []message.Message {
	switch text {
	case f.labels.ToForeign, f.labels.ToLocal:
		s.direction = text
		s.currency = ""
		s.step = StepChooseCurrency
		return []message.Message{f.render.CurrencyCarousel(f.available())}
	case f.labels.MainMenu:
		delete(f.states, userID)
		return f.render.MainMenu()
	default:
		// Intentional: the result card's follow-ups are direction
		// labels, so the direction prompt is re-shown while the step
		// stays at the result.
		return []message.Message{f.render.DirectionPrompt()}
	}
}

// available returns the configured currencies that have a known rate,
// preserving the configured order.
func (f *Flow) available() []config.Currency {
	rates := f.rates.Rates()
	out := make([]config.Currency, 0, len(f.labels.Currencies))
	for _, c := range f.labels.Currencies {
		if r, ok := rates[c.Name]; ok && r > 0 {
			out = append(out, c)
		}
	}
	return out
}

func (f *Flow) supportedList() string {
	names := make([]string, 0, len(f.labels.Currencies))
	for _, c := range f.available() {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

func (f *Flow) refresh(ctx context.Context) {
	if err := f.rates.RefreshIfStale(ctx); err != nil {
		f.log.Warn().Err(err).Msg("rate refresh failed")
	}
}

func formatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}
