package quiz

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"xiaojin-bot/internal/config"
	"xiaojin-bot/internal/message"
	"xiaojin-bot/internal/ui"
)

// uniformBank builds n questions per given tier that all share the same
// correct answer, so tests can answer correctly without knowing the
// shuffled order.
func uniformBank(n int, levels ...string) *Bank {
	questions := make(map[string][]Question)
	for _, level := range levels {
		list := make([]Question, 0, n)
		for i := 0; i < n; i++ {
			list = append(list, Question{
				Question: fmt.Sprintf("%s 題目 %d", level, i+1),
				Options:  []string{"對", "錯", "不一定"},
				Answer:   "對",
			})
		}
		questions[level] = list
	}
	return NewBank(questions)
}

func newTestFlow(bank *Bank) *Flow {
	render := ui.NewRenderer(config.DefaultLabels(), "https://static.example.com/", "", zerolog.Nop())
	return NewFlow(bank, render, rand.New(rand.NewSource(1)), zerolog.Nop())
}

func lastTexts(msgs []message.Message) []string {
	var out []string
	for _, m := range msgs {
		if txt, ok := m.(message.Text); ok {
			out = append(out, txt.Text)
		}
	}
	return out
}

func TestStartRefusesEmptyLevel(t *testing.T) {
	f := newTestFlow(NewBank(nil))
	msgs := f.Start("u1", "高級金融")
	texts := lastTexts(msgs)
	if len(texts) != 1 || texts[0] != "「高級金融」的題庫尚未開放，請稍後再試。" {
		t.Fatalf("unexpected refusal: %v", texts)
	}
	if !f.IsDone("u1") {
		t.Error("no session should be opened for an empty tier")
	}
}

func TestOrderIsPermutation(t *testing.T) {
	f := newTestFlow(uniformBank(10, "一般會員"))
	f.Start("u1", "一般會員")

	order, ok := f.Order("u1")
	if !ok {
		t.Fatal("no session after start")
	}
	if len(order) != 10 {
		t.Fatalf("order length = %d", len(order))
	}
	seen := make(map[int]bool, len(order))
	for _, i := range order {
		if i < 0 || i >= 10 || seen[i] {
			t.Fatalf("order is not a permutation: %v", order)
		}
		seen[i] = true
	}
}

func TestAdvanceFeedback(t *testing.T) {
	f := newTestFlow(uniformBank(3, "一般會員"))
	f.Start("u1", "一般會員")

	msgs, res := f.Advance("u1", "對")
	if res != nil {
		t.Fatal("quiz should not finish after one answer")
	}
	if texts := lastTexts(msgs); len(texts) == 0 || texts[0] != "答對了！🎉" {
		t.Errorf("unexpected feedback: %v", texts)
	}

	msgs, _ = f.Advance("u1", "錯")
	if texts := lastTexts(msgs); len(texts) == 0 || texts[0] != "答錯了！正確答案是：對" {
		t.Errorf("unexpected feedback: %v", texts)
	}
}

func TestPerfectRunUpgrades(t *testing.T) {
	f := newTestFlow(uniformBank(10, "一般會員"))
	f.Start("u1", "一般會員")

	var res *Result
	var msgs []message.Message
	for i := 0; i < 10; i++ {
		msgs, res = f.Advance("u1", "對")
	}
	if res == nil {
		t.Fatal("quiz did not finish after the last question")
	}
	if res.Correct != 10 || res.Answered != 10 || !res.Passed {
		t.Errorf("result = %+v", res)
	}
	if res.UpgradeTo != "初級金融" {
		t.Errorf("upgrade target = %q", res.UpgradeTo)
	}
	if !f.IsDone("u1") {
		t.Error("session should be removed after the last answer")
	}

	joined := strings.Join(lastTexts(msgs), "\n")
	if !strings.Contains(joined, "本次答對 10 / 10 題，正確率達標！🎉 恭喜升級為 初級金融！") {
		t.Errorf("missing upgrade message:\n%s", joined)
	}
}

func TestNineOfTenStillPasses(t *testing.T) {
	f := newTestFlow(uniformBank(10, "一般會員"))
	f.Start("u1", "一般會員")

	var res *Result
	f.Advance("u1", "錯")
	for i := 0; i < 9; i++ {
		_, res = f.Advance("u1", "對")
	}
	if res == nil || !res.Passed || res.UpgradeTo != "初級金融" {
		t.Errorf("result = %+v", res)
	}
}

func TestBelowThresholdFails(t *testing.T) {
	f := newTestFlow(uniformBank(10, "一般會員"))
	f.Start("u1", "一般會員")

	var res *Result
	var msgs []message.Message
	f.Advance("u1", "錯")
	f.Advance("u1", "錯")
	for i := 0; i < 8; i++ {
		msgs, res = f.Advance("u1", "對")
	}
	if res == nil || res.Passed || res.UpgradeTo != "" {
		t.Errorf("result = %+v", res)
	}

	joined := strings.Join(lastTexts(msgs), "\n")
	if !strings.Contains(joined, "本次答對 8 / 10 題。") {
		t.Errorf("missing score message:\n%s", joined)
	}
	if !strings.Contains(joined, "未達升級標準，歡迎再接再厲！") {
		t.Errorf("missing encouragement:\n%s", joined)
	}
}

func TestTopTierHasNoUpgrade(t *testing.T) {
	f := newTestFlow(uniformBank(2, "菁英金融"))
	f.Start("u1", "菁英金融")

	f.Advance("u1", "對")
	msgs, res := f.Advance("u1", "對")
	if res == nil || !res.Passed {
		t.Fatalf("result = %+v", res)
	}
	if res.UpgradeTo != "" {
		t.Errorf("top tier produced upgrade target %q", res.UpgradeTo)
	}

	joined := strings.Join(lastTexts(msgs), "\n")
	if !strings.Contains(joined, "恭喜您，已完成最高等級 菁英金融 的所有題目且答對率優異！🎉") {
		t.Errorf("missing top tier message:\n%s", joined)
	}
}

func TestAdvanceWithoutSession(t *testing.T) {
	f := newTestFlow(uniformBank(2, "一般會員"))
	msgs, res := f.Advance("u1", "對")
	if res != nil {
		t.Fatal("no result expected without a session")
	}
	if texts := lastTexts(msgs); len(texts) != 1 || texts[0] != "請輸入「開始作答」開始測驗" {
		t.Errorf("unexpected reply: %v", texts)
	}
}

// optionSequence reads back the order in which the options appear in a
// rendered bubble payload.
func optionSequence(t *testing.T, payload string, options []string) string {
	t.Helper()
	ordered := append([]string(nil), options...)
	sort.Slice(ordered, func(i, j int) bool {
		return strings.Index(payload, ordered[i]) < strings.Index(payload, ordered[j])
	})
	for _, o := range ordered {
		if !strings.Contains(payload, o) {
			t.Fatalf("option %q missing from payload:\n%s", o, payload)
		}
	}
	return strings.Join(ordered, "")
}

func TestOptionOrderReshufflesPerRender(t *testing.T) {
	options := []string{"甲", "乙", "丙", "丁", "戊", "己"}
	bank := NewBank(map[string][]Question{
		"一般會員": {{Question: "選出正解", Options: options, Answer: "甲"}},
	})
	f := newTestFlow(bank)
	f.Start("u1", "一般會員")
	orderBefore, _ := f.Order("u1")

	sequences := make(map[string]bool)
	for i := 0; i < 6; i++ {
		msgs := f.CurrentQuestion("u1")
		flex, ok := msgs[0].(message.Flex)
		if !ok {
			t.Fatalf("expected flex bubble, got %T", msgs[0])
		}
		sequences[optionSequence(t, string(flex.Contents), options)] = true
	}
	if len(sequences) < 2 {
		t.Error("option order never changed across renders")
	}

	orderAfter, _ := f.Order("u1")
	if fmt.Sprint(orderBefore) != fmt.Sprint(orderAfter) {
		t.Errorf("re-rendering changed the question order: %v vs %v", orderBefore, orderAfter)
	}
}

func TestCurrentQuestionReRenders(t *testing.T) {
	f := newTestFlow(uniformBank(2, "一般會員"))
	if f.CurrentQuestion("u1") != nil {
		t.Error("no question expected without a session")
	}

	f.Start("u1", "一般會員")
	msgs := f.CurrentQuestion("u1")
	if len(msgs) != 1 {
		t.Fatalf("expected one question bubble, got %d messages", len(msgs))
	}
	if _, ok := msgs[0].(message.Flex); !ok {
		t.Errorf("expected flex bubble, got %T", msgs[0])
	}
}
