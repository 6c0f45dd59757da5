package quiz

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Levels are the quiz tiers in ascending order. A member's tier gates
// which question set they get.
var Levels = []string{"一般會員", "初級金融", "高級金融", "菁英金融"}

// LevelIndex returns the position of level in the tier order, or -1.
func LevelIndex(level string) int {
	for i, l := range Levels {
		if l == level {
			return i
		}
	}
	return -1
}

// NextLevel returns the tier above level, if any.
func NextLevel(level string) (string, bool) {
	i := LevelIndex(level)
	if i < 0 || i >= len(Levels)-1 {
		return "", false
	}
	return Levels[i+1], true
}

// Question is one quiz item. Answer must match one of the options
// exactly.
type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// Bank holds the question lists per tier.
type Bank struct {
	questions map[string][]Question
}

// NewBank wraps an in-memory question set. Used by tests.
func NewBank(questions map[string][]Question) *Bank {
	if questions == nil {
		questions = make(map[string][]Question)
	}
	return &Bank{questions: questions}
}

// NewBankFromFile loads the bank from a JSON file keyed by tier name.
// A missing file degrades to an empty bank so the rest of the bot
// keeps working; a malformed file is a startup error.
func NewBankFromFile(path string, log zerolog.Logger) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("question bank file not found, starting empty")
			return NewBank(nil), nil
		}
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	questions := make(map[string][]Question)
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	return NewBank(questions), nil
}

// QuestionsFor returns the ordered question list for a tier.
func (b *Bank) QuestionsFor(level string) []Question {
	return b.questions[level]
}
