package router

import (
	"strings"

	"xiaojin-bot/internal/config"
)

// command is the result of classifying one inbound text exactly once.
// The dispatch switches on it instead of scattering string
// comparisons, so the transition table stays in one place.
type command int

const (
	// cmdText is any text with no reserved meaning; its handling
	// depends on the user's current mode.
	cmdText command = iota
	// cmdNextLevelQuiz restarts the quiz at the next tier and
	// promotes the member to it. Bypasses the current mode.
	cmdNextLevelQuiz
	// cmdRetryQuiz restarts the quiz at the same tier. Bypasses the
	// current mode.
	cmdRetryQuiz
	// cmdStartAnswering opens (or resumes) a quiz at the member's
	// tier. Bypasses the current mode.
	cmdStartAnswering
	cmdMenuForex
	cmdMenuQuiz
	cmdMenuAI
	cmdExitAI
)

// classify maps text onto a command; arg carries the tier for the
// quiz restart commands.
func classify(labels config.Labels, text string) (cmd command, arg string) {
	switch {
	case strings.HasPrefix(text, labels.NextLevel):
		return cmdNextLevelQuiz, strings.TrimPrefix(text, labels.NextLevel)
	case strings.HasPrefix(text, labels.RetryLevel):
		return cmdRetryQuiz, strings.TrimPrefix(text, labels.RetryLevel)
	}
	switch text {
	case labels.StartAnswering:
		return cmdStartAnswering, ""
	case labels.MenuForex:
		return cmdMenuForex, ""
	case labels.MenuQuiz:
		return cmdMenuQuiz, ""
	case labels.MenuAI:
		return cmdMenuAI, ""
	case labels.ExitAI:
		return cmdExitAI, ""
	}
	return cmdText, ""
}
