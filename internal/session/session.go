// Package session tracks which top-level flow currently owns each
// user's conversation.
package session

import "sync"

// Mode is the active top-level flow for a user.
type Mode string

const (
	ModeMainMenu Mode = "main_menu"
	ModeForex    Mode = "forex_mode"
	ModeQuiz     Mode = "quiz_mode"
	ModeAI       Mode = "ai_mode"
)

// Store keeps one mode per user. Implementations must be safe for
// concurrent use.
type Store interface {
	Mode(userID string) Mode
	SetMode(userID string, mode Mode)
	Delete(userID string)
}

type memoryStore struct {
	mu    sync.RWMutex
	modes map[string]Mode
}

// NewMemoryStore returns the in-process Store implementation.
func NewMemoryStore() Store {
	return &memoryStore{modes: make(map[string]Mode)}
}

// Mode returns the stored mode, or ModeMainMenu for unseen users.
func (s *memoryStore) Mode(userID string) Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.modes[userID]; ok {
		return m
	}
	return ModeMainMenu
}

func (s *memoryStore) SetMode(userID string, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[userID] = mode
}

func (s *memoryStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.modes, userID)
}
