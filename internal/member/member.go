package member

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLevel is the tier assigned on first contact.
const DefaultLevel = "一般會員"

// QuizStats accumulates per-member quiz history.
type QuizStats struct {
	LastDate     string `json:"last_date"`
	CorrectCount int    `json:"correct_count"`
	TotalCount   int    `json:"total_count"`
	PassedCount  int    `json:"passed_count"`
}

// Record is the durable per-member profile.
type Record struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	PictureURL string    `json:"picture_url"`
	Level      string    `json:"member_level"`
	Quiz       QuizStats `json:"quiz_record"`
}

// Repository persists the whole member table at once. There are no
// partial writes; every mutation rewrites the full table.
type Repository interface {
	LoadAll() (map[string]Record, error)
	SaveAll(records map[string]Record) error
}

// Service keeps the member table in memory and writes it through the
// repository on every mutation. Write failures are logged and
// swallowed: losing a member update must never break the dialogue.
type Service struct {
	mu      sync.RWMutex
	repo    Repository
	records map[string]Record
	log     zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) (*Service, error) {
	s := &Service{
		repo:    repo,
		records: make(map[string]Record),
		log:     log.With().Str("component", "member").Logger(),
	}
	if repo != nil {
		records, err := repo.LoadAll()
		if err != nil {
			return nil, err
		}
		for id, rec := range records {
			s.records[id] = rec
		}
		s.log.Info().Int("count", len(records)).Msg("member records loaded")
	}
	return s, nil
}

// Get returns the record for userID if one exists.
func (s *Service) Get(userID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	return rec, ok
}

// Level returns the member tier, falling back to the default tier for
// unknown users.
func (s *Service) Level(userID string) string {
	if rec, ok := s.Get(userID); ok && rec.Level != "" {
		return rec.Level
	}
	return DefaultLevel
}

// Ensure creates a default record on first contact. It reports whether
// a new record was created.
func (s *Service) Ensure(userID, name, pictureURL string) (Record, bool) {
	s.mu.Lock()
	if rec, ok := s.records[userID]; ok {
		s.mu.Unlock()
		return rec, false
	}
	if name == "" {
		name = "匿名"
	}
	rec := Record{
		UserID:     userID,
		Name:       name,
		PictureURL: pictureURL,
		Level:      DefaultLevel,
	}
	s.records[userID] = rec
	s.mu.Unlock()

	s.persist()
	s.log.Info().Str("user_id", userID).Msg("member record created")
	return rec, true
}

// SetLevel updates the member tier and persists the table.
func (s *Service) SetLevel(userID, level string) {
	s.mu.Lock()
	rec, ok := s.records[userID]
	if !ok {
		rec = Record{UserID: userID, Name: "匿名"}
	}
	rec.Level = level
	s.records[userID] = rec
	s.mu.Unlock()

	s.persist()
}

// RecordQuizResult folds one finished quiz into the member's stats.
func (s *Service) RecordQuizResult(userID string, correct, total int, passed bool) {
	s.mu.Lock()
	rec, ok := s.records[userID]
	if !ok {
		rec = Record{UserID: userID, Name: "匿名", Level: DefaultLevel}
	}
	rec.Quiz.CorrectCount += correct
	rec.Quiz.TotalCount += total
	if passed {
		rec.Quiz.PassedCount++
	}
	rec.Quiz.LastDate = time.Now().UTC().Format("2006-01-02")
	s.records[userID] = rec
	s.mu.Unlock()

	s.persist()
}

func (s *Service) persist() {
	if s.repo == nil {
		return
	}
	s.mu.RLock()
	snapshot := make(map[string]Record, len(s.records))
	for id, rec := range s.records {
		snapshot[id] = rec
	}
	s.mu.RUnlock()

	if err := s.repo.SaveAll(snapshot); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist member records")
	}
}
