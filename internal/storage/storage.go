package storage

import "time"

// Event represents a single handled dialogue turn: the user's text,
// the mode that owned it and how many messages went back.
// Events are expected to be appended in chronological order.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id"`
	Mode        string    `json:"mode"`
	UserMessage string    `json:"user_message"`
	ReplyCount  int       `json:"reply_count"`
}

// Recorder abstracts persistence of dialogue events.
// Implementations can be file-based, database, etc.
// LoadInteractions should return events in chronological order; the
// bot itself only appends, readback serves offline inspection of the
// recorded dialogues.
// AppendInteraction should atomically append a new event.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
