package domain

import "time"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusStarted    Status = "started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further answers are accepted in this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Facts is the ground truth supplied by the host when a session starts.
type Facts struct {
	UserExists bool   `json:"user_exists"`
	EventType  string `json:"event_type,omitempty"`
}

// Session is the progress of one user through a form.
// The engine never mutates a Session it receives; it returns a new one.
type Session struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Variant       Variant          `json:"variant"`
	Facts         Facts            `json:"facts"`
	Language      string           `json:"language"`
	SchemaVersion string           `json:"schema_version"`
	Answers       map[string]Value `json:"answers"`
	Status        Status           `json:"status"`
	CancelReason  string           `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Active reports whether the session still accepts answers.
func (s *Session) Active() bool {
	return !s.Status.Terminal()
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Answers = make(map[string]Value, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v.Clone()
	}
	return &out
}

// Record groups the answers of a completed session that share a destination,
// e.g. the user profile versus the event registration.
type Record struct {
	Destination string           `json:"destination"`
	Answers     map[string]Value `json:"answers"`
	// Order lists the answer ids in traversal order.
	Order []string `json:"order"`
}
