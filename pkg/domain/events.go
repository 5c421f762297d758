package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart    EventType = "session_start"
	EventAnswerAccepted  EventType = "answer_accepted"
	EventAnswerRejected  EventType = "answer_rejected"
	EventSessionComplete EventType = "session_complete"
	EventSessionCancel   EventType = "session_cancel"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
}

// SessionEvent is emitted when a session changes lifecycle status.
type SessionEvent struct {
	EventBase
	Variant Variant `json:"variant"`
	Status  Status  `json:"status"`
	Reason  string  `json:"reason,omitempty"`
	// StartedAt is the session's creation time.
	StartedAt time.Time `json:"started_at"`
}

// AnswerEvent is emitted for every validated submission.
type AnswerEvent struct {
	EventBase
	QuestionID string        `json:"question_id"`
	Rejection  RejectionKind `json:"rejection,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnSessionStart    func(context.Context, *SessionEvent)
	OnAnswerAccepted  func(context.Context, *AnswerEvent)
	OnAnswerRejected  func(context.Context, *AnswerEvent)
	OnSessionComplete func(context.Context, *SessionEvent)
	OnSessionCancel   func(context.Context, *SessionEvent)
}
