package runtime

import (
	"context"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/validation"
)

// Step is the result of a submission.
type Step struct {
	Session *domain.Session
	Outcome domain.Outcome
	// Next is the question to ask now: the same one after a rejection, the
	// following one after an acceptance, nil once the form is complete.
	Next *domain.Question
}

// Done reports whether the session reached the end of the form.
func (s Step) Done() bool {
	return s.Session != nil && s.Session.Status == domain.StatusCompleted
}

// Submit validates an answer to the pending question and records it.
//
// A rejected answer returns the session unchanged together with the
// rejection. An accepted answer that leaves nothing else to ask completes
// the session in the same step.
func (e *Engine) Submit(ctx context.Context, s *domain.Session, questionID string, raw domain.RawAnswer) (Step, error) {
	if s.Status.Terminal() {
		return Step{Session: s}, &domain.TerminatedError{SessionID: s.ID, Status: s.Status, Op: "submit"}
	}

	sc := e.schemas.Load()
	q, ok := next(sc, s)
	if !ok || q.ID != questionID {
		return Step{Session: s}, &domain.OutOfSyncError{SessionID: s.ID, Expected: q.ID, Got: questionID}
	}

	now := e.clock()
	out := validation.Validate(q, raw, validation.Env{Now: now, Texts: sc.Text})
	e.emitAnswer(ctx, s, q.ID, out)
	if !out.Accepted() {
		e.logger.Debug("answer rejected",
			"session_id", s.ID,
			"question_id", q.ID,
			"kind", out.Rejection.Kind,
		)
		pending := q.Clone()
		return Step{Session: s, Outcome: out, Next: &pending}, nil
	}

	ns := s.Clone()
	ns.Answers[q.ID] = out.Value
	ns.UpdatedAt = now
	ns.SchemaVersion = sc.Version()
	if ns.Status == domain.StatusStarted {
		ns.Status = domain.StatusInProgress
	}
	if q.ID == sc.Info().LanguageQuestion && sc.SupportsLanguage(out.Value.Text) {
		ns.Language = out.Value.Text
	}

	e.logger.Debug("answer accepted", "session_id", ns.ID, "question_id", q.ID)

	following, more := next(sc, ns)
	if !more {
		ns.Status = domain.StatusCompleted
		e.logger.Debug("session completed", "session_id", ns.ID, "answers", len(ns.Answers))
		e.emitSession(ctx, domain.EventSessionComplete, ns, e.hooks.OnSessionComplete)
		return Step{Session: ns, Outcome: out}, nil
	}
	following = following.Clone()
	return Step{Session: ns, Outcome: out, Next: &following}, nil
}

// Complete marks a session whose traversal is exhausted as completed.
// Completing an already completed session is a no-op.
func (e *Engine) Complete(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	switch s.Status {
	case domain.StatusCompleted:
		return s, nil
	case domain.StatusCancelled:
		return s, &domain.TerminatedError{SessionID: s.ID, Status: s.Status, Op: "complete"}
	}

	if q, ok := next(e.schemas.Load(), s); ok {
		return s, &domain.IncompleteError{SessionID: s.ID, Pending: q.ID}
	}

	ns := s.Clone()
	ns.Status = domain.StatusCompleted
	ns.UpdatedAt = e.clock()
	e.logger.Debug("session completed", "session_id", ns.ID, "answers", len(ns.Answers))
	e.emitSession(ctx, domain.EventSessionComplete, ns, e.hooks.OnSessionComplete)
	return ns, nil
}

// Cancel abandons an active session, recording reason verbatim.
func (e *Engine) Cancel(ctx context.Context, s *domain.Session, reason string) (*domain.Session, error) {
	if s.Status.Terminal() {
		return s, &domain.TerminatedError{SessionID: s.ID, Status: s.Status, Op: "cancel"}
	}

	ns := s.Clone()
	ns.Status = domain.StatusCancelled
	ns.CancelReason = reason
	ns.UpdatedAt = e.clock()
	e.logger.Debug("session cancelled", "session_id", ns.ID, "reason", reason)
	e.emitSession(ctx, domain.EventSessionCancel, ns, e.hooks.OnSessionCancel)
	return ns, nil
}
