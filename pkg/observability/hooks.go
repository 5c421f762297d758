package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/formflow/pkg/domain"
)

// Combine fans every event out to each set of hooks, in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnSessionStart = chainSession(out.OnSessionStart, h.OnSessionStart)
		out.OnSessionComplete = chainSession(out.OnSessionComplete, h.OnSessionComplete)
		out.OnSessionCancel = chainSession(out.OnSessionCancel, h.OnSessionCancel)
		out.OnAnswerAccepted = chainAnswer(out.OnAnswerAccepted, h.OnAnswerAccepted)
		out.OnAnswerRejected = chainAnswer(out.OnAnswerRejected, h.OnAnswerRejected)
	}
	return out
}

func chainSession(a, b func(context.Context, *domain.SessionEvent)) func(context.Context, *domain.SessionEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.SessionEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainAnswer(a, b func(context.Context, *domain.AnswerEvent)) func(context.Context, *domain.AnswerEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.AnswerEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

// LoggingHooks logs every lifecycle event. Rejections are routine input
// errors and log at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	session := func(msg string) func(context.Context, *domain.SessionEvent) {
		return func(ctx context.Context, e *domain.SessionEvent) {
			attrs := []any{"session_id", e.SessionID, "user_id", e.UserID, "variant", e.Variant}
			if e.Reason != "" {
				attrs = append(attrs, "reason", e.Reason)
			}
			logger.InfoContext(ctx, msg, attrs...)
		}
	}
	return domain.LifecycleHooks{
		OnSessionStart:    session("session_start"),
		OnSessionComplete: session("session_complete"),
		OnSessionCancel:   session("session_cancel"),
		OnAnswerAccepted: func(ctx context.Context, e *domain.AnswerEvent) {
			logger.DebugContext(ctx, "answer_accepted", "session_id", e.SessionID, "question_id", e.QuestionID)
		},
		OnAnswerRejected: func(ctx context.Context, e *domain.AnswerEvent) {
			logger.DebugContext(ctx, "answer_rejected", "session_id", e.SessionID, "question_id", e.QuestionID, "kind", e.Rejection)
		},
	}
}
