package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/schema"
	"github.com/google/uuid"
)

// Engine is the flow controller. It holds no per-session state: every
// operation receives a Session and returns a new one.
type Engine struct {
	schemas *schema.Holder
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	clock   func() time.Time
	newID   func() string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClock overrides the time source used for timestamps and for
// date and age rules.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithIDGenerator overrides how session ids are minted (default: random UUID).
func WithIDGenerator(gen func() string) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// NewEngine creates an engine reading its schema from schemas.
func NewEngine(schemas *schema.Holder, opts ...EngineOption) *Engine {
	e := &Engine{
		schemas: schemas,
		logger:  logging.NewNop(),
		clock:   time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the schema currently in effect.
func (e *Engine) Schema() *schema.Schema {
	return e.schemas.Load()
}

type startConfig struct {
	language string
}

// StartOption configures a new session.
type StartOption func(*startConfig)

// WithLanguage selects the session language. Undeclared languages fall back
// to the form's default language.
func WithLanguage(lang string) StartOption {
	return func(c *startConfig) {
		c.language = lang
	}
}

// Start creates a fresh session for userID.
func (e *Engine) Start(ctx context.Context, userID string, variant domain.Variant, facts domain.Facts, opts ...StartOption) (*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	if variant != domain.VariantNewUser && variant != domain.VariantReturningUser {
		return nil, fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidRequest, variant)
	}

	cfg := startConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	sc := e.schemas.Load()
	lang := cfg.language
	if !sc.SupportsLanguage(lang) {
		lang = sc.Info().DefaultLanguage
	}

	now := e.clock()
	s := &domain.Session{
		ID:            e.newID(),
		UserID:        userID,
		Variant:       variant,
		Facts:         facts,
		Language:      lang,
		SchemaVersion: sc.Version(),
		Answers:       make(map[string]domain.Value),
		Status:        domain.StatusStarted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	e.logger.Debug("session started",
		"session_id", s.ID,
		"user_id", userID,
		"variant", variant,
		"schema_version", s.SchemaVersion,
	)
	e.emitSession(ctx, domain.EventSessionStart, s, e.hooks.OnSessionStart)
	return s, nil
}

func (e *Engine) emitSession(ctx context.Context, typ domain.EventType, s *domain.Session, hook func(context.Context, *domain.SessionEvent)) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.SessionEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Type: typ, SessionID: s.ID, UserID: s.UserID},
		Variant:   s.Variant,
		Status:    s.Status,
		Reason:    s.CancelReason,
		StartedAt: s.CreatedAt,
	})
}

func (e *Engine) emitAnswer(ctx context.Context, s *domain.Session, qid string, out domain.Outcome) {
	typ, hook := domain.EventAnswerAccepted, e.hooks.OnAnswerAccepted
	var kind domain.RejectionKind
	if !out.Accepted() {
		typ, hook = domain.EventAnswerRejected, e.hooks.OnAnswerRejected
		kind = out.Rejection.Kind
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.AnswerEvent{
		EventBase:  domain.EventBase{Timestamp: e.clock(), Type: typ, SessionID: s.ID, UserID: s.UserID},
		QuestionID: qid,
		Rejection:  kind,
	})
}
