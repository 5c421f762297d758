package formflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/aretw0/formflow/pkg/schema"
)

var _ ports.FlowEngine = (*Engine)(nil)

// Step is the result of a submission. See runtime.Step.
type Step = runtime.Step

// Progress summarizes how far a session is through the form.
type Progress = runtime.Progress

// Entry is one line of a session plan.
type Entry = runtime.Entry

// Disposition classifies a question relative to a session.
type Disposition = runtime.Disposition

// Question dispositions reported by Plan.
const (
	Answered     = runtime.Answered
	Skipped      = runtime.Skipped
	Pending      = runtime.Pending
	Inapplicable = runtime.Inapplicable
)

// StartOption configures a new session.
type StartOption = runtime.StartOption

// WithLanguage selects the language of a new session.
func WithLanguage(lang string) StartOption { return runtime.WithLanguage(lang) }

// Engine is the high-level entry point of the formflow library.
// It owns the current schema and interprets it for any number of sessions.
// It is safe for concurrent use.
type Engine struct {
	runtime     *runtime.Engine
	schemas     *schema.Holder
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the time source used for timestamps and date rules.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(clock))
	}
}

// WithIDGenerator sets how session ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithIDGenerator(gen))
	}
}

// New validates def and builds an engine serving it.
func New(def schema.Definition, opts ...Option) (*Engine, error) {
	s, err := schema.Load(def)
	if err != nil {
		return nil, err
	}
	return NewFromSchema(s, opts...), nil
}

// NewFromSchema builds an engine serving an already loaded schema.
func NewFromSchema(s *schema.Schema, opts ...Option) *Engine {
	eng := &Engine{schemas: schema.NewHolder(s)}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if name := s.Info().Name; name != "" {
		eng.logger = eng.logger.With("form", name)
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(eng.schemas, runtimeOpts...)
	return eng
}

// Schema returns the schema currently in effect.
func (e *Engine) Schema() *schema.Schema {
	return e.schemas.Load()
}

// Reload validates def and atomically replaces the current schema.
// On error the previous schema stays in effect.
func (e *Engine) Reload(def schema.Definition) error {
	s, err := schema.Load(def)
	if err != nil {
		return fmt.Errorf("reload rejected: %w", err)
	}
	e.Swap(s)
	return nil
}

// Swap replaces the current schema with s.
func (e *Engine) Swap(s *schema.Schema) {
	prev := e.schemas.Store(s)
	if prev != nil && prev.Version() != s.Version() {
		e.logger.Info("schema reloaded", "from", prev.Version(), "to", s.Version())
	}
}

// Start creates a fresh session for userID.
func (e *Engine) Start(ctx context.Context, userID string, variant domain.Variant, facts domain.Facts, opts ...StartOption) (*domain.Session, error) {
	return e.runtime.Start(ctx, userID, variant, facts, opts...)
}

// NextQuestion returns the question to ask next, or false when none remains.
func (e *Engine) NextQuestion(s *domain.Session) (domain.Question, bool) {
	return e.runtime.NextQuestion(s)
}

// Submit validates and records an answer to the pending question.
func (e *Engine) Submit(ctx context.Context, s *domain.Session, questionID string, raw domain.RawAnswer) (Step, error) {
	return e.runtime.Submit(ctx, s, questionID, raw)
}

// Complete marks a session with no pending question as completed.
func (e *Engine) Complete(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	return e.runtime.Complete(ctx, s)
}

// Cancel abandons an active session.
func (e *Engine) Cancel(ctx context.Context, s *domain.Session, reason string) (*domain.Session, error) {
	return e.runtime.Cancel(ctx, s, reason)
}

// Plan classifies every question relative to the session.
func (e *Engine) Plan(s *domain.Session) []Entry {
	return e.runtime.Plan(s)
}

// Progress estimates how far the session is through the form.
func (e *Engine) Progress(s *domain.Session) Progress {
	return e.runtime.Progress(s)
}

// Records groups the session's answers by destination.
func (e *Engine) Records(s *domain.Session) []domain.Record {
	return e.runtime.Records(s)
}
