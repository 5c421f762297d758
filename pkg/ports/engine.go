package ports

import (
	"context"

	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/schema"
)

// FlowEngine defines the flow controller operations used by adapters
// (session manager, HTTP, CLI). It is implemented by *formflow.Engine.
type FlowEngine interface {
	Schema() *schema.Schema
	Start(ctx context.Context, userID string, variant domain.Variant, facts domain.Facts, opts ...runtime.StartOption) (*domain.Session, error)
	NextQuestion(s *domain.Session) (domain.Question, bool)
	Submit(ctx context.Context, s *domain.Session, questionID string, raw domain.RawAnswer) (runtime.Step, error)
	Complete(ctx context.Context, s *domain.Session) (*domain.Session, error)
	Cancel(ctx context.Context, s *domain.Session, reason string) (*domain.Session, error)
	Plan(s *domain.Session) []runtime.Entry
	Progress(s *domain.Session) runtime.Progress
	Records(s *domain.Session) []domain.Record
}
