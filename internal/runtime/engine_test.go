package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/internal/testutils"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, def schema.Definition, opts ...runtime.EngineOption) (*runtime.Engine, *schema.Holder) {
	t.Helper()
	holder := schema.NewHolder(testutils.MustSchema(t, def))
	opts = append([]runtime.EngineOption{runtime.WithClock(testutils.Clock(testutils.Now))}, opts...)
	return runtime.NewEngine(holder, opts...), holder
}

func start(t *testing.T, e *runtime.Engine, variant domain.Variant, facts domain.Facts) *domain.Session {
	t.Helper()
	s, err := e.Start(context.Background(), "user-1", variant, facts)
	require.NoError(t, err)
	return s
}

func submit(t *testing.T, e *runtime.Engine, s *domain.Session, qid, answer string) runtime.Step {
	t.Helper()
	step, err := e.Submit(context.Background(), s, qid, domain.Text(answer))
	require.NoError(t, err)
	require.True(t, step.Outcome.Accepted(), "answer %q to %s rejected: %+v", answer, qid, step.Outcome.Rejection)
	return step
}

func threeQuestions() schema.Definition {
	return testutils.Form(
		testutils.TextQuestion("q1", 1),
		testutils.TextQuestion("q2", 2),
		testutils.TextQuestion("q3", 3),
	)
}

func TestStart(t *testing.T) {
	e, _ := newEngine(t, threeQuestions(), runtime.WithIDGenerator(func() string { return "fixed" }))

	s, err := e.Start(context.Background(), "user-1", domain.VariantNewUser, domain.Facts{EventType: "play"}, runtime.WithLanguage("he"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", s.ID)
	assert.Equal(t, domain.StatusStarted, s.Status)
	assert.Empty(t, s.Answers)
	assert.Equal(t, "he", s.Language)
	assert.Equal(t, testutils.Now, s.CreatedAt)
	assert.Equal(t, e.Schema().Version(), s.SchemaVersion)

	s, err = e.Start(context.Background(), "user-1", domain.VariantNewUser, domain.Facts{}, runtime.WithLanguage("fr"))
	require.NoError(t, err)
	assert.Equal(t, "en", s.Language, "undeclared language falls back to default")

	_, err = e.Start(context.Background(), "", domain.VariantNewUser, domain.Facts{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = e.Start(context.Background(), "u", "guest", domain.Facts{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

// Scenario A: a linear form completes after its last answer.
func TestFlow_Linear(t *testing.T) {
	e, _ := newEngine(t, threeQuestions())
	s := start(t, e, domain.VariantNewUser, domain.Facts{})

	q, ok := e.NextQuestion(s)
	require.True(t, ok)
	assert.Equal(t, "q1", q.ID)

	step := submit(t, e, s, "q1", "one")
	assert.Equal(t, domain.StatusInProgress, step.Session.Status)
	assert.Equal(t, "q2", step.Next.ID)
	assert.Equal(t, domain.StatusStarted, s.Status, "input session must not change")
	assert.Empty(t, s.Answers)

	step = submit(t, e, step.Session, "q2", "two")
	step = submit(t, e, step.Session, "q3", "three")
	assert.True(t, step.Done())
	assert.Nil(t, step.Next)
	assert.Equal(t, domain.StatusCompleted, step.Session.Status)
	assert.Len(t, step.Session.Answers, 3)

	_, ok = e.NextQuestion(step.Session)
	assert.False(t, ok)
}

// Scenario B: a question whose condition refers to a later question is asked.
func TestFlow_ForwardReferenceIsAsked(t *testing.T) {
	e, _ := newEngine(t, testutils.Form(
		testutils.TextQuestion("q1", 1),
		testutils.Skip(testutils.TextQuestion("q2", 2), domain.FieldEquals{Field: "q5", Value: "x"}),
		testutils.TextQuestion("q5", 5),
	))
	s := start(t, e, domain.VariantNewUser, domain.Facts{})

	step := submit(t, e, s, "q1", "a")
	require.NotNil(t, step.Next)
	assert.Equal(t, "q2", step.Next.ID)
}

// Scenario C: a rejected answer leaves the session untouched.
func TestFlow_RejectionKeepsSession(t *testing.T) {
	name := testutils.TextQuestion("name", 1)
	name.Rules = []domain.Rule{{
		Kind:    domain.RuleMinLength,
		Params:  domain.RuleParams{Min: 2},
		Message: domain.LocalizedText{"en": "Too short", "he": "קצר מדי"},
	}}
	e, _ := newEngine(t, testutils.Form(name, testutils.TextQuestion("q2", 2)))
	s := start(t, e, domain.VariantNewUser, domain.Facts{})

	step, err := e.Submit(context.Background(), s, "name", domain.Text(""))
	require.NoError(t, err)
	require.False(t, step.Outcome.Accepted())
	assert.Equal(t, "Too short", step.Outcome.Rejection.Text(s.Language, "en"))
	assert.Same(t, s, step.Session)
	assert.Empty(t, step.Session.Answers)
	assert.Equal(t, domain.StatusStarted, step.Session.Status)
	assert.Equal(t, "name", step.Next.ID)

	q, _ := e.NextQuestion(step.Session)
	assert.Equal(t, "name", q.ID)
}

// Scenario D: age boundaries are inclusive at the engine clock.
func TestFlow_AgeAtClock(t *testing.T) {
	birth := domain.Question{
		ID: "birth_date", Type: domain.TypeDate, Order: 1, Required: true, Title: testutils.L("?"),
		Rules: []domain.Rule{{Kind: domain.RuleAgeRange, Params: domain.RuleParams{MinAge: 18, MaxAge: 100}, Message: testutils.L("age")}},
	}
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	e, _ := newEngine(t, testutils.Form(birth), runtime.WithClock(testutils.Clock(now)))

	s := start(t, e, domain.VariantNewUser, domain.Facts{})
	step, err := e.Submit(context.Background(), s, "birth_date", domain.Text("01/06/2006"))
	require.NoError(t, err)
	assert.True(t, step.Outcome.Accepted())
	assert.Equal(t, "2006-06-01", step.Session.Answers["birth_date"].Text)

	step, err = e.Submit(context.Background(), s, "birth_date", domain.Text("02/06/2006"))
	require.NoError(t, err)
	assert.False(t, step.Outcome.Accepted())
}

// Scenario E: an answer for the wrong question is refused without changes.
func TestFlow_OutOfSync(t *testing.T) {
	e, _ := newEngine(t, threeQuestions())
	s := start(t, e, domain.VariantNewUser, domain.Facts{})

	step, err := e.Submit(context.Background(), s, "q3", domain.Text("early"))
	var oos *domain.OutOfSyncError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "q1", oos.Expected)
	assert.Equal(t, "q3", oos.Got)
	assert.Same(t, s, step.Session)
	assert.Empty(t, s.Answers)

	_, err = e.Submit(context.Background(), s, "nope", domain.Text("x"))
	assert.ErrorIs(t, err, domain.ErrSessionOutOfSync)
}

func TestFlow_SkipConditions(t *testing.T) {
	e, _ := newEngine(t, testutils.Registration())

	s := start(t, e, domain.VariantNewUser, domain.Facts{EventType: "cuddle"})
	step := submit(t, e, s, "language", "en")
	assert.Equal(t, "en", step.Session.Language, "language question switches the session language")
	step = submit(t, e, step.Session, "full_name", "Dana Levi")
	step = submit(t, e, step.Session, "partner_or_single", "single")

	// partner link skipped (single), STI test skipped (cuddle event)
	assert.Equal(t, "facebook_profile", step.Next.ID)

	step = submit(t, e, step.Session, "facebook_profile", "")
	step = submit(t, e, step.Session, "birth_date", "17/05/1990")
	assert.Equal(t, "agree_to_rules", step.Next.ID, "returning-user question is not asked")
	step = submit(t, e, step.Session, "agree_to_rules", "yes")
	assert.True(t, step.Done())

	assert.NotContains(t, step.Session.Answers, "partner_telegram_link")
	assert.NotContains(t, step.Session.Answers, "last_sti_test")
	assert.True(t, step.Session.Answers["facebook_profile"].IsEmpty())
}

func TestFlow_ReturningUserVariant(t *testing.T) {
	e, _ := newEngine(t, testutils.Registration())
	s := start(t, e, domain.VariantReturningUser, domain.Facts{UserExists: true, EventType: "play"})

	var asked []string
	answers := map[string]string{
		"language":              "he",
		"partner_or_single":     "partner",
		"partner_telegram_link": "@partner_1",
		"last_sti_test":         "01/03/2026",
		"returning_update":      "nothing new",
		"agree_to_rules":        "כן",
	}
	for {
		q, ok := e.NextQuestion(s)
		if !ok {
			break
		}
		asked = append(asked, q.ID)
		s = submit(t, e, s, q.ID, answers[q.ID]).Session
	}

	assert.Equal(t, []string{"language", "partner_or_single", "partner_telegram_link", "last_sti_test", "returning_update", "agree_to_rules"}, asked)
	assert.Equal(t, domain.StatusCompleted, s.Status)
}

// nextQuestion never returns an answered id and is stable across calls.
func TestNextQuestion_DeterministicAndFresh(t *testing.T) {
	e, _ := newEngine(t, testutils.Registration())
	s := start(t, e, domain.VariantNewUser, domain.Facts{})
	s = submit(t, e, s, "language", "he").Session
	s = submit(t, e, s, "full_name", "Noa").Session

	first, ok := e.NextQuestion(s)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		q, _ := e.NextQuestion(s)
		assert.Equal(t, first.ID, q.ID)
	}
	assert.NotContains(t, s.Answers, first.ID)
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, threeQuestions())
	s := start(t, e, domain.VariantNewUser, domain.Facts{})

	_, err := e.Complete(ctx, s)
	var inc *domain.IncompleteError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, "q1", inc.Pending)

	// A form where nothing applies can be completed straight away.
	onlyReturning := testutils.TextQuestion("q1", 1)
	onlyReturning.Audience = domain.AudienceReturningUser
	e2, _ := newEngine(t, testutils.Form(onlyReturning))
	s2 := start(t, e2, domain.VariantNewUser, domain.Facts{})

	done, err := e2.Complete(ctx, s2)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)

	again, err := e2.Complete(ctx, done)
	require.NoError(t, err)
	assert.Same(t, done, again, "complete is idempotent")

	_, err = e2.Cancel(ctx, done, "late")
	assert.ErrorIs(t, err, domain.ErrSessionTerminated)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, threeQuestions())
	s := start(t, e, domain.VariantNewUser, domain.Facts{})
	s = submit(t, e, s, "q1", "one").Session

	cancelled, err := e.Cancel(ctx, s, "user typed /cancel")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, "user typed /cancel", cancelled.CancelReason)
	assert.Equal(t, domain.StatusInProgress, s.Status)

	_, err = e.Submit(ctx, cancelled, "q2", domain.Text("two"))
	var term *domain.TerminatedError
	require.ErrorAs(t, err, &term)
	assert.Equal(t, domain.StatusCancelled, term.Status)

	_, err = e.Complete(ctx, cancelled)
	assert.ErrorIs(t, err, domain.ErrSessionTerminated)
	_, err = e.Cancel(ctx, cancelled, "again")
	assert.ErrorIs(t, err, domain.ErrSessionTerminated)
}

func TestReload_DanglingAndRemovedOptions(t *testing.T) {
	pick := domain.Question{
		ID: "pick", Type: domain.TypeSingleSelect, Order: 1, Required: true, Title: testutils.L("?"),
		Options: []domain.Option{{Value: "a", Label: testutils.L("A")}, {Value: "b", Label: testutils.L("B")}},
	}
	gone := testutils.TextQuestion("gone", 2)
	follow := testutils.Skip(testutils.TextQuestion("follow", 3), domain.FieldEquals{Field: "pick", Value: "a"})
	e, holder := newEngine(t, testutils.Form(pick, gone, follow))

	s := start(t, e, domain.VariantNewUser, domain.Facts{})
	s = submit(t, e, s, "pick", "a").Session
	step := submit(t, e, s, "gone", "bye")
	assert.True(t, step.Done(), "follow is skipped while pick=a")

	// Option "a" and question "gone" disappear; the stored answers stay.
	pick.Options = pick.Options[1:]
	holder.Store(testutils.MustSchema(t, testutils.Form(pick, follow)))

	reopened := step.Session.Clone()
	reopened.Status = domain.StatusInProgress
	q, ok := e.NextQuestion(reopened)
	require.True(t, ok, "removed option makes the skip condition indeterminate")
	assert.Equal(t, "follow", q.ID)

	plan := e.Plan(reopened)
	require.Len(t, plan, 2)
	assert.Equal(t, runtime.Answered, plan[0].Disposition)
	assert.Equal(t, runtime.Pending, plan[1].Disposition)

	for _, r := range e.Records(reopened) {
		assert.NotContains(t, r.Answers, "gone")
	}
}

func TestProgressAndPlan(t *testing.T) {
	e, _ := newEngine(t, testutils.Registration())
	s := start(t, e, domain.VariantNewUser, domain.Facts{EventType: "cuddle"})

	p := e.Progress(s)
	assert.Equal(t, 0, p.Answered)
	assert.Equal(t, 7, p.Remaining, "STI test skipped, returning-user question inapplicable")
	assert.Equal(t, 0, p.Percent)

	s = submit(t, e, s, "language", "en").Session
	s = submit(t, e, s, "full_name", "Dana").Session
	s = submit(t, e, s, "partner_or_single", "single").Session

	p = e.Progress(s)
	assert.Equal(t, 3, p.Answered)
	assert.Equal(t, 3, p.Remaining)
	assert.Equal(t, 50, p.Percent)

	byID := map[string]runtime.Disposition{}
	for _, entry := range e.Plan(s) {
		byID[entry.Question.ID] = entry.Disposition
	}
	assert.Equal(t, runtime.Skipped, byID["partner_telegram_link"])
	assert.Equal(t, runtime.Skipped, byID["last_sti_test"])
	assert.Equal(t, runtime.Inapplicable, byID["returning_update"])
	assert.Equal(t, runtime.Pending, byID["birth_date"])
}

func TestRecords(t *testing.T) {
	e, _ := newEngine(t, testutils.Registration())
	s := start(t, e, domain.VariantNewUser, domain.Facts{EventType: "cuddle"})
	for _, a := range [][2]string{
		{"language", "en"}, {"full_name", "Dana"}, {"partner_or_single", "single"},
		{"facebook_profile", "instagram.com/dana"}, {"birth_date", "1990-01-01"}, {"agree_to_rules", "yes"},
	} {
		s = submit(t, e, s, a[0], a[1]).Session
	}

	records := e.Records(s)
	require.Len(t, records, 2)
	assert.Equal(t, "users", records[0].Destination)
	assert.Equal(t, []string{"language", "full_name", "facebook_profile", "birth_date"}, records[0].Order)
	assert.Equal(t, "registrations", records[1].Destination)
	assert.Equal(t, []string{"partner_or_single", "agree_to_rules"}, records[1].Order)
}

func TestHooks(t *testing.T) {
	var events []domain.EventType
	hooks := domain.LifecycleHooks{
		OnSessionStart:    func(_ context.Context, e *domain.SessionEvent) { events = append(events, e.Type) },
		OnAnswerAccepted:  func(_ context.Context, e *domain.AnswerEvent) { events = append(events, e.Type) },
		OnAnswerRejected:  func(_ context.Context, e *domain.AnswerEvent) { events = append(events, e.Type) },
		OnSessionComplete: func(_ context.Context, e *domain.SessionEvent) { events = append(events, e.Type) },
	}
	e, _ := newEngine(t, testutils.Form(testutils.TextQuestion("q1", 1)), runtime.WithLifecycleHooks(hooks))

	s := start(t, e, domain.VariantNewUser, domain.Facts{})
	_, err := e.Submit(context.Background(), s, "q1", nil)
	require.NoError(t, err)
	submit(t, e, s, "q1", "ok")

	assert.Equal(t, []domain.EventType{
		domain.EventSessionStart,
		domain.EventAnswerRejected,
		domain.EventAnswerAccepted,
		domain.EventSessionComplete,
	}, events)
}

func TestSubmit_ErrorsAreTyped(t *testing.T) {
	e, _ := newEngine(t, threeQuestions())
	s := start(t, e, domain.VariantNewUser, domain.Facts{})
	s.Status = domain.StatusCompleted

	_, err := e.Submit(context.Background(), s, "q1", domain.Text("x"))
	assert.True(t, errors.Is(err, domain.ErrSessionTerminated))
	assert.False(t, errors.Is(err, domain.ErrSessionOutOfSync))
}
