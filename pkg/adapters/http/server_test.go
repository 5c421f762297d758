package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/formflow"
	"github.com/aretw0/formflow/internal/testutils"
	httpadapter "github.com/aretw0/formflow/pkg/adapters/http"
	"github.com/aretw0/formflow/pkg/adapters/memory"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *httpadapter.Server) {
	t.Helper()
	engine, err := formflow.New(testutils.Registration(), formflow.WithClock(testutils.Clock(testutils.Now)))
	require.NoError(t, err)
	srv := httpadapter.New(session.NewManager(engine, memory.NewStore()))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, srv
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func answer(t *testing.T, ts *httptest.Server, user, qid string, value any) *http.Response {
	t.Helper()
	b, err := json.Marshal(map[string]any{"question_id": qid, "answer": value})
	require.NoError(t, err)
	return do(t, ts, http.MethodPost, "/sessions/"+user+"/answers", string(b))
}

func TestServer_Health(t *testing.T) {
	ts, _ := newServer(t)
	resp := do(t, ts, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["schema_version"])
}

func TestServer_Schema(t *testing.T) {
	ts, _ := newServer(t)
	resp := do(t, ts, http.MethodGet, "/schema", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decode[httpadapter.SchemaView](t, resp)
	assert.Equal(t, "registration", view.Info.Name)
	require.NotEmpty(t, view.Questions)
	assert.Equal(t, "language", view.Questions[0].ID)
}

func TestServer_StartLocalizesNextQuestion(t *testing.T) {
	ts, _ := newServer(t)

	resp := do(t, ts, http.MethodPost, "/sessions/u1", `{"variant":"new_user","language":"en"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[httpadapter.SessionView](t, resp)
	require.NotNil(t, view.Next)
	assert.Equal(t, "language", view.Next.ID)
	assert.Equal(t, "Which language?", view.Next.Title)
	assert.Equal(t, []httpadapter.OptionView{{Value: "he", Label: "Hebrew"}, {Value: "en", Label: "English"}}, view.Next.Options)

	// Default language when none is given.
	resp = do(t, ts, http.MethodPost, "/sessions/u2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[httpadapter.SessionView](t, resp)
	assert.Equal(t, domain.VariantNewUser, view.Session.Variant)
	assert.Equal(t, "באיזו שפה?", view.Next.Title)
}

func TestServer_StartResumes(t *testing.T) {
	ts, _ := newServer(t)
	first := decode[httpadapter.SessionView](t, do(t, ts, http.MethodPost, "/sessions/u1", `{"variant":"new_user"}`))
	require.Equal(t, http.StatusOK, answer(t, ts, "u1", "language", "en").StatusCode)

	again := decode[httpadapter.SessionView](t, do(t, ts, http.MethodPost, "/sessions/u1", `{"variant":"new_user"}`))
	assert.Equal(t, first.Session.ID, again.Session.ID)
	assert.Equal(t, "full_name", again.Next.ID)
}

func TestServer_RejectionIs422(t *testing.T) {
	ts, _ := newServer(t)
	do(t, ts, http.MethodPost, "/sessions/u1", `{"variant":"new_user","language":"en"}`)

	resp := answer(t, ts, "u1", "language", "klingon")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	view := decode[httpadapter.SessionView](t, resp)
	require.NotNil(t, view.Rejection)
	assert.Equal(t, domain.RejectInvalidOption, view.Rejection.Kind)
	assert.Equal(t, "language", view.Next.ID, "rejected question is asked again")

	require.Equal(t, http.StatusOK, answer(t, ts, "u1", "language", "en").StatusCode)
	resp = answer(t, ts, "u1", "full_name", "x")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	view = decode[httpadapter.SessionView](t, resp)
	assert.Equal(t, "Name is too short", view.Rejection.Message)
}

func TestServer_ErrorStatuses(t *testing.T) {
	ts, _ := newServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/sessions/ghost", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, answer(t, ts, "ghost", "language", "en").StatusCode)

	do(t, ts, http.MethodPost, "/sessions/u1", `{"variant":"new_user"}`)
	assert.Equal(t, http.StatusConflict, answer(t, ts, "u1", "birth_date", "1990-01-01").StatusCode, "out of sync")
	assert.Equal(t, http.StatusConflict, do(t, ts, http.MethodPost, "/sessions/u1/complete", "").StatusCode, "incomplete")
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/sessions/u1/answers", `{"question_id":`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/sessions/u1/answers", `{"answer":"en"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/sessions/u1/answers", `{"question_id":"language","answer":7}`).StatusCode)

	resp := do(t, ts, http.MethodPost, "/sessions/u1/cancel", `{"reason":"not today"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[httpadapter.SessionView](t, resp)
	assert.Equal(t, domain.StatusCancelled, view.Session.Status)
	assert.Equal(t, "not today", view.Session.CancelReason)
	assert.Nil(t, view.Next)

	assert.Equal(t, http.StatusGone, answer(t, ts, "u1", "language", "en").StatusCode)
}

func TestServer_ReturningUserFlow(t *testing.T) {
	ts, _ := newServer(t)
	resp := do(t, ts, http.MethodPost, "/sessions/u1", `{"facts":{"user_exists":true,"event_type":"cuddle"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[httpadapter.SessionView](t, resp)
	assert.Equal(t, domain.VariantReturningUser, view.Session.Variant)

	steps := []struct {
		qid   string
		value any
	}{
		{"language", "en"},
		{"partner_or_single", "single"},
		{"returning_update", "nothing new"},
		{"agree_to_rules", "yes"},
	}
	for _, s := range steps {
		resp := answer(t, ts, "u1", s.qid, s.value)
		require.Equal(t, http.StatusOK, resp.StatusCode, s.qid)
		view = decode[httpadapter.SessionView](t, resp)
	}
	assert.Equal(t, domain.StatusCompleted, view.Session.Status)
	assert.Equal(t, 100, view.Progress.Percent)
	assert.Nil(t, view.Next)

	records := decode[[]domain.Record](t, do(t, ts, http.MethodGet, "/sessions/u1/records", ""))
	require.Len(t, records, 2)
	byDest := map[string]domain.Record{}
	for _, r := range records {
		byDest[r.Destination] = r
	}
	assert.Equal(t, "single", byDest["registrations"].Answers["partner_or_single"].Text)
	assert.Equal(t, "nothing new", byDest["users"].Answers["returning_update"].Text)

	assert.Equal(t, http.StatusNoContent, do(t, ts, http.MethodDelete, "/sessions/u1", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/sessions/u1", "").StatusCode)
}

func TestServer_CORSPreflight(t *testing.T) {
	ts, _ := newServer(t)
	resp := do(t, ts, http.MethodOptions, "/sessions/u1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_EventsStream(t *testing.T) {
	ts, _ := newServer(t)
	do(t, ts, http.MethodPost, "/sessions/u1", `{"variant":"new_user"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?user=u1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	require.Equal(t, http.StatusOK, answer(t, ts, "u1", "language", "en").StatusCode)
	for lines.Scan() {
		line := lines.Text()
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var view httpadapter.SessionView
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &view))
		assert.Equal(t, "en", view.Session.Language)
		assert.Equal(t, "full_name", view.Next.ID)
		return
	}
	t.Fatal("no session update received")
}

func TestServer_EventsRequiresUser(t *testing.T) {
	ts, _ := newServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodGet, "/events", "").StatusCode)
}

func TestStreamManager(t *testing.T) {
	sm := httpadapter.NewStreamManager()
	a, cancelA := sm.Subscribe("u1")
	b, cancelB := sm.Subscribe("u2")
	defer cancelB()

	sm.Broadcast("u1", "hello")
	assert.Equal(t, "hello", <-a)
	select {
	case msg := <-b:
		t.Fatalf("u2 received %q", msg)
	default:
	}

	cancelA()
	_, open := <-a
	assert.False(t, open, "unsubscribe closes the channel")
	sm.Broadcast("u1", "dropped")
}
