// Package http exposes form sessions over a JSON API built on chi.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds request bodies; answers are short.
const maxBodyBytes = 64 << 10

// Server serves the session API.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server for the session manager.
func New(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	return New(sessions, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/schema", s.GetSchema)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/sessions/{user}", func(r chi.Router) {
		r.Post("/", s.StartSession)
		r.Get("/", s.GetSession)
		r.Delete("/", s.DeleteSession)
		r.Post("/answers", s.SubmitAnswer)
		r.Post("/complete", s.CompleteSession)
		r.Post("/cancel", s.CancelSession)
		r.Get("/records", s.GetRecords)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":         "ok",
		"schema_version": s.Sessions.Engine().Schema().Version(),
	})
}

// GetSchema handles GET /schema.
func (s *Server) GetSchema(w http.ResponseWriter, r *http.Request) {
	sc := s.Sessions.Engine().Schema()
	s.writeJSON(w, http.StatusOK, SchemaView{
		Info:      sc.Info(),
		Version:   sc.Version(),
		Questions: sc.Questions(),
	})
}

// StartSession handles POST /sessions/{user}. An active session is resumed.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}
	if body.Variant == "" {
		body.Variant = domain.VariantNewUser
		if body.Facts.UserExists {
			body.Variant = domain.VariantReturningUser
		}
	}

	var opts []runtime.StartOption
	if body.Language != "" {
		opts = append(opts, runtime.WithLanguage(body.Language))
	}
	sess, err := s.Sessions.Begin(r.Context(), chi.URLParam(r, "user"), body.Variant, body.Facts, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess, nil)
}

// GetSession handles GET /sessions/{user}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, sess, nil)
}

// DeleteSession handles DELETE /sessions/{user}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "user")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitAnswer handles POST /sessions/{user}/answers.
// A rejected answer is a 422 carrying the localized message.
func (s *Server) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var body AnswerRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.QuestionID == "" {
		s.writeError(w, fmt.Errorf("%w: question_id is required", domain.ErrInvalidRequest))
		return
	}

	user := chi.URLParam(r, "user")
	step, err := s.Sessions.Answer(r.Context(), user, body.QuestionID, domain.RawAnswer(body.Answer))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if rej := step.Outcome.Rejection; rej != nil {
		s.logger.Debug("answer rejected", "user_id", user, "question_id", rej.QuestionID, "kind", rej.Kind)
		s.writeSession(w, http.StatusUnprocessableEntity, step.Session, rej)
		return
	}
	s.broadcast(step.Session)
	s.writeSession(w, http.StatusOK, step.Session, nil)
}

// CompleteSession handles POST /sessions/{user}/complete.
func (s *Server) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Complete(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(sess)
	s.writeSession(w, http.StatusOK, sess, nil)
}

// CancelSession handles POST /sessions/{user}/cancel.
func (s *Server) CancelSession(w http.ResponseWriter, r *http.Request) {
	var body CancelRequest
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}
	sess, err := s.Sessions.Cancel(r.Context(), chi.URLParam(r, "user"), body.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(sess)
	s.writeSession(w, http.StatusOK, sess, nil)
}

// GetRecords handles GET /sessions/{user}/records.
func (s *Server) GetRecords(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Sessions.Engine().Records(sess))
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.logger.Debug("invalid request body", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorView{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) view(sess *domain.Session, rej *domain.Rejection) SessionView {
	engine := s.Sessions.Engine()
	fallback := engine.Schema().Info().DefaultLanguage

	v := SessionView{Session: sess, Progress: engine.Progress(sess)}
	if sess.Active() {
		if q, ok := engine.NextQuestion(sess); ok {
			v.Next = questionView(q, sess.Language, fallback)
		}
	}
	if rej != nil {
		v.Rejection = &RejectionView{
			QuestionID: rej.QuestionID,
			Kind:       rej.Kind,
			Message:    rej.Text(sess.Language, fallback),
		}
	}
	return v
}

func (s *Server) writeSession(w http.ResponseWriter, status int, sess *domain.Session, rej *domain.Rejection) {
	s.writeJSON(w, status, s.view(sess, rej))
}

// statusOf maps engine errors onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionOutOfSync), errors.Is(err, domain.ErrFormIncomplete):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionTerminated):
		return http.StatusGone
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, ErrorView{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) broadcast(sess *domain.Session) {
	if sess == nil {
		return
	}
	b, err := json.Marshal(s.view(sess, nil))
	if err != nil {
		return
	}
	s.Streams.Broadcast(sess.UserID, string(b))
}
