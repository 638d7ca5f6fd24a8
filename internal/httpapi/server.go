package httpapi

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/config"
	"github.com/ent0n29/aac/internal/contextual"
	"github.com/ent0n29/aac/internal/observability"
	"github.com/ent0n29/aac/internal/pipeline"
	"github.com/ent0n29/aac/internal/session"
)

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	pipeline *pipeline.Pipeline
	metrics  *observability.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, pipe *pipeline.Pipeline, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		pipeline: pipe,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only connect from the same origin unless configured otherwise.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Delete("/v1/perf/latency", s.handleResetPerfLatency)

	r.Post("/v1/process", s.handleProcess)
	r.Post("/v1/session", s.handleCreateSession)
	r.Post("/v1/session/{id}/end", s.handleEndSession)
	r.Put("/v1/session/{id}/context", s.handleSetContext)
	r.Get("/v1/context/history", s.handleContextHistory)
	r.Get("/v1/memory/contexts/{context}", s.handleContextStats)
	r.Get("/v1/memory/similar", s.handleSimilar)
	r.Get("/v1/suggest/ws", s.handleSuggestWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"classifier_mode": s.cfg.ClassifierMode,
		"generator_mode":  s.cfg.GeneratorMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "pipeline not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"memory_size":     s.pipeline.Memory().Len(),
		"memory_capacity": s.pipeline.Memory().Capacity(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	sess := s.sessions.Create(req.UserID, strings.TrimSpace(req.Location))
	s.metrics.SessionEvent("created", s.sessions.ActiveCount())

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Status:          sess.Status,
		Location:        sess.Location,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.SessionEvent("ended", s.sessions.ActiveCount())
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSetContext(w http.ResponseWriter, r *http.Request) {
	var req session.ContextRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	var label contextual.Label
	if raw := strings.TrimSpace(req.Context); raw != "" {
		parsed, err := contextual.ParseLabel(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_context", err.Error())
			return
		}
		label = parsed
	}
	sess, err := s.sessions.SetContextOverride(chi.URLParam(r, "id"), label)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	s.metrics.SessionEvent("context_override", s.sessions.ActiveCount())
	respondJSON(w, http.StatusOK, sess)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return errEmptyBody
	}
	return sonic.Unmarshal(raw, out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, session.ErrEnded):
		respondError(w, http.StatusConflict, "session_ended", err.Error())
	case errors.Is(err, contextual.ErrUnknownLabel):
		respondError(w, http.StatusBadRequest, "invalid_context", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
