package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/aac/internal/contextual"
	"github.com/ent0n29/aac/internal/memory"
	"github.com/ent0n29/aac/internal/pipeline"
)

type processRequest struct {
	Text          string `json:"text"`
	Location      string `json:"location"`
	Hour          *int   `json:"hour"`
	SessionID     string `json:"session_id"`
	IncludeMemory bool   `json:"include_memory"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Hour != nil && (*req.Hour < 0 || *req.Hour > 23) {
		respondError(w, http.StatusBadRequest, "invalid_input", "hour must be within 0-23")
		return
	}
	res, err := s.process(r.Context(), strings.TrimSpace(req.SessionID), pipeline.Request{
		Text:          req.Text,
		Location:      strings.TrimSpace(req.Location),
		Hour:          req.Hour,
		IncludeMemory: req.IncludeMemory,
	})
	if err != nil {
		var inputErr *pipeline.InputError
		if errors.As(err, &inputErr) {
			respondError(w, http.StatusBadRequest, "invalid_input", inputErr.Message)
			return
		}
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// process applies the session's location and manual context to req before
// running the pipeline. sessionID may be empty.
func (s *Server) process(ctx context.Context, sessionID string, req pipeline.Request) (pipeline.Result, error) {
	if s.pipeline == nil {
		return pipeline.Result{}, errors.New("pipeline not configured")
	}
	if sessionID != "" {
		sess, err := s.sessions.Active(sessionID)
		if err != nil {
			return pipeline.Result{}, err
		}
		if req.Location == "" {
			req.Location = sess.Location
		}
		req.Override = sess.ContextOverride
	}
	res, err := s.pipeline.Process(ctx, req)
	if err != nil {
		return pipeline.Result{}, err
	}
	if sessionID != "" {
		_ = s.sessions.Touch(sessionID)
	}
	return res, nil
}

type historyResponse struct {
	History  []contextual.Label `json:"history"`
	Majority contextual.Label   `json:"majority"`
	Capacity int                `json:"capacity"`
}

func (s *Server) handleContextHistory(w http.ResponseWriter, _ *http.Request) {
	if s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "pipeline not configured")
		return
	}
	c := s.pipeline.Classifier()
	respondJSON(w, http.StatusOK, historyResponse{
		History:  c.History().Snapshot(),
		Majority: c.RecentContext(),
		Capacity: c.History().Capacity(),
	})
}

type contextStatsResponse struct {
	memory.Stats
	Recent []memory.Interaction `json:"recent"`
}

func (s *Server) handleContextStats(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "pipeline not configured")
		return
	}
	label, err := contextual.ParseLabel(chi.URLParam(r, "context"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_context", err.Error())
		return
	}
	limit, err := queryInt(r, "limit", memory.DefaultRecentLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	store := s.pipeline.Memory()
	respondJSON(w, http.StatusOK, contextStatsResponse{
		Stats:  store.ContextStats(label),
		Recent: store.RecentByContext(label, limit, s.cfg.MemoryRecentMaxAge),
	})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "pipeline not configured")
		return
	}
	q := r.URL.Query()
	text := strings.TrimSpace(q.Get("text"))
	if text == "" {
		respondError(w, http.StatusBadRequest, "invalid_input", "query parameter text is required")
		return
	}
	var label contextual.Label
	if raw := strings.TrimSpace(q.Get("context")); raw != "" {
		parsed, err := contextual.ParseLabel(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_context", err.Error())
			return
		}
		label = parsed
	}
	limit, err := queryInt(r, "limit", memory.DefaultSimilarLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"matches": s.pipeline.Memory().FindSimilar(text, label, limit),
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return v, nil
}
