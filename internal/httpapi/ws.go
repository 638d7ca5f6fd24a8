package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/contextual"
	"github.com/ent0n29/aac/internal/pipeline"
	"github.com/ent0n29/aac/internal/protocol"
	"github.com/ent0n29/aac/internal/session"
)

func (s *Server) handleSuggestWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if s.pipeline == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "pipeline not configured")
		return
	}
	if _, err := s.sessions.Active(sessionID); err != nil {
		respondSessionError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.metrics.SessionEvent("ws_connected", s.sessions.ActiveCount())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 64)
	outbound := make(chan any, 64)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		defer close(outbound)
		s.runConnection(ctx, sessionID, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			payload, err := protocol.Encode(msg)
			if err != nil {
				s.logger.Error("encode ws message", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				cancel()
				// Drain so runConnection never blocks on a dead socket.
				for range outbound {
				}
				return
			}
			if t, ok := messageTypeOf(msg); ok {
				s.metrics.WSMessage("outbound", string(t))
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			parsed = protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			}
		} else if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessage("inbound", string(t))
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.metrics.SessionEvent("ws_disconnected", s.sessions.ActiveCount())
}

// runConnection handles one client message at a time so each utterance is
// processed start to finish before the next.
func (s *Server) runConnection(ctx context.Context, sessionID string, inbound <-chan any, outbound chan<- any) {
	send := func(msg any) bool {
		select {
		case <-ctx.Done():
			return false
		case outbound <- msg:
			return true
		}
	}
	if !send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: sessionID, Code: "session_ready"}) {
		return
	}
	for msg := range inbound {
		var reply any
		switch m := msg.(type) {
		case protocol.ErrorEvent:
			reply = m
		case protocol.ClientUtterance:
			reply = s.handleUtterance(ctx, sessionID, m)
		case protocol.ClientContext:
			reply = s.handleClientContext(sessionID, m)
		default:
			continue
		}
		if !send(reply) {
			return
		}
	}
}

func (s *Server) handleUtterance(ctx context.Context, sessionID string, m protocol.ClientUtterance) any {
	res, err := s.process(ctx, sessionID, pipeline.Request{
		Text:          m.Text,
		Location:      strings.TrimSpace(m.Location),
		Hour:          m.Hour,
		IncludeMemory: m.IncludeMemory,
	})
	if err != nil {
		code := "process_failed"
		var inputErr *pipeline.InputError
		switch {
		case errors.As(err, &inputErr):
			code = "invalid_input"
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrEnded):
			code = "session_unavailable"
		}
		return protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			RequestID: m.RequestID,
			Code:      code,
			Detail:    err.Error(),
		}
	}
	return protocol.Suggestions{
		Type:      protocol.TypeSuggestions,
		SessionID: sessionID,
		RequestID: m.RequestID,
		Result:    res,
	}
}

func (s *Server) handleClientContext(sessionID string, m protocol.ClientContext) any {
	var label contextual.Label
	if raw := strings.TrimSpace(m.Context); raw != "" {
		parsed, err := contextual.ParseLabel(raw)
		if err != nil {
			return protocol.ErrorEvent{Type: protocol.TypeErrorEvent, SessionID: sessionID, Code: "invalid_context", Detail: err.Error()}
		}
		label = parsed
	}
	if _, err := s.sessions.SetContextOverride(sessionID, label); err != nil {
		return protocol.ErrorEvent{Type: protocol.TypeErrorEvent, SessionID: sessionID, Code: "session_unavailable", Detail: err.Error()}
	}
	detail := string(label)
	if detail == "" {
		detail = "auto"
	}
	return protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: sessionID, Code: "context_updated", Detail: detail}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientUtterance:
		return m.Type, true
	case protocol.ClientContext:
		return m.Type, true
	case protocol.Suggestions:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
