// Package protocol defines the suggestion WebSocket message schema.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/ent0n29/aac/internal/pipeline"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientUtterance MessageType = "client_utterance"
	TypeClientContext   MessageType = "client_context"
	TypeSuggestions     MessageType = "suggestions"
	TypeSystemEvent     MessageType = "system_event"
	TypeErrorEvent      MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientUtterance struct {
	Type          MessageType `json:"type"`
	RequestID     string      `json:"request_id,omitempty"`
	Text          string      `json:"text"`
	Location      string      `json:"location,omitempty"`
	Hour          *int        `json:"hour,omitempty"`
	IncludeMemory bool        `json:"include_memory,omitempty"`
}

// ClientContext pins the session context; an empty context clears it.
type ClientContext struct {
	Type    MessageType `json:"type"`
	Context string      `json:"context"`
}

type Suggestions struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	RequestID string      `json:"request_id,omitempty"`
	pipeline.Result
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	RequestID string      `json:"request_id,omitempty"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientUtterance:
		var msg ClientUtterance
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid client_utterance: text is required")
		}
		if msg.Hour != nil && (*msg.Hour < 0 || *msg.Hour > 23) {
			return nil, errors.New("invalid client_utterance: hour must be within 0-23")
		}
		return msg, nil
	case TypeClientContext:
		var msg ClientContext
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// Encode serializes a server message.
func Encode(msg any) ([]byte, error) {
	return sonic.Marshal(msg)
}
