package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/ent0n29/aac/internal/contextual"
	"github.com/ent0n29/aac/internal/pipeline"
)

func TestParseClientMessageUtterance(t *testing.T) {
	raw := []byte(`{"type":"client_utterance","request_id":"r1","text":"meet at noon","location":"office","hour":11,"include_memory":true}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	u, ok := msg.(ClientUtterance)
	if !ok {
		t.Fatalf("message type = %T, want ClientUtterance", msg)
	}
	if u.Text != "meet at noon" || u.Location != "office" || u.Hour == nil || *u.Hour != 11 || !u.IncludeMemory {
		t.Fatalf("unexpected utterance: %+v", u)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageContext(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_context","context":"social"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	c, ok := msg.(ClientContext)
	if !ok || c.Context != "social" {
		t.Fatalf("message = %#v, want social ClientContext", msg)
	}
}

func TestParseClientMessageRejectsInvalidUtterance(t *testing.T) {
	for _, raw := range []string{
		`{"type":"client_utterance","text":"  "}`,
		`{"type":"client_utterance","text":"hi","hour":24}`,
		`not json`,
	} {
		if _, err := ParseClientMessage([]byte(raw)); err == nil {
			t.Fatalf("ParseClientMessage(%s) error = nil, want error", raw)
		}
	}
}

func TestEncodeSuggestionsFlattensResult(t *testing.T) {
	out, err := Encode(Suggestions{
		Type:      TypeSuggestions,
		SessionID: "s1",
		Result: pipeline.Result{
			Context:     contextual.LabelWork,
			Source:      contextual.SourceHistory,
			Confidence:  1,
			Suggestions: []string{"Let's schedule a meeting."},
		},
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for _, want := range []string{`"type":"suggestions"`, `"context":"work"`, `"source":"history"`, `"suggestions":["Let's schedule a meeting."]`} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("encoded message missing %s: %s", want, out)
		}
	}
}

func BenchmarkParseClientMessageUtterance(b *testing.B) {
	raw := []byte(`{"type":"client_utterance","request_id":"r7","text":"could you pass the salt","location":"home"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(ClientUtterance); !ok {
			b.Fatalf("message type = %T, want ClientUtterance", msg)
		}
	}
}
