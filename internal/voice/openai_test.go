package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAISpeakerSendsRequestAndForwardsAudio(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/pcm")
		_, _ = w.Write([]byte{1, 2, 3, 4})
	}))
	defer ts.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = ts.URL + "/v1"
	var sinkFormat string
	var sinkAudio []byte
	s := NewOpenAISpeaker(openai.NewClientWithConfig(cfg), OpenAISpeakerConfig{Voice: "nova", Format: "PCM"}, func(_ context.Context, format string, audio []byte) error {
		sinkFormat, sinkAudio = format, audio
		return nil
	})

	if err := s.Speak(context.Background(), "See you soon."); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if got["model"] != DefaultTTSModel || got["voice"] != "nova" || got["input"] != "See you soon." || got["response_format"] != "pcm" {
		t.Fatalf("request = %v", got)
	}
	if sinkFormat != "pcm" || len(sinkAudio) != 4 {
		t.Fatalf("sink got %q/%v", sinkFormat, sinkAudio)
	}
}

func TestOpenAISpeakerReportsAPIErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = ts.URL + "/v1"
	s := NewOpenAISpeaker(openai.NewClientWithConfig(cfg), OpenAISpeakerConfig{}, nil)
	if err := s.Speak(context.Background(), "Hello."); err == nil {
		t.Fatalf("Speak() error = nil, want API error")
	}
	if err := NewOpenAISpeaker(nil, OpenAISpeakerConfig{}, nil).Speak(context.Background(), "Hello."); err == nil {
		t.Fatalf("Speak() without client error = nil")
	}
}
