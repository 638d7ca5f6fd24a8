package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/go-cmp/cmp"

	"github.com/ent0n29/aac/internal/capability"
)

type chatServer struct {
	srv      *httptest.Server
	calls    atomic.Int32
	failures int32
	reply    string
	lastBody atomic.Value
}

func newChatServer(t *testing.T, reply string, failures int32) *chatServer {
	t.Helper()
	cs := &chatServer{reply: reply, failures: failures}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		cs.lastBody.Store(string(body))
		n := cs.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if n <= cs.failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"busy","type":"server_error"}}`)
			return
		}
		content, _ := sonic.MarshalString(cs.reply)
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"test","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":`+content+`}}]}`)
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	c, err := NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    url + "/v1",
		MaxRetries: retries,
		RetryBase:  time.Millisecond,
		RetryCap:   2 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}, nil); !errors.Is(err, capability.ErrUnavailable) {
		t.Fatalf("NewClient() error = %v, want ErrUnavailable", err)
	}
}

func TestClassifierRetriesTransientStatus(t *testing.T) {
	cs := newChatServer(t, `{"label":"Work","confidence":0.93}`, 1)
	c := NewClassifier(newTestClient(t, cs.srv.URL, 2))

	got, err := c.Classify(context.Background(), "the quarterly report is due")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Label != "work" || got.Confidence != 0.93 {
		t.Fatalf("Classify() = %+v, want work/0.93", got)
	}
	if n := cs.calls.Load(); n != 2 {
		t.Fatalf("server calls = %d, want 2", n)
	}
}

func TestClassifierGivesUpAsUnavailable(t *testing.T) {
	cs := newChatServer(t, `{}`, 10)
	c := NewClassifier(newTestClient(t, cs.srv.URL, 1))

	_, err := c.Classify(context.Background(), "hi")
	if !errors.Is(err, capability.ErrUnavailable) {
		t.Fatalf("Classify() error = %v, want ErrUnavailable", err)
	}
	if n := cs.calls.Load(); n != 2 {
		t.Fatalf("server calls = %d, want 2", n)
	}
}

func TestGeneratorSendsSettings(t *testing.T) {
	cs := newChatServer(t, `{"suggestions":["Let's meet at noon", "  ", "Could you send the agenda"]}`, 0)
	g := NewGenerator(newTestClient(t, cs.srv.URL, 0))

	got, err := g.Generate(context.Background(), "Current: meeting tomorrow", capability.GenerationSettings{
		MaxLength:   15,
		NumReturn:   3,
		Temperature: 0.7,
		TopP:        0.9,
		Formality:   "high",
		Examples:    []string{"Could you please clarify"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := []string{"Let's meet at noon", "Could you send the agenda"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Generate() mismatch (-want +got):\n%s", diff)
	}
	body, _ := cs.lastBody.Load().(string)
	for _, fragment := range []string{`"top_p":0.9`, "Formality: high", "Could you please clarify", "Current: meeting tomorrow"} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("request body missing %q: %s", fragment, body)
		}
	}
}

func TestExtractorFiltersTypes(t *testing.T) {
	cs := newChatServer(t, `{"entities":[{"text":"John","type":"person"},{"text":"Friday","type":"DATE"},{"text":"Paris","type":"GPE"}]}`, 0)
	x := NewExtractor(newTestClient(t, cs.srv.URL, 0))

	got, err := x.Extract(context.Background(), "John flies to Paris on Friday")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := []capability.Entity{{Text: "John", Type: "PERSON"}, {Text: "Paris", Type: "GPE"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPClassifierReplyShapes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  capability.Prediction
	}{
		{name: "object", reply: `{"label":"social","confidence":0.8}`, want: capability.Prediction{Label: "social", Confidence: 0.8}},
		{name: "score", reply: `{"label":"WORK","score":1.4}`, want: capability.Prediction{Label: "work", Confidence: 1}},
		{name: "list", reply: `[{"label":"general","score":0.1},{"label":"social","score":0.75}]`, want: capability.Prediction{Label: "social", Confidence: 0.75}},
		{name: "nested", reply: `[[{"label":"work","score":0.9},{"label":"social","score":0.05}]]`, want: capability.Prediction{Label: "work", Confidence: 0.9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.reply)
			}))
			defer srv.Close()
			c, err := NewHTTPClassifier(srv.URL, 0, nil)
			if err != nil {
				t.Fatalf("NewHTTPClassifier() error = %v", err)
			}
			got, err := c.Classify(context.Background(), "hello")
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHTTPClassifierClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer srv.Close()
	c, _ := NewHTTPClassifier(srv.URL, 3, nil)

	_, err := c.Classify(context.Background(), "hello")
	if !errors.Is(err, capability.ErrUnavailable) {
		t.Fatalf("Classify() error = %v, want ErrUnavailable", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestParseServerPredictionInvalid(t *testing.T) {
	for _, body := range []string{`not json`, `[]`, `{"score":0.4}`} {
		if _, err := parseServerPrediction([]byte(body)); err == nil {
			t.Fatalf("parseServerPrediction(%q) error = nil, want error", body)
		}
	}
}
