package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/aac/internal/capability"
	"github.com/ent0n29/aac/internal/config"
	"github.com/ent0n29/aac/internal/contextual"
	"github.com/ent0n29/aac/internal/pipeline"
)

func testConfig() config.Config {
	return config.Config{
		BindAddr:                  ":0",
		ShutdownTimeout:           time.Second,
		SessionInactivityTimeout:  time.Minute,
		MetricsNamespace:          "test_app",
		MemoryCapacity:            50,
		MemorySimilarityThreshold: 0.3,
		MemoryRecentMaxAge:        time.Hour,
		ContextHistorySize:        5,
		ContextMajorityThreshold:  3,
		ContextMLThreshold:        0.7,
		ContextWorkLocations:      []string{"office"},
		ContextWorkStartHour:      9,
		ContextWorkEndHour:        18,
		RankerMinLength:           10,
		RankerMaxLength:           100,
		RankerDuplicateThreshold:  0.85,
		RankerMinUniqueRatio:      0.5,
		RankerMaxOutputs:          3,
		GenerationNumReturn:       3,
		GenerationTemperature:     0.7,
		GenerationTopP:            0.9,
		ClassifierMode:            "auto",
		GeneratorMode:             "auto",
		ExtractorMode:             "auto",
		SpeechMode:                "mock",
	}
}

func TestBuildOfflineResolvesLocalBackends(t *testing.T) {
	built, err := Build(testConfig(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer built.Close(context.Background())

	want := Modes{Classifier: "none", Generator: "stub", Extractor: "rules", Speech: "mock"}
	if built.Modes.Classifier != want.Classifier || built.Modes.Generator != want.Generator ||
		built.Modes.Extractor != want.Extractor || built.Modes.Speech != want.Speech {
		t.Fatalf("Modes = %+v, want %+v", built.Modes, want)
	}
	if built.Config.ClassifierMode != "none" {
		t.Fatalf("Config.ClassifierMode = %q, want resolved mode", built.Config.ClassifierMode)
	}

	res, err := built.Pipeline.Process(context.Background(), pipeline.Request{Text: "Send Anna the report", Location: "Office"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Context != contextual.LabelWork || len(res.Suggestions) == 0 {
		t.Fatalf("Process() = %+v, want work suggestions", res)
	}
	if len(res.Entities) != 1 || res.Entities[0] != (capability.Entity{Text: "Anna", Type: capability.EntityPerson}) {
		t.Fatalf("Entities = %+v, want Anna/PERSON", res.Entities)
	}

	ts := httptest.NewServer(built.API.Router())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}

func TestBuildExplicitOpenAIRequiresKey(t *testing.T) {
	for _, mutate := range []func(*config.Config){
		func(c *config.Config) { c.ClassifierMode = "openai" },
		func(c *config.Config) { c.GeneratorMode = "openai" },
		func(c *config.Config) { c.ExtractorMode = "openai" },
		func(c *config.Config) { c.SpeechMode = "openai" },
	} {
		cfg := testConfig()
		mutate(&cfg)
		_, err := Build(cfg, nil)
		if !errors.Is(err, capability.ErrUnavailable) {
			t.Fatalf("Build() error = %v, want ErrUnavailable", err)
		}
	}
}

func TestBuildWithKeyPrefersOpenAI(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAIAPIKey = "sk-test"
	cfg.OpenAIBaseURL = "http://127.0.0.1:1/v1"
	cfg.SpeechMode = "openai"
	cfg.OpenAITTSFormat = "pcm"
	cfg.SpeechOutputDir = filepath.Join(t.TempDir(), "clips")
	built, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if built.Modes.Classifier != "openai" || built.Modes.Generator != "openai" || built.Modes.Extractor != "openai" {
		t.Fatalf("Modes = %+v, want openai backends", built.Modes)
	}
	if built.Modes.Speech != "openai" || len(built.Modes.Detail) != 2 {
		t.Fatalf("Modes = %+v, want openai speech with fallback and clip notes", built.Modes)
	}
	if _, err := os.Stat(cfg.SpeechOutputDir); err != nil {
		t.Fatalf("clip directory not created: %v", err)
	}
}

func TestBuildHTTPClassifierAndProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(path, []byte("work:\n  max_length: 20\n"), 0o600); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	cfg := testConfig()
	cfg.ClassifierHTTPURL = "http://127.0.0.1:1/classify"
	cfg.ContextProfilesFile = path
	built, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if built.Modes.Classifier != "http" {
		t.Fatalf("Classifier mode = %q, want http", built.Modes.Classifier)
	}

	cfg.ContextProfilesFile = filepath.Join(dir, "missing.yaml")
	if _, err := Build(cfg, nil); err == nil || !strings.Contains(err.Error(), "context profiles") {
		t.Fatalf("Build() error = %v, want profiles error", err)
	}
}
