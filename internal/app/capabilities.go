package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/audio"
	"github.com/ent0n29/aac/internal/capability"
	"github.com/ent0n29/aac/internal/config"
	"github.com/ent0n29/aac/internal/llm"
	"github.com/ent0n29/aac/internal/voice"
)

type capabilitySetup struct {
	classifier     capability.Classifier
	generator      capability.Generator
	extractor      capability.EntityExtractor
	speaker        voice.Speaker
	classifierMode string
	generatorMode  string
	extractorMode  string
	speechMode     string
	detail         []string
}

func resolveCapabilities(cfg config.Config, logger *zap.Logger) (capabilitySetup, error) {
	var setup capabilitySetup

	// The OpenAI client is shared by every capability that asks for it.
	var client *llm.Client
	hasKey := strings.TrimSpace(cfg.OpenAIAPIKey) != ""
	openAI := func(what string) (*llm.Client, error) {
		if client != nil {
			return client, nil
		}
		c, err := llm.NewClient(llm.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			MaxRetries: cfg.OpenAIMaxRetries,
		}, logger.Named("llm"))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		client = c
		return client, nil
	}

	switch mode := cfg.ClassifierMode; {
	case mode == "openai" || (mode == "auto" && hasKey):
		c, err := openAI("CLASSIFIER_MODE=openai requires OPENAI_API_KEY")
		if err != nil {
			return capabilitySetup{}, err
		}
		setup.classifier = llm.NewClassifier(c)
		setup.classifierMode = "openai"
	case mode == "http" || (mode == "auto" && cfg.ClassifierHTTPURL != ""):
		c, err := llm.NewHTTPClassifier(cfg.ClassifierHTTPURL, cfg.OpenAIMaxRetries, logger.Named("classifier"))
		if err != nil {
			return capabilitySetup{}, fmt.Errorf("http classifier init failed: %w", err)
		}
		setup.classifier = c
		setup.classifierMode = "http"
	case mode == "none" || mode == "auto":
		setup.classifierMode = "none"
	default:
		return capabilitySetup{}, fmt.Errorf("invalid CLASSIFIER_MODE: %q (expected auto|openai|http|none)", mode)
	}

	switch mode := cfg.GeneratorMode; {
	case mode == "openai":
		c, err := openAI("GENERATOR_MODE=openai requires OPENAI_API_KEY")
		if err != nil {
			return capabilitySetup{}, err
		}
		setup.generator = llm.NewGenerator(c)
		setup.generatorMode = "openai"
	case mode == "auto" && hasKey:
		c, err := openAI("generator")
		if err != nil {
			return capabilitySetup{}, err
		}
		setup.generator = capability.NewFallbackGenerator(llm.NewGenerator(c), capability.NewStubGenerator())
		setup.generatorMode = "openai"
		setup.detail = append(setup.detail, "generator falls back to canned replies")
	case mode == "stub" || mode == "auto":
		setup.generator = capability.NewStubGenerator()
		setup.generatorMode = "stub"
	default:
		return capabilitySetup{}, fmt.Errorf("invalid GENERATOR_MODE: %q (expected auto|openai|stub)", mode)
	}

	switch mode := cfg.ExtractorMode; {
	case mode == "openai" || (mode == "auto" && hasKey):
		c, err := openAI("EXTRACTOR_MODE=openai requires OPENAI_API_KEY")
		if err != nil {
			return capabilitySetup{}, err
		}
		setup.extractor = llm.NewExtractor(c)
		setup.extractorMode = "openai"
	case mode == "rules" || mode == "auto":
		setup.extractor = capability.NewRuleExtractor()
		setup.extractorMode = "rules"
	default:
		return capabilitySetup{}, fmt.Errorf("invalid EXTRACTOR_MODE: %q (expected auto|openai|rules)", mode)
	}

	switch cfg.SpeechMode {
	case "off", "":
		setup.speechMode = "off"
	case "mock":
		setup.speaker = voice.NewMockSpeaker()
		setup.speechMode = "mock"
	case "openai":
		c, err := openAI("SPEECH_MODE=openai requires OPENAI_API_KEY")
		if err != nil {
			return capabilitySetup{}, err
		}
		speechLog := logger.Named("speech")
		sink := func(_ context.Context, format string, data []byte) error {
			speechLog.Debug("speech synthesized", zap.String("format", format), zap.Int("bytes", len(data)))
			return nil
		}
		if cfg.SpeechOutputDir != "" {
			clips, err := audio.NewClipWriter(cfg.SpeechOutputDir, audio.PCMSampleRate)
			if err != nil {
				return capabilitySetup{}, fmt.Errorf("speech output init failed: %w", err)
			}
			sink = clips.Sink
			setup.detail = append(setup.detail, "speech clips saved to "+cfg.SpeechOutputDir)
		}
		setup.speaker = voice.NewOpenAISpeaker(c.API(), voice.OpenAISpeakerConfig{
			Model:  cfg.OpenAITTSModel,
			Voice:  cfg.OpenAITTSVoice,
			Format: cfg.OpenAITTSFormat,
		}, sink)
		setup.speechMode = "openai"
	default:
		return capabilitySetup{}, fmt.Errorf("invalid SPEECH_MODE: %q (expected off|mock|openai)", cfg.SpeechMode)
	}

	return setup, nil
}
