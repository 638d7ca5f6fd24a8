package app

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/config"
	"github.com/ent0n29/aac/internal/contextual"
	"github.com/ent0n29/aac/internal/httpapi"
	"github.com/ent0n29/aac/internal/memory"
	"github.com/ent0n29/aac/internal/observability"
	"github.com/ent0n29/aac/internal/pipeline"
	"github.com/ent0n29/aac/internal/ranking"
	"github.com/ent0n29/aac/internal/session"
	"github.com/ent0n29/aac/internal/voice"
)

// Modes reports which backend each capability resolved to.
type Modes struct {
	Classifier string
	Generator  string
	Extractor  string
	Speech     string
	Detail     []string
}

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Pipeline *pipeline.Pipeline
	Metrics  *observability.Metrics
	Modes    Modes

	speech *voice.Dispatcher
	logger *zap.Logger
}

func Build(cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	profiles := contextual.DefaultProfiles()
	if cfg.ContextProfilesFile != "" {
		loaded, err := contextual.LoadProfiles(cfg.ContextProfilesFile)
		if err != nil {
			return nil, fmt.Errorf("context profiles init failed: %w", err)
		}
		profiles = loaded
	}

	caps, err := resolveCapabilities(cfg, logger)
	if err != nil {
		return nil, err
	}
	// Ensure health reporting shows the resolved backends.
	cfg.ClassifierMode = caps.classifierMode
	cfg.GeneratorMode = caps.generatorMode
	cfg.ExtractorMode = caps.extractorMode
	cfg.SpeechMode = caps.speechMode

	classifier := contextual.NewClassifier(
		contextual.NewHistory(cfg.ContextHistorySize),
		caps.classifier,
		contextual.Config{
			MajorityThreshold: cfg.ContextMajorityThreshold,
			MLThreshold:       cfg.ContextMLThreshold,
			WorkLocations:     cfg.ContextWorkLocations,
			WorkStartHour:     cfg.ContextWorkStartHour,
			WorkEndHour:       cfg.ContextWorkEndHour,
		},
		contextual.WithLogger(logger.Named("context")),
		contextual.WithModelErrorHook(func(error) { metrics.CapabilityError("classifier") }),
	)

	ranker := ranking.New(ranking.Config{
		MinLength:          cfg.RankerMinLength,
		MaxLength:          cfg.RankerMaxLength,
		DuplicateThreshold: cfg.RankerDuplicateThreshold,
		MinUniqueRatio:     cfg.RankerMinUniqueRatio,
		MaxOutputs:         cfg.RankerMaxOutputs,
	},
		ranking.WithLogger(logger.Named("ranker")),
		ranking.WithFallbackHook(func(error) { metrics.RankerFallback() }),
	)

	var speech *voice.Dispatcher
	if caps.speaker != nil {
		speech = voice.NewDispatcher(caps.speaker, logger.Named("speech"), func(error) { metrics.CapabilityError("speech") })
	}

	pipe, err := pipeline.New(pipeline.Deps{
		Classifier: classifier,
		Profiles:   profiles,
		Memory:     memory.NewStore(cfg.MemoryCapacity, cfg.MemorySimilarityThreshold),
		Ranker:     ranker,
		Generator:  caps.generator,
		Extractor:  caps.extractor,
		Speech:     speech,
		Metrics:    metrics,
		Logger:     logger.Named("pipeline"),
	}, pipeline.Config{
		NumReturn:   cfg.GenerationNumReturn,
		Temperature: cfg.GenerationTemperature,
		TopP:        cfg.GenerationTopP,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline init failed: %w", err)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvent("expired", sessions.ActiveCount())
	})

	api := httpapi.New(cfg, sessions, pipe, metrics, logger.Named("http"))

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Pipeline: pipe,
		Metrics:  metrics,
		Modes: Modes{
			Classifier: caps.classifierMode,
			Generator:  caps.generatorMode,
			Extractor:  caps.extractorMode,
			Speech:     caps.speechMode,
			Detail:     caps.detail,
		},
		speech: speech,
		logger: logger,
	}, nil
}

// Close waits for in-flight speech and flushes the logger.
func (b *BuildResult) Close(ctx context.Context) error {
	var result *multierror.Error
	if err := b.speech.Wait(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("speech drain: %w", err))
	}
	if err := b.logger.Sync(); err != nil && !isSyncNoise(err) {
		result = multierror.Append(result, fmt.Errorf("logger sync: %w", err))
	}
	return result.ErrorOrNil()
}

// Syncing a logger attached to a terminal or pipe reports EINVAL or ENOTTY.
func isSyncNoise(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
