package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the suggestion service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string
	AllowAnyOrigin           bool
	LogLevel                 string
	LogFormat                string

	MemoryCapacity            int
	MemorySimilarityThreshold float64
	MemoryRecentMaxAge        time.Duration

	ContextHistorySize       int
	ContextMajorityThreshold int
	ContextMLThreshold       float64
	ContextWorkLocations     []string
	ContextWorkStartHour     int
	ContextWorkEndHour       int
	ContextProfilesFile      string

	RankerMinLength          int
	RankerMaxLength          int
	RankerDuplicateThreshold float64
	RankerMinUniqueRatio     float64
	RankerMaxOutputs         int

	GenerationNumReturn   int
	GenerationTemperature float64
	GenerationTopP        float64

	// ClassifierMode is one of auto, openai, http or none.
	ClassifierMode    string
	ClassifierHTTPURL string
	// GeneratorMode is one of auto, openai or stub.
	GeneratorMode string
	// ExtractorMode is one of auto, openai or rules.
	ExtractorMode string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIMaxRetries int

	// SpeechMode is one of off, mock or openai.
	SpeechMode      string
	OpenAITTSModel  string
	OpenAITTSVoice  string
	// OpenAITTSFormat is mp3, wav or pcm; pcm clips are saved as WAV.
	OpenAITTSFormat string
	// SpeechOutputDir, when set, keeps every synthesized clip on disk.
	SpeechOutputDir string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "aac"),
		LogLevel:         strings.ToLower(envOrDefault("APP_LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(envOrDefault("APP_LOG_FORMAT", "json")),

		MemoryCapacity:            50,
		MemorySimilarityThreshold: 0.3,
		MemoryRecentMaxAge:        24 * time.Hour,

		ContextHistorySize:       5,
		ContextMajorityThreshold: 3,
		ContextMLThreshold:       0.7,
		ContextWorkLocations:     listFromEnv("CONTEXT_WORK_LOCATIONS", []string{"office", "conference room", "meeting room"}),
		ContextWorkStartHour:     9,
		ContextWorkEndHour:       18,
		ContextProfilesFile:      stringsTrimSpace("CONTEXT_PROFILES_FILE"),

		RankerMinLength:          10,
		RankerMaxLength:          100,
		RankerDuplicateThreshold: 0.85,
		RankerMinUniqueRatio:     0.5,
		RankerMaxOutputs:         3,

		GenerationNumReturn:   3,
		GenerationTemperature: 0.7,
		GenerationTopP:        0.9,

		ClassifierMode:    strings.ToLower(envOrDefault("CLASSIFIER_MODE", "auto")),
		ClassifierHTTPURL: stringsTrimSpace("CLASSIFIER_HTTP_URL"),
		GeneratorMode:     strings.ToLower(envOrDefault("GENERATOR_MODE", "auto")),
		ExtractorMode:     strings.ToLower(envOrDefault("EXTRACTOR_MODE", "auto")),

		OpenAIAPIKey:     stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:    stringsTrimSpace("OPENAI_BASE_URL"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxRetries: 2,

		SpeechMode:      strings.ToLower(envOrDefault("SPEECH_MODE", "off")),
		OpenAITTSModel:  envOrDefault("OPENAI_TTS_MODEL", "tts-1"),
		OpenAITTSVoice:  envOrDefault("OPENAI_TTS_VOICE", "alloy"),
		OpenAITTSFormat: strings.ToLower(envOrDefault("OPENAI_TTS_FORMAT", "mp3")),
		SpeechOutputDir: stringsTrimSpace("SPEECH_OUTPUT_DIR"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	cfg.MemoryCapacity, err = intFromEnv("MEMORY_CAPACITY", cfg.MemoryCapacity)
	if err != nil {
		return Config{}, err
	}
	cfg.MemorySimilarityThreshold, err = floatFromEnv("MEMORY_SIMILARITY_THRESHOLD", cfg.MemorySimilarityThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryRecentMaxAge, err = durationFromEnv("MEMORY_RECENT_MAX_AGE", cfg.MemoryRecentMaxAge)
	if err != nil {
		return Config{}, err
	}

	cfg.ContextHistorySize, err = intFromEnv("CONTEXT_HISTORY_SIZE", cfg.ContextHistorySize)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextMajorityThreshold, err = intFromEnv("CONTEXT_MAJORITY_THRESHOLD", cfg.ContextMajorityThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextMLThreshold, err = floatFromEnv("CONTEXT_ML_THRESHOLD", cfg.ContextMLThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextWorkStartHour, cfg.ContextWorkEndHour, err = hoursFromEnv("CONTEXT_WORK_HOURS", cfg.ContextWorkStartHour, cfg.ContextWorkEndHour)
	if err != nil {
		return Config{}, err
	}

	cfg.RankerMinLength, err = intFromEnv("RANKER_MIN_LENGTH", cfg.RankerMinLength)
	if err != nil {
		return Config{}, err
	}
	cfg.RankerMaxLength, err = intFromEnv("RANKER_MAX_LENGTH", cfg.RankerMaxLength)
	if err != nil {
		return Config{}, err
	}
	cfg.RankerDuplicateThreshold, err = floatFromEnv("RANKER_DUPLICATE_THRESHOLD", cfg.RankerDuplicateThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.RankerMinUniqueRatio, err = floatFromEnv("RANKER_MIN_UNIQUE_RATIO", cfg.RankerMinUniqueRatio)
	if err != nil {
		return Config{}, err
	}
	cfg.RankerMaxOutputs, err = intFromEnv("RANKER_MAX_OUTPUTS", cfg.RankerMaxOutputs)
	if err != nil {
		return Config{}, err
	}

	cfg.GenerationNumReturn, err = intFromEnv("GENERATION_NUM_RETURN", cfg.GenerationNumReturn)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerationTemperature, err = floatFromEnv("GENERATION_TEMPERATURE", cfg.GenerationTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerationTopP, err = floatFromEnv("GENERATION_TOP_P", cfg.GenerationTopP)
	if err != nil {
		return Config{}, err
	}

	cfg.OpenAIMaxRetries, err = intFromEnv("OPENAI_MAX_RETRIES", cfg.OpenAIMaxRetries)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.SessionInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("APP_LOG_FORMAT must be json or console")
	}
	if cfg.MemoryCapacity <= 0 {
		return fmt.Errorf("MEMORY_CAPACITY must be positive")
	}
	if cfg.MemorySimilarityThreshold < 0 || cfg.MemorySimilarityThreshold > 1 {
		return fmt.Errorf("MEMORY_SIMILARITY_THRESHOLD must be within [0,1]")
	}
	if cfg.ContextHistorySize <= 0 {
		return fmt.Errorf("CONTEXT_HISTORY_SIZE must be positive")
	}
	if cfg.ContextMajorityThreshold <= 0 || cfg.ContextMajorityThreshold > cfg.ContextHistorySize {
		return fmt.Errorf("CONTEXT_MAJORITY_THRESHOLD must be within 1-%d", cfg.ContextHistorySize)
	}
	if cfg.ContextMLThreshold < 0 || cfg.ContextMLThreshold > 1 {
		return fmt.Errorf("CONTEXT_ML_THRESHOLD must be within [0,1]")
	}
	if cfg.RankerMinLength < 0 || cfg.RankerMaxLength < cfg.RankerMinLength {
		return fmt.Errorf("RANKER_MIN_LENGTH and RANKER_MAX_LENGTH must satisfy 0 <= min <= max")
	}
	if cfg.RankerMaxOutputs <= 0 {
		return fmt.Errorf("RANKER_MAX_OUTPUTS must be positive")
	}
	if cfg.GenerationNumReturn <= 0 {
		return fmt.Errorf("GENERATION_NUM_RETURN must be positive")
	}
	if cfg.OpenAIMaxRetries < 0 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be >= 0")
	}
	if err := oneOf("CLASSIFIER_MODE", cfg.ClassifierMode, "auto", "openai", "http", "none"); err != nil {
		return err
	}
	if cfg.ClassifierMode == "http" && cfg.ClassifierHTTPURL == "" {
		return fmt.Errorf("CLASSIFIER_HTTP_URL is required when CLASSIFIER_MODE=http")
	}
	if err := oneOf("GENERATOR_MODE", cfg.GeneratorMode, "auto", "openai", "stub"); err != nil {
		return err
	}
	if err := oneOf("EXTRACTOR_MODE", cfg.ExtractorMode, "auto", "openai", "rules"); err != nil {
		return err
	}
	if err := oneOf("OPENAI_TTS_FORMAT", cfg.OpenAITTSFormat, "mp3", "wav", "pcm"); err != nil {
		return err
	}
	return oneOf("SPEECH_MODE", cfg.SpeechMode, "off", "mock", "openai")
}

func oneOf(key, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s", key, strings.Join(allowed, ", "))
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

// listFromEnv splits a comma-separated value, dropping empty items.
func listFromEnv(key string, fallback []string) []string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// hoursFromEnv parses a half-open "start-end" hour range such as "9-18".
func hoursFromEnv(key string, start, end int) (int, int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return start, end, nil
	}
	lo, hi, ok := strings.Cut(v, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%s parse error: expected start-end", key)
	}
	s, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	e, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	if s < 0 || e > 24 || s >= e {
		return 0, 0, fmt.Errorf("%s must satisfy 0 <= start < end <= 24", key)
	}
	return s, e, nil
}
