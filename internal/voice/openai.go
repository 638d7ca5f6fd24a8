package voice

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultTTSModel  = "tts-1"
	DefaultTTSVoice  = "alloy"
	DefaultTTSFormat = "mp3"
)

type OpenAISpeakerConfig struct {
	Model string
	Voice string
	// Format is the audio API response format, e.g. mp3, wav or pcm.
	Format string
}

// OpenAISpeaker synthesizes speech with the OpenAI audio API.
type OpenAISpeaker struct {
	client *openai.Client
	model  string
	voice  string
	format string
	sink   AudioSink
}

func NewOpenAISpeaker(client *openai.Client, cfg OpenAISpeakerConfig, sink AudioSink) *OpenAISpeaker {
	s := &OpenAISpeaker{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
		voice:  strings.TrimSpace(cfg.Voice),
		format: strings.ToLower(strings.TrimSpace(cfg.Format)),
		sink:   sink,
	}
	if s.model == "" {
		s.model = DefaultTTSModel
	}
	if s.voice == "" {
		s.voice = DefaultTTSVoice
	}
	if s.format == "" {
		s.format = DefaultTTSFormat
	}
	if s.sink == nil {
		s.sink = func(context.Context, string, []byte) error { return nil }
	}
	return s
}

func (s *OpenAISpeaker) Speak(ctx context.Context, text string) error {
	if s.client == nil {
		return fmt.Errorf("openai speaker: client not configured")
	}
	res, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormat(s.format),
	})
	if err != nil {
		return fmt.Errorf("create speech: %w", err)
	}
	defer res.Close()
	audio, err := io.ReadAll(res)
	if err != nil {
		return fmt.Errorf("read speech: %w", err)
	}
	return s.sink(ctx, s.format, audio)
}
