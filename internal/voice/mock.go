package voice

import (
	"context"
	"strings"
	"sync"
)

// MockSpeaker records what it was asked to say.
type MockSpeaker struct {
	mu     sync.Mutex
	spoken []string
	Err    error
	// Notify receives every text after it is recorded, when non-nil.
	Notify chan string
}

func NewMockSpeaker() *MockSpeaker { return &MockSpeaker{} }

func (s *MockSpeaker) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	err := s.Err
	notify := s.Notify
	s.mu.Unlock()
	if notify != nil {
		select {
		case notify <- text:
		default:
		}
	}
	return err
}

func (s *MockSpeaker) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}
