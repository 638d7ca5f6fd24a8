package voice

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSpeakTimeout = 30 * time.Second

// Dispatcher speaks text on background goroutines. Callers never wait on it.
type Dispatcher struct {
	speaker Speaker
	logger  *zap.Logger
	timeout time.Duration
	onError func(error)
	wg      sync.WaitGroup
}

func NewDispatcher(speaker Speaker, logger *zap.Logger, onError func(error)) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{speaker: speaker, logger: logger, timeout: defaultSpeakTimeout, onError: onError}
}

// SpeakAsync sanitizes text and hands it to the speaker in the background.
// It reports whether anything was dispatched.
func (d *Dispatcher) SpeakAsync(text string) bool {
	if d == nil || d.speaker == nil {
		return false
	}
	text = sanitizeSpeechText(text)
	if text == "" {
		return false
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.speaker.Speak(ctx, text); err != nil {
			d.logger.Warn("speech synthesis failed", zap.String("capability", "speech"), zap.Error(err))
			if d.onError != nil {
				d.onError(err)
			}
		}
	}()
	return true
}

// Wait blocks until in-flight speech finishes or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
