// Package voice speaks accepted suggestions aloud.
package voice

import "context"

// Speaker turns text into audio and delivers it.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// AudioSink receives synthesized audio. format is a file extension such as "mp3".
type AudioSink func(ctx context.Context, format string, audio []byte) error
