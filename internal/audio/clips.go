// Package audio persists synthesized speech clips.
package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PCMSampleRate is the rate of raw PCM returned by the speech API.
const PCMSampleRate = 24000

// ClipWriter stores each clip as its own file under a directory. Raw "pcm"
// clips are wrapped in a WAV container so they play directly.
type ClipWriter struct {
	dir        string
	sampleRate int
	now        func() time.Time
}

func NewClipWriter(dir string, sampleRate int) (*ClipWriter, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("clip directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create clip directory: %w", err)
	}
	if sampleRate <= 0 {
		sampleRate = PCMSampleRate
	}
	return &ClipWriter{dir: dir, sampleRate: sampleRate, now: time.Now}, nil
}

// Write stores data as a new clip and returns its path.
func (w *ClipWriter) Write(ctx context.Context, format string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "bin"
	}
	ext := format
	if format == "pcm" {
		ext = "wav"
	}
	name := fmt.Sprintf("%s-%s.%s", w.now().UTC().Format("20060102T150405.000"), uuid.NewString()[:8], ext)
	path := filepath.Join(w.dir, name)

	if format == "pcm" {
		if err := WriteWAVPCM16LEFile(path, data, w.sampleRate); err != nil {
			return "", fmt.Errorf("write wav clip: %w", err)
		}
		return path, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write clip: %w", err)
	}
	return path, nil
}

// Sink adapts Write to the speaker callback shape, discarding the path.
func (w *ClipWriter) Sink(ctx context.Context, format string, data []byte) error {
	_, err := w.Write(ctx, format, data)
	return err
}
