package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	wav, err := EncodeWAVPCM16LE(pcm, 24000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("bad chunk ids: %q", wav[:44])
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 24000 {
		t.Fatalf("sample rate = %d, want 24000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", got, len(pcm))
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Fatalf("payload = %v, want %v", wav[44:], pcm)
	}
}

func TestClipWriterWrapsPCM(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clips")
	w, err := NewClipWriter(dir, 0)
	if err != nil {
		t.Fatalf("NewClipWriter() error = %v", err)
	}

	path, err := w.Write(context.Background(), "PCM", []byte{0, 0, 1, 1})
	if err != nil {
		t.Fatalf("Write(pcm) error = %v", err)
	}
	if !strings.HasSuffix(path, ".wav") {
		t.Fatalf("path = %q, want .wav", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if len(raw) != 48 || binary.LittleEndian.Uint32(raw[24:28]) != PCMSampleRate {
		t.Fatalf("wav clip len=%d rate=%d", len(raw), binary.LittleEndian.Uint32(raw[24:28]))
	}

	if err := w.Sink(context.Background(), "mp3", []byte("ID3")); err != nil {
		t.Fatalf("Sink(mp3) error = %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.mp3"))
	if len(matches) != 1 {
		t.Fatalf("mp3 clips = %v, want one", matches)
	}
}

func TestClipWriterRejectsEmptyDir(t *testing.T) {
	if _, err := NewClipWriter("  ", 0); err == nil {
		t.Fatalf("NewClipWriter(empty) error = nil")
	}
}

func TestClipWriterHonoursCanceledContext(t *testing.T) {
	w, err := NewClipWriter(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewClipWriter() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Write(ctx, "mp3", nil); err == nil {
		t.Fatalf("Write() error = nil after cancel")
	}
}
