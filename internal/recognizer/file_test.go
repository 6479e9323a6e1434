package recognizer

import (
	"bytes"
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/petems/micstream/internal/audio"
	"github.com/petems/micstream/internal/wavfile"
)

func writeTestWav(t *testing.T, samples []int16) string {
	t.Helper()

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	path := filepath.Join(t.TempDir(), "input.wav")
	w, err := wavfile.Create(path, audio.SampleRate, audio.Channels)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WritePCM(pcm); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromFileReplaysSamples(t *testing.T) {
	samples := make([]int16, 400)
	for i := range samples {
		samples[i] = int16(i - 200)
	}
	path := writeTestWav(t, samples)

	mock := &mockTranscriber{}
	rec, err := FromFile(path, Config{FrameCount: 160, Logger: zerolog.Nop()}, mock)
	if err != nil {
		t.Fatal(err)
	}

	if err := rec.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	chunks, fed := mock.snapshot()
	if chunks != 3 { // 160 + 160 + 80
		t.Errorf("expected 3 chunks, got %d", chunks)
	}
	if len(fed) != len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", len(samples)*2, len(fed))
	}

	want := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(want[i*2:], uint16(s))
	}
	if !bytes.Equal(fed, want) {
		t.Error("replayed samples differ from file contents")
	}
}

func TestFromFileMissingFile(t *testing.T) {
	rec, err := FromFile(filepath.Join(t.TempDir(), "nope.wav"), Config{Logger: zerolog.Nop()}, &mockTranscriber{})
	if err != nil {
		t.Fatal(err)
	}

	if err := rec.Run(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFromFileCanceledContext(t *testing.T) {
	path := writeTestWav(t, make([]int16, 160))

	rec, err := FromFile(path, Config{Logger: zerolog.Nop()}, &mockTranscriber{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rec.Run(ctx); err == nil {
		t.Error("expected context error")
	}
}
