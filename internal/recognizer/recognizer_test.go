package recognizer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/micstream/internal/audio"
)

// Mock implementations for testing
type mockTranscriber struct {
	mu      sync.Mutex
	fed     []byte
	chunks  int
	feedErr error
	closed  bool
}

func (m *mockTranscriber) Feed(pcm []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.feedErr != nil {
		return m.feedErr
	}
	m.fed = append(m.fed, pcm...)
	m.chunks++
	return nil
}

func (m *mockTranscriber) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockTranscriber) snapshot() (int, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chunks, append([]byte(nil), m.fed...)
}

// stubClient plays a fixed set of packets through the capture interfaces
// once started.
type stubClient struct {
	packets [][]byte
	ready   chan<- struct{}

	mu    sync.Mutex
	queue [][]byte
}

func (c *stubClient) Initialize(f audio.Format, d time.Duration) error { return nil }

func (c *stubClient) BindReadySignal(ready chan<- struct{}) error {
	c.ready = ready
	return nil
}

func (c *stubClient) Start() error {
	c.mu.Lock()
	c.queue = append([][]byte(nil), c.packets...)
	c.mu.Unlock()
	select {
	case c.ready <- struct{}{}:
	default:
	}
	return nil
}

func (c *stubClient) Stop() error { return nil }

func (c *stubClient) CaptureService() (audio.CaptureService, error) { return c, nil }

func (c *stubClient) Release() {}

func (c *stubClient) NextPacketSize() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return 0, nil
	}
	return len(c.queue[0]) / audio.BlockAlign, nil
}

func (c *stubClient) Packet() ([]byte, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.queue[0]
	return p, len(p) / audio.BlockAlign, nil
}

func (c *stubClient) ReleasePacket(frames int) error {
	c.mu.Lock()
	c.queue = c.queue[1:]
	c.mu.Unlock()
	return nil
}

type stubBackend struct {
	client *stubClient
	actErr error
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Activate(deviceName string, complete audio.CompletionFunc) error {
	go func() {
		if b.actErr != nil {
			complete(nil, 0, b.actErr)
			return
		}
		complete(b.client, 0, nil)
	}()
	return nil
}

func (b *stubBackend) Devices() ([]audio.Device, error) { return nil, nil }

func TestFromStreamChunksFrames(t *testing.T) {
	// 10 frames of PCM against a 4-frame chunk size.
	src := make([]byte, 10*audio.BlockAlign)
	for i := range src {
		src[i] = byte(i)
	}

	mock := &mockTranscriber{}
	rec, err := FromStream(bytes.NewReader(src), Config{FrameCount: 4, Logger: zerolog.Nop()}, mock)
	if err != nil {
		t.Fatal(err)
	}

	if err := rec.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	chunks, fed := mock.snapshot()
	if chunks != 3 {
		t.Errorf("expected 3 chunks, got %d", chunks)
	}
	if !bytes.Equal(fed, src) {
		t.Error("stream bytes not delivered intact")
	}
}

func TestFromStreamDropsHalfFrame(t *testing.T) {
	src := make([]byte, 5) // two frames and one dangling byte

	mock := &mockTranscriber{}
	rec, err := FromStream(bytes.NewReader(src), Config{FrameCount: 4, Logger: zerolog.Nop()}, mock)
	if err != nil {
		t.Fatal(err)
	}

	if err := rec.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	_, fed := mock.snapshot()
	if len(fed) != 4 {
		t.Errorf("expected 4 bytes delivered, got %d", len(fed))
	}
}

func TestFromStreamPropagatesFeedError(t *testing.T) {
	feedErr := errors.New("engine rejected audio")
	mock := &mockTranscriber{feedErr: feedErr}
	rec, err := FromStream(bytes.NewReader(make([]byte, 64)), Config{Logger: zerolog.Nop()}, mock)
	if err != nil {
		t.Fatal(err)
	}

	err = rec.Run(context.Background())
	if !errors.Is(err, feedErr) {
		t.Fatalf("expected feed error, got %v", err)
	}
}

func TestFromStreamNilArguments(t *testing.T) {
	if _, err := FromStream(nil, Config{}, &mockTranscriber{}); err == nil {
		t.Error("expected error for nil reader")
	}
	if _, err := FromStream(bytes.NewReader(nil), Config{}, nil); err == nil {
		t.Error("expected error for nil transcriber")
	}
}

func TestFromDefaultMicrophoneFeedsTranscriber(t *testing.T) {
	packet := make([]byte, 8*audio.BlockAlign)
	for i := range packet {
		packet[i] = byte(i)
	}
	backend := &stubBackend{client: &stubClient{packets: [][]byte{packet, packet}}}

	mock := &mockTranscriber{}
	rec, err := FromDefaultMicrophone(Config{Backend: backend, FrameCount: 8, Logger: zerolog.Nop()}, mock)
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- rec.Run(ctx) }()

	// Wait for both packets to arrive, then stop.
	deadline := time.After(2 * time.Second)
	for {
		if chunks, _ := mock.snapshot(); chunks >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for microphone audio")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-runErr; err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	_, fed := mock.snapshot()
	if !bytes.Equal(fed[:len(packet)], packet) {
		t.Error("microphone audio not delivered intact")
	}
}

func TestFromDefaultMicrophoneActivationFailure(t *testing.T) {
	actErr := errors.New("no microphone")
	_, err := FromDefaultMicrophone(Config{
		Backend: &stubBackend{actErr: actErr},
		Logger:  zerolog.Nop(),
	}, &mockTranscriber{})

	if !errors.Is(err, actErr) {
		t.Fatalf("expected activation failure, got %v", err)
	}
	var activationErr *audio.ActivationError
	if !errors.As(err, &activationErr) {
		t.Fatal("expected an ActivationError in the chain")
	}
}
