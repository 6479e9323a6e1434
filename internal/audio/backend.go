package audio

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Device identifies an audio input device.
type Device struct {
	ID      string
	Name    string
	Default bool
}

// CompletionFunc reports the outcome of an asynchronous activation request.
// A backend invokes it exactly once, from a goroutine of its choosing, with
// either a raw (uninitialized) client or a failure plus its native status
// code.
type CompletionFunc func(client Client, code int, err error)

// Backend opens capture devices for one native audio system.
type Backend interface {
	// Name identifies the backend ("malgo", "portaudio").
	Name() string

	// Activate requests activation of the capture endpoint matching
	// deviceName (empty selects the system default). A non-nil error means
	// the request itself could not be issued and complete will never be
	// called; otherwise complete fires exactly once.
	Activate(deviceName string, complete CompletionFunc) error

	// Devices enumerates the available capture devices.
	Devices() ([]Device, error)
}

// BackendByName constructs the backend matching a configuration value.
// Empty selects the default (malgo).
func BackendByName(name string, log zerolog.Logger) (Backend, error) {
	switch name {
	case "", "malgo":
		return NewMalgoBackend(log), nil
	case "portaudio":
		return NewPortAudioBackend(log), nil
	default:
		return nil, fmt.Errorf("audio: unknown backend %q", name)
	}
}

// Client is an activated native audio endpoint. It is exclusively owned by
// one capture context and released exactly once.
type Client interface {
	// Initialize configures the client for shared-mode, event-driven
	// capture of the given format with the given total buffer duration.
	Initialize(f Format, bufferDuration time.Duration) error

	// BindReadySignal registers the buffer-ready signal the client pulses
	// once per capture period. Must be called after Initialize and before
	// Start.
	BindReadySignal(ready chan<- struct{}) error

	// Start begins streaming between the device and the client's buffer.
	Start() error

	// Stop halts streaming. Safe to call when not started.
	Stop() error

	// CaptureService returns the packet-drain interface for the client's
	// buffer. Called from the capture goroutine only.
	CaptureService() (CaptureService, error)

	// Release frees the native endpoint. The client is unusable afterwards.
	Release()
}

// CaptureService drains buffered audio packet by packet. All methods are
// called from the capture goroutine only.
type CaptureService interface {
	// NextPacketSize returns the length in frames of the next available
	// packet, zero when the current capture period is drained.
	NextPacketSize() (int, error)

	// Packet returns the next packet's data and frame count. Valid only
	// until ReleasePacket.
	Packet() ([]byte, int, error)

	// ReleasePacket returns the packet's frames to the capture buffer.
	ReleasePacket(frames int) error

	// Release frees the service. The owning client stays valid.
	Release()
}
