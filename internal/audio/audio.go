// Package audio implements the microphone input subsystem: asynchronous
// device activation, an event-driven capture loop on a dedicated goroutine,
// and lifecycle management of one capture session. It delivers raw 16-bit
// mono PCM frames to a caller-supplied write callback; it performs no
// encoding, resampling, or recognition.
package audio

// Fixed capture format. The packet-size arithmetic throughout this package
// assumes one frame is exactly two bytes (mono, 16-bit).
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockAlign    = Channels * BitsPerSample / 8

	// DefaultFrameCount is the samples-per-chunk default: 10 ms at 16 kHz.
	DefaultFrameCount = 160
)

// Format describes the negotiated wave format of an activated device.
// It is immutable for the lifetime of a session.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	BlockAlign    int
}

// DefaultFormat returns the fixed capture format.
func DefaultFormat() Format {
	return Format{
		SampleRate:    SampleRate,
		Channels:      Channels,
		BitsPerSample: BitsPerSample,
		BlockAlign:    BlockAlign,
	}
}

// State is the lifecycle state of one direction of a session.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// WriteFunc receives one chunk of captured PCM. It is invoked synchronously
// from the capture goroutine, once per non-empty packet. A non-zero return
// value flags a delivery error: the session's input state flips to stopped
// but the capture goroutine keeps running until Stop.
type WriteFunc func(userCtx any, pcm []byte, frames int) int

// StateFunc is notified of input or output state transitions, from
// whichever goroutine detects the transition.
type StateFunc func(userCtx any, state State)

// ErrorFunc is notified of capture errors that cannot be returned to any
// caller, such as native failures inside the capture loop.
type ErrorFunc func(userCtx any, err error)

// Callbacks bundles the caller-registered callbacks and their opaque user
// contexts. Write is required; the rest are optional. The contexts are
// caller-owned and must outlive the session.
type Callbacks struct {
	Write        WriteFunc
	WriteContext any

	OnInput      StateFunc
	InputContext any

	OnOutput      StateFunc
	OutputContext any

	OnError      ErrorFunc
	ErrorContext any
}
