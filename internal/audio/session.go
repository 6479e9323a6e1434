package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Config carries session construction parameters.
type Config struct {
	// Backend opens the native device. Required.
	Backend Backend

	// DeviceName is an optional capture-device selection hint; empty
	// selects the system default.
	DeviceName string

	// FrameCount is the samples-per-chunk delivered to the write callback;
	// zero selects DefaultFrameCount.
	FrameCount int

	Logger zerolog.Logger
}

// Session is one microphone capture session. It owns the activated capture
// context and, while capturing, the capture goroutine. Construction
// activates the device; a session whose activation failed is never created.
//
// Input state is an atomic shared between the controller and the capture
// goroutine: the controller writes it only before start and during stop,
// the loop only while running.
type Session struct {
	log     zerolog.Logger
	capture *captureContext

	inputState  atomic.Int32
	outputState atomic.Int32

	// mu guards the configuration fields below; the capture goroutine
	// snapshots them once at loop entry.
	mu         sync.Mutex
	callbacks  Callbacks
	frameCount int
	deviceName string

	// loopDone is non-nil exactly while a capture goroutine exists and has
	// not been joined; the loop closes it on return.
	loopDone chan struct{}

	// loopExited starts signaled so teardown never blocks on a loop that
	// was never spawned. Start drains it when spawning; the loop re-signals
	// it on return.
	loopExited chan struct{}

	closeOnce sync.Once
}

// Option names accepted by SetOption.
const (
	OptionFrameCount = "frameCount"
	OptionDeviceName = "deviceName"
)

// New activates the default (or named) capture device and returns a ready
// session. Activation failure is fatal to the session: the error wraps an
// *ActivationError and nothing is leaked.
func New(cfg Config) (*Session, error) {
	if cfg.Backend == nil {
		return nil, ErrInvalidArgument
	}

	s := &Session{
		log:        cfg.Logger.With().Str("component", "audio").Str("backend", cfg.Backend.Name()).Logger(),
		frameCount: cfg.FrameCount,
		deviceName: cfg.DeviceName,
		loopExited: newSignal(),
	}
	if s.frameCount <= 0 {
		s.frameCount = DefaultFrameCount
	}
	signal(s.loopExited)

	ready := newSignal()
	client, err := activate(cfg.Backend, cfg.DeviceName, ready)
	if err != nil {
		return nil, err
	}

	s.capture = &captureContext{
		client:      client,
		format:      DefaultFormat(),
		bufferReady: ready,
		shouldExit:  newSignal(),
	}

	s.log.Debug().Int("frame_count", s.frameCount).Msg("capture device activated")
	return s, nil
}

// SetCallbacks registers the delivery and state callbacks. The write
// callback is required; Start refuses to run without one.
func (s *Session) SetCallbacks(cb Callbacks) error {
	if s == nil || cb.Write == nil {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	s.callbacks = cb
	s.mu.Unlock()
	return nil
}

// InputState reports the current input lifecycle state.
func (s *Session) InputState() State {
	return State(s.inputState.Load())
}

// OutputState reports the current output lifecycle state. Output is
// tracked but this session produces no playback.
func (s *Session) OutputState() State {
	return State(s.outputState.Load())
}

// Format reports the negotiated wave format.
func (s *Session) Format() Format {
	return s.capture.format
}

// Start spawns the capture goroutine (if none is alive) and starts the
// native client. Frames begin flowing to the write callback once the device
// signals its first capture period.
//
// Caveat kept from the original contract: when the native client fails to
// start after the goroutine was spawned, Start returns the error without
// reaping the goroutine; it stays parked on the signal pair until Stop or
// Close.
func (s *Session) Start() error {
	if s == nil || s.capture == nil || s.capture.bufferReady == nil {
		return ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.callbacks.Write == nil || s.capture.client == nil || s.InputState() == StateRunning {
		return ErrInvalidState
	}

	if s.loopDone == nil {
		done := make(chan struct{})
		s.loopDone = done
		drain(s.loopExited)
		// The loop gets its own snapshot of the configuration: it never
		// touches s.mu, so Stop can hold the lock while joining it.
		go s.captureLoop(done, s.callbacks, s.frameCount)
	}

	if err := s.capture.client.Start(); err != nil {
		s.log.Error().Err(err).Msg("native client start failed")
		return fmt.Errorf("audio: start capture client: %w", err)
	}

	s.log.Debug().Msg("capture started")
	return nil
}

// Stop halts the native client, signals the capture loop to exit, and joins
// it before returning. No callback fires after Stop returns. Stop is safe
// when the loop already self-terminated after an internal error; it reports
// ErrInvalidState only when no capture goroutine exists at all.
func (s *Session) Stop() error {
	if s == nil {
		return ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopDone == nil {
		return ErrInvalidState
	}

	if err := s.capture.client.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("native client stop failed")
	}
	s.capture.signalExit()
	<-s.loopDone
	s.loopDone = nil

	s.log.Debug().Msg("capture stopped")
	return nil
}

// SetOption updates one string-keyed configuration option. A nil value (or
// zero for the frame count) resets the option to its default. Options take
// effect at the next Start.
func (s *Session) SetOption(name string, value any) error {
	if s == nil {
		return ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case OptionFrameCount:
		n, ok := value.(int)
		if value != nil && !ok {
			return ErrInvalidArgument
		}
		if n <= 0 {
			n = DefaultFrameCount
		}
		s.frameCount = n
		return nil

	case OptionDeviceName:
		if value == nil {
			s.deviceName = ""
			return nil
		}
		name, ok := value.(string)
		if !ok {
			return ErrInvalidArgument
		}
		s.deviceName = name
		return nil

	default:
		return ErrInvalidArgument
	}
}

// DeviceName reports the configured capture-device hint.
func (s *Session) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceName
}

// Close tears the session down: it forces any still-running capture
// goroutine to exit, waits for it, and releases the native client only
// after the wait completes. The loop-exited signal starts signaled, so
// Close returns immediately on a session that never started. Close is
// idempotent.
func (s *Session) Close() error {
	if s == nil {
		return ErrInvalidArgument
	}

	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.loopDone != nil {
			if err := s.capture.client.Stop(); err != nil {
				s.log.Warn().Err(err).Msg("native client stop failed")
			}
			s.loopDone = nil
		}
		s.mu.Unlock()

		s.capture.signalExit()
		<-s.loopExited

		s.capture.release()

		s.mu.Lock()
		s.deviceName = ""
		s.callbacks = Callbacks{}
		s.mu.Unlock()

		s.log.Debug().Msg("session closed")
	})
	return nil
}

// setInputState stores the state and notifies the input-state callback when
// one is registered.
func (s *Session) setInputState(cb Callbacks, state State) {
	s.inputState.Store(int32(state))
	if cb.OnInput != nil {
		cb.OnInput(cb.InputContext, state)
	}
}
