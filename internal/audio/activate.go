package audio

import (
	"fmt"
	"time"
)

// clientBufferDuration is the total capture-buffer duration requested from
// the native client.
const clientBufferDuration = time.Second

// activate obtains a ready, configured client for the backend's capture
// endpoint. The backend resolves the request asynchronously on its own
// goroutine; activate blocks on a one-shot handoff until the completion
// callback has run. Exactly one activation may be in flight per session.
//
// The completion path configures the client in place: it fixes the wave
// format, initializes shared-mode event-driven capture with a one-second
// buffer, and binds the buffer-ready signal. Any failure releases whatever
// was acquired and relays the failure through the handoff; nothing is
// retried.
func activate(backend Backend, deviceName string, ready chan<- struct{}) (Client, error) {
	f := DefaultFormat()
	if f.BlockAlign != 2 {
		// Packet arithmetic everywhere assumes two-byte frames.
		panic(fmt.Sprintf("audio: block alignment %d, want 2", f.BlockAlign))
	}

	type outcome struct {
		client Client
		err    error
	}
	done := make(chan outcome, 1)

	err := backend.Activate(deviceName, func(client Client, code int, actErr error) {
		c, cfgErr := configureClient(backend.Name(), client, code, actErr, f, ready)
		done <- outcome{c, cfgErr}
	})
	if err != nil {
		return nil, &ActivationError{Backend: backend.Name(), Stage: StageRequest, Err: err}
	}

	res := <-done
	if res.err != nil {
		return nil, res.err
	}
	return res.client, nil
}

// configureClient runs inside the backend's completion callback. On failure
// at any step it releases the partially acquired client.
func configureClient(backend string, client Client, code int, actErr error, f Format, ready chan<- struct{}) (Client, error) {
	if actErr != nil {
		return nil, &ActivationError{Backend: backend, Stage: StageActivate, Code: code, Err: actErr}
	}
	if client == nil {
		return nil, &ActivationError{Backend: backend, Stage: StageActivate, Err: fmt.Errorf("backend returned no client")}
	}
	if err := client.Initialize(f, clientBufferDuration); err != nil {
		client.Release()
		return nil, &ActivationError{Backend: backend, Stage: StageInitialize, Code: code, Err: err}
	}
	if err := client.BindReadySignal(ready); err != nil {
		client.Release()
		return nil, &ActivationError{Backend: backend, Stage: StageBindEvent, Code: code, Err: err}
	}
	return client, nil
}
