package audio

// captureLoop is the dedicated capture goroutine: it waits on the
// should-exit / buffer-ready signal pair and drains available packets into
// a reusable chunk buffer, forwarding each non-empty packet to the write
// callback. It runs for the lifetime of one start/stop cycle.
//
// cb and frameCount are the controller's snapshot at spawn time; the loop
// shares no locked state with the controller. The exit signal is observed
// only at the outer wait, never mid-drain, so a bursty capture period can
// delay shutdown by one full drain pass.
func (s *Session) captureLoop(done chan struct{}, cb Callbacks, frameCount int) {
	defer close(done)
	defer signal(s.loopExited)

	// On every exit path the loop owns the transition back to stopped.
	defer s.setInputState(cb, StateStopped)

	if cb.OnInput != nil {
		cb.OnInput(cb.InputContext, StateStarting)
	}
	s.inputState.Store(int32(StateRunning))

	svc, err := s.capture.client.CaptureService()
	if err != nil {
		s.log.Error().Err(err).Msg("capture service unavailable")
		s.reportError(cb, err)
		return
	}
	defer svc.Release()

	if frameCount <= 0 {
		frameCount = DefaultFrameCount
	}
	chunk := make([]byte, frameCount*s.capture.format.BlockAlign)

	for {
		select {
		case <-s.capture.shouldExit:
			return
		case <-s.capture.bufferReady:
			// Exit wins when both signals are pending.
			select {
			case <-s.capture.shouldExit:
				return
			default:
			}
			if err := s.drainPackets(svc, cb, chunk); err != nil {
				s.log.Error().Err(err).Msg("capture loop aborting")
				s.reportError(cb, err)
				return
			}
		}
	}
}

// drainPackets empties the capture buffer for one capture period. A
// non-nil return is a native failure, fatal to the loop. A delivery error
// reported by the write callback is soft: the input state flips to stopped
// and draining continues.
func (s *Session) drainPackets(svc CaptureService, cb Callbacks, chunk []byte) error {
	for {
		packetFrames, err := svc.NextPacketSize()
		if err != nil {
			return err
		}
		if packetFrames == 0 {
			return nil
		}

		data, frames, err := svc.Packet()
		if err != nil {
			return err
		}

		soft := false
		for off := 0; off < len(data); {
			n := copy(chunk, data[off:])
			off += n
			if cb.Write(cb.WriteContext, chunk[:n], n/s.capture.format.BlockAlign) != 0 {
				soft = true
			}
		}
		if soft {
			s.setInputState(cb, StateStopped)
		}

		if err := svc.ReleasePacket(frames); err != nil {
			return err
		}
	}
}

func (s *Session) reportError(cb Callbacks, err error) {
	if cb.OnError != nil {
		cb.OnError(cb.ErrorContext, err)
	}
}
