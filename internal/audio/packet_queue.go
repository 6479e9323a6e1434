package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/smallnest/ringbuffer"
)

// packetQueue adapts a push-style native callback to the pull-style packet
// interface the capture loop drains. The backend's data callback pushes raw
// PCM and pulses the buffer-ready signal; the loop pulls packets of at most
// one period. The ring is bounded, so a stalled consumer drops the newest
// audio instead of growing without limit.
type packetQueue struct {
	mu    sync.Mutex
	ring  *ringbuffer.RingBuffer
	ready chan<- struct{}

	// packetBytes is the upper bound of one packet, one capture period.
	packetBytes int
	blockAlign  int
	packet      []byte

	// failure is sticky; once set, every packet query returns it.
	failure error
	dropped int
}

func newPacketQueue(capacityBytes, periodFrames, blockAlign int) *packetQueue {
	return &packetQueue{
		ring:        ringbuffer.New(capacityBytes),
		packetBytes: periodFrames * blockAlign,
		blockAlign:  blockAlign,
		packet:      make([]byte, periodFrames*blockAlign),
	}
}

func (q *packetQueue) bind(ready chan<- struct{}) {
	q.mu.Lock()
	q.ready = ready
	q.mu.Unlock()
}

// push appends captured PCM and pulses the ready signal. Called from the
// backend's data callback.
func (q *packetQueue) push(pcm []byte) {
	q.mu.Lock()
	if n, err := q.ring.Write(pcm); err != nil {
		if errors.Is(err, ringbuffer.ErrIsFull) {
			q.dropped += len(pcm) - n
		} else {
			q.failure = fmt.Errorf("audio: buffer write: %w", err)
		}
	}
	ready := q.ready
	q.mu.Unlock()

	if ready != nil {
		signal(ready)
	}
}

// fail records a native failure and wakes the loop so it observes it.
func (q *packetQueue) fail(err error) {
	q.mu.Lock()
	if q.failure == nil {
		q.failure = err
	}
	ready := q.ready
	q.mu.Unlock()

	if ready != nil {
		signal(ready)
	}
}

// nextPacketSize reports the frames available in the next packet, capped at
// one capture period.
func (q *packetQueue) nextPacketSize() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.failure != nil {
		return 0, q.failure
	}
	avail := q.ring.Length()
	if avail > q.packetBytes {
		avail = q.packetBytes
	}
	return avail / q.blockAlign, nil
}

// nextPacket pops the next packet into the internal scratch buffer. The
// returned slice is valid until the next call.
func (q *packetQueue) nextPacket() ([]byte, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.failure != nil {
		return nil, 0, q.failure
	}
	avail := q.ring.Length()
	if avail > q.packetBytes {
		avail = q.packetBytes
	}
	// Never split a frame across packets.
	avail -= avail % q.blockAlign
	if avail == 0 {
		return nil, 0, nil
	}
	n, err := q.ring.Read(q.packet[:avail])
	if err != nil {
		return nil, 0, fmt.Errorf("audio: buffer read: %w", err)
	}
	return q.packet[:n], n / q.blockAlign, nil
}

// droppedBytes reports audio lost to a full ring since the last call.
func (q *packetQueue) droppedBytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.dropped
	q.dropped = 0
	return n
}

// queueCaptureService exposes a packetQueue through the CaptureService
// interface. Packets are consumed on read, so ReleasePacket is pure
// bookkeeping.
type queueCaptureService struct {
	q *packetQueue
}

func (s *queueCaptureService) NextPacketSize() (int, error) { return s.q.nextPacketSize() }

func (s *queueCaptureService) Packet() ([]byte, int, error) { return s.q.nextPacket() }

func (s *queueCaptureService) ReleasePacket(frames int) error {
	if frames < 0 {
		return fmt.Errorf("audio: release of %d frames", frames)
	}
	return nil
}

func (s *queueCaptureService) Release() {}
