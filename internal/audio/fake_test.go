package audio

import (
	"errors"
	"sync"
	"time"
)

// fakeService hands out queued synthetic packets.
type fakeService struct {
	mu       sync.Mutex
	packets  [][]byte
	sizeErr  error
	pktErr   error
	released bool
}

func (s *fakeService) NextPacketSize() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sizeErr != nil {
		return 0, s.sizeErr
	}
	if len(s.packets) == 0 {
		return 0, nil
	}
	return len(s.packets[0]) / BlockAlign, nil
}

func (s *fakeService) Packet() ([]byte, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pktErr != nil {
		return nil, 0, s.pktErr
	}
	if len(s.packets) == 0 {
		return nil, 0, nil
	}
	p := s.packets[0]
	return p, len(p) / BlockAlign, nil
}

func (s *fakeService) ReleasePacket(frames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.packets) > 0 {
		s.packets = s.packets[1:]
	}
	return nil
}

func (s *fakeService) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

// fakeClient is a native client whose capture periods are driven by the
// test through pushPacket.
type fakeClient struct {
	mu          sync.Mutex
	svc         *fakeService
	ready       chan<- struct{}
	initErr     error
	bindErr     error
	startErr    error
	svcErr      error
	started     int
	stopped     int
	initialized bool
	released    bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{svc: &fakeService{}}
}

func (c *fakeClient) Initialize(f Format, bufferDuration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initErr != nil {
		return c.initErr
	}
	c.initialized = true
	return nil
}

func (c *fakeClient) BindReadySignal(ready chan<- struct{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bindErr != nil {
		return c.bindErr
	}
	c.ready = ready
	return nil
}

func (c *fakeClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.started++
	return nil
}

func (c *fakeClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
	return nil
}

func (c *fakeClient) CaptureService() (CaptureService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svcErr != nil {
		return nil, c.svcErr
	}
	return c.svc, nil
}

func (c *fakeClient) Release() {
	c.mu.Lock()
	c.released = true
	c.mu.Unlock()
}

func (c *fakeClient) touched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started > 0 || c.stopped > 0
}

// pushPacket queues one synthetic packet and pulses the buffer-ready
// signal, like one capture period elapsing.
func (c *fakeClient) pushPacket(pcm []byte) {
	c.mu.Lock()
	c.svc.mu.Lock()
	c.svc.packets = append(c.svc.packets, pcm)
	c.svc.mu.Unlock()
	ready := c.ready
	c.mu.Unlock()
	if ready != nil {
		signal(ready)
	}
}

var errFakeActivation = errors.New("device activation rejected")

// fakeBackend resolves activation requests on a fresh goroutine, matching
// the arbitrary-thread completion contract.
type fakeBackend struct {
	client     *fakeClient
	requestErr error
	actErr     error
	actCode    int
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Activate(deviceName string, complete CompletionFunc) error {
	if b.requestErr != nil {
		return b.requestErr
	}
	go func() {
		if b.actErr != nil {
			complete(nil, b.actCode, b.actErr)
			return
		}
		complete(b.client, 0, nil)
	}()
	return nil
}

func (b *fakeBackend) Devices() ([]Device, error) {
	return []Device{{ID: "fake0", Name: "Fake Microphone", Default: true}}, nil
}
