package audio

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// PortAudioBackend opens capture devices through PortAudio. PortAudio only
// offers blocking stream reads, so the client runs a small reader goroutine
// that feeds the packet queue and pulses the ready signal, giving the
// capture loop the same event-driven surface as the miniaudio backend.
type PortAudioBackend struct {
	log zerolog.Logger
}

func NewPortAudioBackend(log zerolog.Logger) *PortAudioBackend {
	return &PortAudioBackend{log: log.With().Str("backend", "portaudio").Logger()}
}

func (b *PortAudioBackend) Name() string { return "portaudio" }

func (b *PortAudioBackend) Activate(deviceName string, complete CompletionFunc) error {
	if complete == nil {
		return fmt.Errorf("audio: nil completion callback")
	}
	go func() {
		if err := portaudio.Initialize(); err != nil {
			complete(nil, 0, fmt.Errorf("failed to initialize PortAudio: %w", err))
			return
		}
		complete(&portAudioClient{log: b.log, deviceName: deviceName}, 0, nil)
	}()
	return nil
}

// Devices enumerates PortAudio input devices.
func (b *PortAudioBackend) Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate() //nolint:errcheck

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: failed to list devices: %w", err)
	}
	defaultDevice, _ := portaudio.DefaultInputDevice()

	result := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, Device{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}
	return result, nil
}

type portAudioClient struct {
	log        zerolog.Logger
	deviceName string

	buffer []int16
	stream *portaudio.Stream
	queue  *packetQueue

	readerStop chan struct{}
	readerDone chan struct{}
}

func (c *portAudioClient) Initialize(f Format, bufferDuration time.Duration) error {
	if c.stream != nil {
		return fmt.Errorf("audio: client already initialized")
	}

	device, err := c.findDevice()
	if err != nil {
		return err
	}

	periodFrames := f.SampleRate / 100
	c.buffer = make([]int16, periodFrames*f.Channels)

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: f.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: periodFrames,
	}, c.buffer)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	capacity := int(bufferDuration/time.Second) * f.SampleRate * f.BlockAlign
	if capacity < periodFrames*f.BlockAlign {
		capacity = periodFrames * f.BlockAlign
	}

	c.stream = stream
	c.queue = newPacketQueue(capacity, periodFrames, f.BlockAlign)
	return nil
}

func (c *portAudioClient) findDevice() (*portaudio.DeviceInfo, error) {
	if c.deviceName == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == c.deviceName {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", c.deviceName)
}

func (c *portAudioClient) BindReadySignal(ready chan<- struct{}) error {
	if c.queue == nil {
		return fmt.Errorf("audio: client not initialized")
	}
	c.queue.bind(ready)
	return nil
}

func (c *portAudioClient) Start() error {
	if c.stream == nil {
		return fmt.Errorf("audio: client not initialized")
	}
	if c.readerDone != nil {
		return fmt.Errorf("audio: client already started")
	}

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	c.readerStop = make(chan struct{})
	c.readerDone = make(chan struct{})
	go c.readLoop(c.readerStop, c.readerDone)
	return nil
}

// readLoop pumps blocking stream reads into the packet queue until stopped.
func (c *portAudioClient) readLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	scratch := make([]byte, len(c.buffer)*2)
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			select {
			case <-stop:
				// Abort during Stop unblocks Read with an error; not a
				// capture failure.
			default:
				c.queue.fail(fmt.Errorf("audio: stream read: %w", err))
			}
			return
		}

		for i, s := range c.buffer {
			binary.LittleEndian.PutUint16(scratch[i*2:], uint16(s))
		}
		c.queue.push(scratch)
	}
}

func (c *portAudioClient) Stop() error {
	if c.stream == nil || c.readerDone == nil {
		return nil
	}

	close(c.readerStop)
	// Abort rather than Stop so a blocked Read returns promptly.
	if err := c.stream.Abort(); err != nil {
		c.log.Warn().Err(err).Msg("stream abort failed")
	}
	<-c.readerDone
	c.readerStop = nil
	c.readerDone = nil
	return nil
}

func (c *portAudioClient) CaptureService() (CaptureService, error) {
	if c.queue == nil {
		return nil, fmt.Errorf("audio: client not initialized")
	}
	return &queueCaptureService{q: c.queue}, nil
}

func (c *portAudioClient) Release() {
	_ = c.Stop()
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
	portaudio.Terminate() //nolint:errcheck
}
