package audio

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"time"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// MalgoBackend opens capture devices through miniaudio. It is the default
// backend: miniaudio's event-driven shared-mode capture maps directly onto
// the buffer-ready / packet-drain model the capture loop expects.
type MalgoBackend struct {
	log zerolog.Logger
}

func NewMalgoBackend(log zerolog.Logger) *MalgoBackend {
	return &MalgoBackend{log: log.With().Str("backend", "malgo").Logger()}
}

func (b *MalgoBackend) Name() string { return "malgo" }

// Activate initializes a miniaudio context on a fresh goroutine and hands
// the raw client to the completion callback. Context initialization is the
// step that locates the OS audio system; its failure is the
// device-not-found case.
func (b *MalgoBackend) Activate(deviceName string, complete CompletionFunc) error {
	if complete == nil {
		return fmt.Errorf("audio: nil completion callback")
	}
	go func() {
		ctx, err := malgo.InitContext(malgoOSBackends(), malgo.ContextConfig{}, func(message string) {
			b.log.Trace().Msg(strings.TrimSpace(message))
		})
		if err != nil {
			complete(nil, 0, fmt.Errorf("init context: %w", err))
			return
		}
		complete(&malgoClient{log: b.log, ctx: ctx, deviceName: deviceName}, 0, nil)
	}()
	return nil
}

// Devices enumerates miniaudio capture devices.
func (b *MalgoBackend) Devices() ([]Device, error) {
	ctx, err := malgo.InitContext(malgoOSBackends(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: init context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("audio: enumerate devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			ID:      decodeDeviceID(info.ID.String()),
			Name:    info.Name(),
			Default: info.IsDefault == 1,
		})
	}
	return devices, nil
}

// malgoOSBackends pins the native audio system per platform instead of
// letting miniaudio probe.
func malgoOSBackends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

// decodeDeviceID converts miniaudio's hex-encoded device ID to a readable
// string, falling back to the raw form.
func decodeDeviceID(hexStr string) string {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return hexStr
	}
	return strings.TrimRight(string(b), "\x00")
}

// malgoClient is one miniaudio capture endpoint. The device itself is
// created lazily on the first Start because miniaudio binds the data
// callback at device-init time, after Initialize and BindReadySignal have
// prepared the packet queue it feeds.
type malgoClient struct {
	log        zerolog.Logger
	ctx        *malgo.AllocatedContext
	deviceName string

	config malgo.DeviceConfig
	queue  *packetQueue
	device *malgo.Device
}

func (c *malgoClient) Initialize(f Format, bufferDuration time.Duration) error {
	if c.queue != nil {
		return fmt.Errorf("audio: client already initialized")
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = uint32(f.Channels)
	config.SampleRate = uint32(f.SampleRate)
	config.Alsa.NoMMap = 1

	// One capture period is 10 ms; the ring holds the full requested
	// buffer duration.
	periodFrames := f.SampleRate / 100
	config.PeriodSizeInFrames = uint32(periodFrames)

	if c.deviceName != "" {
		id, err := c.resolveDevice()
		if err != nil {
			return err
		}
		config.Capture.DeviceID = id
	}

	capacity := int(bufferDuration/time.Second) * f.SampleRate * f.BlockAlign
	if capacity < periodFrames*f.BlockAlign {
		capacity = periodFrames * f.BlockAlign
	}

	c.config = config
	c.queue = newPacketQueue(capacity, periodFrames, f.BlockAlign)
	return nil
}

// resolveDevice matches the configured name against the enumerated capture
// devices, by decoded ID or name substring.
func (c *malgoClient) resolveDevice() (unsafe.Pointer, error) {
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("audio: enumerate devices: %w", err)
	}
	for i := range infos {
		decoded := decodeDeviceID(infos[i].ID.String())
		if decoded == c.deviceName || strings.Contains(infos[i].Name(), c.deviceName) {
			return infos[i].ID.Pointer(), nil
		}
	}
	return nil, fmt.Errorf("audio: no capture device matches %q", c.deviceName)
}

func (c *malgoClient) BindReadySignal(ready chan<- struct{}) error {
	if c.queue == nil {
		return fmt.Errorf("audio: client not initialized")
	}
	c.queue.bind(ready)
	return nil
}

func (c *malgoClient) Start() error {
	if c.queue == nil {
		return fmt.Errorf("audio: client not initialized")
	}

	if c.device == nil {
		onFrames := func(_, pcm []byte, frameCount uint32) {
			c.queue.push(pcm)
			if n := c.queue.droppedBytes(); n > 0 {
				c.log.Warn().Int("bytes", n).Msg("capture ring full, audio dropped")
			}
		}
		onStop := func() {
			c.log.Debug().Msg("miniaudio device stopped")
		}
		device, err := malgo.InitDevice(c.ctx.Context, c.config, malgo.DeviceCallbacks{
			Data: onFrames,
			Stop: onStop,
		})
		if err != nil {
			return fmt.Errorf("init device: %w", err)
		}
		c.device = device
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("start device: %w", err)
	}
	return nil
}

func (c *malgoClient) Stop() error {
	if c.device == nil {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("stop device: %w", err)
	}
	return nil
}

func (c *malgoClient) CaptureService() (CaptureService, error) {
	if c.queue == nil {
		return nil, fmt.Errorf("audio: client not initialized")
	}
	return &queueCaptureService{q: c.queue}, nil
}

func (c *malgoClient) Release() {
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
}
