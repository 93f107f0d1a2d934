// ABOUTME: Microphone capture device built on malgo
// ABOUTME: Exposes a blocking float32 sample source at the gateway input rate
package capture

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/crisisline-ai/crisisline-go/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Source produces float32 samples in [-1, 1]. Read blocks until samples
// are available and returns io.EOF once the source is closed and drained.
type Source interface {
	Read(p []float32) (int, error)
	Close() error
}

// Mic captures mono float32 audio from the default input device.
type Mic struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	logger *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []float32
	closed bool
}

// OpenMic initializes the default capture device at the gateway input
// rate and starts capturing immediately.
func OpenMic(logger *slog.Logger) (*Mic, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	ctx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}

	m := &Mic{
		ctx:    ctx,
		logger: logger,
		buf:    make([]float32, 0, audio.InputSampleRate),
	}
	m.cond = sync.NewCond(&m.mu)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(audio.InputSampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			samples := floatsFromBytes(input, int(frameCount))
			m.mu.Lock()
			if !m.closed {
				m.buf = append(m.buf, samples...)
			}
			m.mu.Unlock()
			m.cond.Signal()
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to init capture device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	logger.Info("microphone opened", "sample_rate", audio.InputSampleRate, "channels", 1)
	return m, nil
}

// Read blocks until at least one sample is buffered, then copies up to
// len(p) samples.
func (m *Mic) Read(p []float32) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.buf) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.buf) == 0 && m.closed {
		return 0, io.EOF
	}

	n := copy(p, m.buf)
	m.buf = m.buf[n:]
	return n, nil
}

// Close stops the capture device and wakes any blocked reader.
func (m *Mic) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()

	if m.device != nil {
		m.device.Stop()
		m.device.Uninit()
	}
	if m.ctx != nil {
		m.ctx.Uninit()
		m.ctx.Free()
	}
	return nil
}

// floatsFromBytes copies the malgo callback buffer out as float32
// samples. malgo delivers FormatF32 little-endian.
func floatsFromBytes(data []byte, frames int) []float32 {
	if frames == 0 || len(data) < frames*4 {
		return nil
	}
	out := make([]float32, frames)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
