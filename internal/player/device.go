// ABOUTME: Playback device abstraction and oto-backed implementation
// ABOUTME: Provides a monotonic sample clock and timed buffer starts
package player

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crisisline-ai/crisisline-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// Handle refers to one started buffer and can stop it early.
type Handle interface {
	Stop()
}

// Device is the playback surface the scheduler drives. Now returns the
// device clock in seconds; Start begins playing frame at the given clock
// time and invokes done exactly once when the buffer finishes on its own.
// A stopped buffer never invokes done.
type Device interface {
	Now() float64
	Start(frame audio.Frame, at float64, done func()) (Handle, error)
	Close() error
}

// OtoDevice plays pcm16 audio through the system output via oto.
type OtoDevice struct {
	ctx    *oto.Context
	format audio.Format
	logger *slog.Logger
	epoch  time.Time

	mu      sync.Mutex
	players map[*otoHandle]struct{}
	closed  bool
}

// otoHandle wraps one oto player plus the timers that emulate scheduled
// start and completion, which oto itself does not provide.
type otoHandle struct {
	device *OtoDevice

	mu         sync.Mutex
	player     *oto.Player
	startTimer *time.Timer
	doneTimer  *time.Timer
	stopped    bool
}

// OpenOto initializes the shared oto context for the given output
// format.
func OpenOto(format audio.Format, logger *slog.Logger) (*OtoDevice, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if format.Channels <= 0 {
		format.Channels = 1
	}
	if format.SampleRate <= 0 {
		format.SampleRate = audio.OutputSampleRate
	}

	opts := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to init playback context: %w", err)
	}
	<-ready

	logger.Info("playback device opened", "sample_rate", format.SampleRate, "channels", format.Channels)
	return &OtoDevice{
		ctx:     ctx,
		format:  format,
		logger:  logger,
		epoch:   time.Now(),
		players: make(map[*otoHandle]struct{}),
	}, nil
}

// Now returns seconds elapsed since the device was opened.
func (d *OtoDevice) Now() float64 {
	return time.Since(d.epoch).Seconds()
}

// Start schedules frame to begin playing at the given device time. Times
// in the past play immediately. The frame must match the context format:
// mismatched rate or channel count would play for a different wall time
// than the frame's duration, so it is rejected rather than distorted.
func (d *OtoDevice) Start(frame audio.Frame, at float64, done func()) (Handle, error) {
	if frame.SampleRate != d.format.SampleRate || frame.Channels != d.format.Channels {
		return nil, fmt.Errorf("frame format %dHz/%dch does not match device %dHz/%dch",
			frame.SampleRate, frame.Channels, d.format.SampleRate, d.format.Channels)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, fmt.Errorf("device closed")
	}
	d.mu.Unlock()

	pcm := audio.EncodePCM16(frame.Interleave())
	duration := frame.Duration()

	h := &otoHandle{device: d}

	delay := time.Duration((at - d.Now()) * float64(time.Second))
	if delay < 0 {
		delay = 0
	}

	h.mu.Lock()
	h.startTimer = time.AfterFunc(delay, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.stopped {
			return
		}
		player := d.ctx.NewPlayer(newPCMReader(pcm))
		player.Play()
		h.player = player
		h.doneTimer = time.AfterFunc(time.Duration(duration*float64(time.Second)), func() {
			h.mu.Lock()
			fire := !h.stopped
			h.mu.Unlock()
			h.release()
			if fire && done != nil {
				done()
			}
		})
	})
	h.mu.Unlock()

	d.mu.Lock()
	d.players[h] = struct{}{}
	d.mu.Unlock()
	return h, nil
}

// Stop cancels the buffer whether or not it has started. The done
// callback is suppressed. Stopping twice is harmless.
func (h *otoHandle) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	if h.startTimer != nil {
		h.startTimer.Stop()
	}
	if h.doneTimer != nil {
		h.doneTimer.Stop()
	}
	player := h.player
	h.player = nil
	h.mu.Unlock()

	if player != nil {
		player.Pause()
		player.Close()
	}
	h.release()
}

func (h *otoHandle) release() {
	h.device.mu.Lock()
	delete(h.device.players, h)
	h.device.mu.Unlock()
}

// Close stops every live buffer. The oto context itself has no Close;
// dropping all players silences the device.
func (d *OtoDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	live := make([]*otoHandle, 0, len(d.players))
	for h := range d.players {
		live = append(live, h)
	}
	d.mu.Unlock()

	for _, h := range live {
		h.Stop()
	}
	return nil
}

// pcmReader serves a fixed pcm16 buffer to an oto player.
type pcmReader struct {
	data []byte
	pos  int
}

func newPCMReader(data []byte) *pcmReader {
	return &pcmReader{data: data}
}

func (r *pcmReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		// Keep the stream open with silence so oto does not click at the
		// buffer boundary; the done timer closes the player.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
