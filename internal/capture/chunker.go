// ABOUTME: Fixed-size frame chunker for microphone capture
// ABOUTME: Accumulates samples into 4096-sample frames and encodes them for the wire
package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/crisisline-ai/crisisline-go/internal/metrics"
	"github.com/crisisline-ai/crisisline-go/pkg/audio"
)

// Chunker reads from a Source and emits fixed-size pcm16 frames ready
// for the wire. When the consumer falls behind, whole frames are dropped
// rather than blocking the capture path.
type Chunker struct {
	source  Source
	logger  *slog.Logger
	metrics *metrics.Metrics
	frames  chan []byte

	mu     sync.Mutex
	latest []float32

	captured int64
	dropped  int64
}

// NewChunker wraps a source. The frame channel holds up to depth encoded
// frames; metrics may be nil.
func NewChunker(source Source, depth int, m *metrics.Metrics, logger *slog.Logger) *Chunker {
	if depth <= 0 {
		depth = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{
		source:  source,
		logger:  logger,
		metrics: m,
		frames:  make(chan []byte, depth),
	}
}

// Frames returns the channel of encoded pcm16 frames. It is closed when
// Run returns.
func (c *Chunker) Frames() <-chan []byte {
	return c.frames
}

// Run accumulates samples into full frames until the context is
// cancelled or the source is exhausted. A partial trailing frame is
// discarded.
func (c *Chunker) Run(ctx context.Context) error {
	defer close(c.frames)

	frame := make([]float32, 0, audio.FrameSamples)
	buf := make([]float32, audio.FrameSamples)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := c.source.Read(buf)
		if n > 0 {
			frame = append(frame, buf[:n]...)
			for len(frame) >= audio.FrameSamples {
				c.emit(frame[:audio.FrameSamples])
				frame = append(frame[:0], frame[audio.FrameSamples:]...)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// emit records the frame for the visualizer and hands the encoded bytes
// to the consumer, dropping when the channel is full.
func (c *Chunker) emit(samples []float32) {
	c.mu.Lock()
	c.latest = append(c.latest[:0], samples...)
	c.captured++
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordFrameCaptured()
	}

	encoded := audio.EncodePCM16(samples)
	select {
	case c.frames <- encoded:
	default:
		c.mu.Lock()
		c.dropped++
		dropped := c.dropped
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordFrameDropped()
		}
		c.logger.Debug("dropped capture frame", "total_dropped", dropped)
	}
}

// Snapshot copies the most recent full frame of raw samples, for the
// energy visualizer. Returns nil before the first frame completes.
func (c *Chunker) Snapshot() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.latest) == 0 {
		return nil
	}
	out := make([]float32, len(c.latest))
	copy(out, c.latest)
	return out
}

// Stats reports frames captured and dropped so far.
func (c *Chunker) Stats() (captured, dropped int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captured, c.dropped
}
