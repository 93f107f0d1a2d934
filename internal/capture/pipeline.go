// ABOUTME: Capture pipeline combining the microphone and the chunker
// ABOUTME: One handle owning the full mic-to-frames path
package capture

import (
	"context"
	"log/slog"

	"github.com/crisisline-ai/crisisline-go/internal/metrics"
)

// Pipeline owns a microphone and its chunker as one unit.
type Pipeline struct {
	mic     *Mic
	chunker *Chunker
}

// OpenPipeline opens the default microphone and wraps it in a chunker.
func OpenPipeline(depth int, m *metrics.Metrics, logger *slog.Logger) (*Pipeline, error) {
	mic, err := OpenMic(logger)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		mic:     mic,
		chunker: NewChunker(mic, depth, m, logger),
	}, nil
}

// Frames returns the encoded frame channel.
func (p *Pipeline) Frames() <-chan []byte {
	return p.chunker.Frames()
}

// Run drives the chunker until the context ends or the mic closes.
func (p *Pipeline) Run(ctx context.Context) error {
	return p.chunker.Run(ctx)
}

// Snapshot returns the latest raw frame for the visualizer.
func (p *Pipeline) Snapshot() []float32 {
	return p.chunker.Snapshot()
}

// Stats reports chunker counters.
func (p *Pipeline) Stats() (captured, dropped int64) {
	return p.chunker.Stats()
}

// Close stops the microphone, which ends Run once buffered samples
// drain.
func (p *Pipeline) Close() error {
	return p.mic.Close()
}
