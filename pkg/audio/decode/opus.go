// ABOUTME: Opus segment decoder
// ABOUTME: Decodes Opus packets into playable frames
package decode

import (
	"fmt"

	"github.com/crisisline-ai/crisisline-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// OpusDecoder decodes Opus-encoded agent segments.
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
}

// NewOpus creates an Opus decoder for the negotiated format.
func NewOpus(format audio.Format) (Decoder, error) {
	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
	}, nil
}

// Decode converts one Opus packet to a frame.
func (d *OpusDecoder) Decode(data []byte) (audio.Frame, error) {
	pcmSize := 5760 * d.format.Channels // Max opus frame size
	pcm16 := make([]int16, pcmSize)

	n, err := d.decoder.Decode(data, pcm16)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("opus decode failed: %w", err)
	}

	samples := pcm16[:n*d.format.Channels]
	return audio.ToFrame(samples, d.format.SampleRate, d.format.Channels), nil
}

// Close releases decoder resources.
func (d *OpusDecoder) Close() error {
	return nil
}
