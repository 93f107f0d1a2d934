// ABOUTME: Raw PCM segment decoder
// ABOUTME: Decodes little-endian 16-bit PCM into playable frames
package decode

import (
	"github.com/crisisline-ai/crisisline-go/pkg/audio"
)

// PCMDecoder decodes raw pcm_s16le segments.
type PCMDecoder struct {
	format audio.Format
}

// Decode converts PCM bytes to a frame. Malformed (odd-length) input
// truncates the final incomplete sample rather than failing.
func (d *PCMDecoder) Decode(data []byte) (audio.Frame, error) {
	samples := audio.DecodePCM16(data)
	return audio.ToFrame(samples, d.format.SampleRate, d.format.Channels), nil
}

// Close releases decoder resources.
func (d *PCMDecoder) Close() error {
	return nil
}
