// ABOUTME: MP3 segment decoder
// ABOUTME: Decodes self-contained MP3 segments into playable frames
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/crisisline-ai/crisisline-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3-encoded agent segments. Each segment must be a
// self-contained MP3 stream.
type MP3Decoder struct {
	format audio.Format
}

// NewMP3 creates an MP3 decoder for the negotiated format.
func NewMP3(format audio.Format) (Decoder, error) {
	return &MP3Decoder{format: format}, nil
}

// Decode converts one MP3 segment to a frame.
func (d *MP3Decoder) Decode(data []byte) (audio.Frame, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return audio.Frame{}, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return audio.Frame{}, fmt.Errorf("mp3 decode error: %w", err)
	}

	// go-mp3 always emits 16-bit stereo at the stream's native rate;
	// mix down to the negotiated channel count so a frame's duration
	// matches its play time on the output device.
	samples := audio.DecodePCM16(pcm)
	frame := audio.ToFrame(samples, dec.SampleRate(), 2)
	return frame.Mixdown(d.format.Channels), nil
}

// Close releases decoder resources.
func (d *MP3Decoder) Close() error {
	return nil
}
