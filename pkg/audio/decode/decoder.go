// ABOUTME: Segment decoder interface and dispatch
// ABOUTME: Creates a decoder for the negotiated agent audio encoding
package decode

import (
	"fmt"

	"github.com/crisisline-ai/crisisline-go/pkg/audio"
)

// Decoder turns one encoded agent audio segment into a playable frame.
type Decoder interface {
	Decode(data []byte) (audio.Frame, error)
	Close() error
}

// New creates a decoder for the specified format.
func New(format audio.Format) (Decoder, error) {
	switch format.Encoding {
	case "pcm_s16le":
		return &PCMDecoder{format: format}, nil
	case "opus":
		return NewOpus(format)
	case "mp3":
		return NewMP3(format)
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", format.Encoding)
	}
}
