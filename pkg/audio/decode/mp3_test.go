// ABOUTME: Tests for the MP3 segment decoder
// ABOUTME: Covers construction and malformed payload handling
package decode

import (
	"testing"

	"github.com/crisisline-ai/crisisline-go/pkg/audio"
)

func TestNewMP3(t *testing.T) {
	dec, err := New(audio.Format{Encoding: "mp3", SampleRate: 24000, Channels: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer dec.Close()
}

func TestMP3DecodeMalformed(t *testing.T) {
	dec, _ := NewMP3(audio.Format{Encoding: "mp3", SampleRate: 24000, Channels: 1})
	defer dec.Close()

	if _, err := dec.Decode([]byte{0xDE, 0xAD, 0xBE, 0xEF}); err == nil {
		t.Error("expected error for malformed mp3 payload")
	}
}
