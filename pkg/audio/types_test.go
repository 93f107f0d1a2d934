// ABOUTME: Tests for the audio frame type
// ABOUTME: Covers channel mixdown and duration bookkeeping
package audio

import (
	"testing"
)

func TestMixdownStereoToMono(t *testing.T) {
	frame := Frame{
		Planes: [][]float32{
			{0.8, -0.4, 0.2},
			{0.4, -0.2, 0.2},
		},
		SampleRate: 24000,
		Channels:   2,
	}

	mono := frame.Mixdown(1)
	if mono.Channels != 1 || len(mono.Planes) != 1 {
		t.Fatalf("expected mono frame, got %d channels", mono.Channels)
	}
	if mono.Samples() != 3 {
		t.Fatalf("expected 3 samples, got %d", mono.Samples())
	}

	want := []float32{0.6, -0.3, 0.2}
	for i, w := range want {
		if got := mono.Planes[0][i]; got != w {
			t.Errorf("sample %d: expected %f, got %f", i, w, got)
		}
	}
}

func TestMixdownPreservesDuration(t *testing.T) {
	// A stereo frame mixed to mono must keep the same play time; the
	// scheduler advances its cursor by exactly this value.
	frame := Frame{
		Planes:     [][]float32{make([]float32, 12000), make([]float32, 12000)},
		SampleRate: 24000,
		Channels:   2,
	}

	mono := frame.Mixdown(1)
	if mono.Duration() != frame.Duration() {
		t.Errorf("duration changed: %f -> %f", frame.Duration(), mono.Duration())
	}
	if mono.Duration() != 0.5 {
		t.Errorf("expected 0.5s, got %f", mono.Duration())
	}
}

func TestMixdownMonoToStereo(t *testing.T) {
	frame := Frame{
		Planes:     [][]float32{{0.5, -0.5}},
		SampleRate: 24000,
		Channels:   1,
	}

	stereo := frame.Mixdown(2)
	if stereo.Channels != 2 || len(stereo.Planes) != 2 {
		t.Fatalf("expected stereo frame, got %d channels", stereo.Channels)
	}
	for ch := 0; ch < 2; ch++ {
		if stereo.Planes[ch][0] != 0.5 || stereo.Planes[ch][1] != -0.5 {
			t.Errorf("channel %d: unexpected samples %v", ch, stereo.Planes[ch])
		}
	}
}

func TestMixdownSameChannelCount(t *testing.T) {
	frame := Frame{
		Planes:     [][]float32{{0.1}},
		SampleRate: 24000,
		Channels:   1,
	}
	if got := frame.Mixdown(1); got.Planes[0][0] != 0.1 || got.Channels != 1 {
		t.Errorf("expected unchanged frame, got %+v", got)
	}
}
