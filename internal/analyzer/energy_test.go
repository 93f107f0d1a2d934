// ABOUTME: Tests for the band energy analyzer
// ABOUTME: Verifies tone detection, silence, and empty-snapshot behavior
package analyzer

import (
	"math"
	"testing"

	"github.com/crisisline-ai/crisisline-go/pkg/audio"
)

func sineFrame(freqHz float64, amplitude float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/float64(audio.InputSampleRate)))
	}
	return out
}

func TestSampleEmptySnapshot(t *testing.T) {
	a := New(func() []float32 { return nil }, audio.InputSampleRate)

	levels := a.Sample()
	if len(levels) != Bands {
		t.Fatalf("expected %d bands, got %d", Bands, len(levels))
	}
	for i, level := range levels {
		if level != 0 {
			t.Errorf("band %d: expected 0, got %f", i, level)
		}
	}
}

func TestSampleSilence(t *testing.T) {
	frame := make([]float32, audio.FrameSamples)
	a := New(func() []float32 { return frame }, audio.InputSampleRate)

	for i, level := range a.Sample() {
		if level != 0 {
			t.Errorf("band %d: expected 0 for silence, got %f", i, level)
		}
	}
}

func TestSampleToneHitsMatchingBand(t *testing.T) {
	a := New(nil, audio.InputSampleRate)
	freqs := a.Frequencies()

	// Drive a tone at the center of band 4 and expect it to dominate.
	target := 4
	frame := sineFrame(freqs[target], 0.9, audio.FrameSamples)
	a.snapshot = func() []float32 { return frame }

	levels := a.Sample()
	if levels[target] < 0.5 {
		t.Errorf("expected strong level in band %d, got %f", target, levels[target])
	}
	for i, level := range levels {
		if i == target {
			continue
		}
		// Neighbors leak a little; distant bands must stay far below.
		if abs(i-target) > 1 && level > levels[target]/2 {
			t.Errorf("band %d unexpectedly high: %f (target band %f)", i, level, levels[target])
		}
	}
}

func TestSampleDecay(t *testing.T) {
	frame := sineFrame(1000, 0.9, audio.FrameSamples)
	current := frame
	a := New(func() []float32 { return current }, audio.InputSampleRate)

	loud := a.Sample()

	current = make([]float32, audio.FrameSamples) // silence
	quieter := a.Sample()

	for i := range loud {
		if loud[i] > 0.01 && quieter[i] >= loud[i] {
			t.Errorf("band %d did not decay: %f -> %f", i, loud[i], quieter[i])
		}
	}
}

func TestFrequenciesLogSpaced(t *testing.T) {
	a := New(nil, audio.InputSampleRate)
	freqs := a.Frequencies()

	if math.Abs(freqs[0]-100) > 0.001 {
		t.Errorf("expected first band at 100 Hz, got %f", freqs[0])
	}
	if math.Abs(freqs[Bands-1]-4000) > 0.1 {
		t.Errorf("expected last band at 4000 Hz, got %f", freqs[Bands-1])
	}
	for i := 1; i < Bands; i++ {
		if freqs[i] <= freqs[i-1] {
			t.Errorf("bands not increasing at %d: %f <= %f", i, freqs[i], freqs[i-1])
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
