// ABOUTME: Microphone energy analyzer for the level visualizer
// ABOUTME: Measures band energies with the Goertzel algorithm
package analyzer

import (
	"math"
	"sync"
)

// Bands is the number of frequency bands reported per sample.
const Bands = 8

// Band edges are log-spaced across the useful voice range.
const (
	minFreqHz = 100.0
	maxFreqHz = 4000.0
)

// SnapshotFunc returns the most recent captured frame, or nil when no
// audio has been captured yet.
type SnapshotFunc func() []float32

// Analyzer converts capture snapshots into per-band energy levels in
// [0, 1] for display.
type Analyzer struct {
	snapshot   SnapshotFunc
	sampleRate int
	freqs      [Bands]float64

	mu     sync.Mutex
	levels [Bands]float64
}

// New creates an analyzer over the given snapshot source.
func New(snapshot SnapshotFunc, sampleRate int) *Analyzer {
	a := &Analyzer{snapshot: snapshot, sampleRate: sampleRate}
	ratio := math.Pow(maxFreqHz/minFreqHz, 1.0/float64(Bands-1))
	freq := minFreqHz
	for i := 0; i < Bands; i++ {
		a.freqs[i] = freq
		freq *= ratio
	}
	return a
}

// Frequencies returns the center frequency of each band in Hz.
func (a *Analyzer) Frequencies() [Bands]float64 {
	return a.freqs
}

// Sample measures the current frame and returns one level per band.
// With no captured audio yet, all levels are zero.
func (a *Analyzer) Sample() []float64 {
	frame := a.snapshot()

	out := make([]float64, Bands)
	if len(frame) == 0 {
		a.mu.Lock()
		a.levels = [Bands]float64{}
		a.mu.Unlock()
		return out
	}

	a.mu.Lock()
	for i, freq := range a.freqs {
		magnitude := goertzel(frame, freq, a.sampleRate)
		level := normalize(magnitude, len(frame))
		// Fast attack, slow decay keeps the meter readable.
		if level > a.levels[i] {
			a.levels[i] = level
		} else {
			a.levels[i] = a.levels[i]*0.6 + level*0.4
		}
		out[i] = a.levels[i]
	}
	a.mu.Unlock()
	return out
}

// goertzel computes the magnitude of one frequency component.
func goertzel(samples []float32, freqHz float64, sampleRate int) float64 {
	omega := 2 * math.Pi * freqHz / float64(sampleRate)
	coeff := 2 * math.Cos(omega)

	var s0, s1, s2 float64
	for _, sample := range samples {
		s0 = float64(sample) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power)
}

// normalize maps a Goertzel magnitude onto [0, 1]. A full-scale sine at
// a bin frequency yields a magnitude of about n/2.
func normalize(magnitude float64, n int) float64 {
	level := magnitude / (float64(n) / 2)
	if level > 1 {
		level = 1
	}
	return level
}
