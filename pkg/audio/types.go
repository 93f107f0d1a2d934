// ABOUTME: Audio type definitions
// ABOUTME: Defines the capture/playback frame and stream format types
package audio

// Wire constants for the Crisisline gateway protocol.
const (
	// InputSampleRate is the capture rate sent to the gateway.
	InputSampleRate = 16000

	// OutputSampleRate is the rate of agent audio returned by the gateway.
	OutputSampleRate = 24000

	// FrameSamples is the number of samples in one captured frame.
	FrameSamples = 4096
)

// Format describes a PCM stream format.
type Format struct {
	Encoding   string // "pcm_s16le", "opus", "mp3"
	SampleRate int
	Channels   int
}

// Frame is one scheduling unit of audio: per-channel planes of float
// samples in [-1,1], tagged with rate and channel count. Frames are not
// mutated after construction; ownership passes to whoever consumes them.
type Frame struct {
	Planes     [][]float32
	SampleRate int
	Channels   int
}

// Samples returns the per-channel plane length.
func (f Frame) Samples() int {
	if len(f.Planes) == 0 {
		return 0
	}
	return len(f.Planes[0])
}

// Duration returns the frame's play time in seconds.
func (f Frame) Duration() float64 {
	if f.SampleRate == 0 {
		return 0
	}
	return float64(f.Samples()) / float64(f.SampleRate)
}

// Mixdown converts the frame to the given channel count: source
// channels are averaged into one signal, which is then carried on every
// target channel. A frame already at the target count is returned
// unchanged.
func (f Frame) Mixdown(channels int) Frame {
	if channels < 1 || f.Channels == channels || len(f.Planes) == 0 {
		return f
	}

	n := f.Samples()
	mono := make([]float32, n)
	for _, plane := range f.Planes {
		for i, s := range plane {
			mono[i] += s
		}
	}
	scale := 1 / float32(len(f.Planes))
	for i := range mono {
		mono[i] *= scale
	}

	planes := make([][]float32, channels)
	planes[0] = mono
	for ch := 1; ch < channels; ch++ {
		dup := make([]float32, n)
		copy(dup, mono)
		planes[ch] = dup
	}

	return Frame{
		Planes:     planes,
		SampleRate: f.SampleRate,
		Channels:   channels,
	}
}

// Interleave flattens the planes into sample-interleaved order.
func (f Frame) Interleave() []float32 {
	n := f.Samples()
	if f.Channels <= 1 {
		if len(f.Planes) == 0 {
			return nil
		}
		out := make([]float32, n)
		copy(out, f.Planes[0])
		return out
	}

	out := make([]float32, n*f.Channels)
	for ch, plane := range f.Planes {
		for i, s := range plane {
			out[i*f.Channels+ch] = s
		}
	}
	return out
}
