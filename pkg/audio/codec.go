// ABOUTME: Float/int16 PCM sample codec
// ABOUTME: Converts between float samples and little-endian 16-bit wire PCM
package audio

import "encoding/binary"

// EncodePCM16 converts float samples in [-1,1] to little-endian 16-bit
// PCM bytes. Out-of-range samples are clamped, not reported.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
	return out
}

// DecodePCM16 interprets every consecutive 2-byte pair as a little-endian
// signed 16-bit sample. An odd trailing byte is silently truncated.
func DecodePCM16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// ToFrame rescales int16 samples to floats in [-1,1) and packs them into
// per-channel planes of length len(samples)/channels. A trailing partial
// sample group is discarded.
func ToFrame(samples []int16, sampleRate, channels int) Frame {
	if channels < 1 {
		channels = 1
	}
	perChannel := len(samples) / channels

	planes := make([][]float32, channels)
	for ch := range planes {
		planes[ch] = make([]float32, perChannel)
	}
	for i := 0; i < perChannel*channels; i++ {
		planes[i%channels][i/channels] = float32(samples[i]) / 32768
	}

	return Frame{
		Planes:     planes,
		SampleRate: sampleRate,
		Channels:   channels,
	}
}
