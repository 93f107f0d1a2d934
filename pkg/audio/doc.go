// ABOUTME: Package documentation for audio types
// ABOUTME: Core audio frame and sample codec for the streaming pipeline

// Package audio defines the audio frame type and the float/int16 PCM
// sample codec used at the gateway wire boundary.
//
// Capture produces float32 samples in [-1,1]; the gateway protocol carries
// little-endian 16-bit PCM. EncodePCM16/DecodePCM16 convert between the
// two, and ToFrame packs decoded samples into playable per-channel planes.
package audio
