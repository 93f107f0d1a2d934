// ABOUTME: Package documentation for segment decoding
// ABOUTME: Pluggable decoders for agent audio segment encodings

// Package decode provides decoders for the agent audio segment encodings
// the gateway may negotiate: raw pcm_s16le, Opus, and MP3.
package decode
