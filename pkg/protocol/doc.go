// ABOUTME: Package documentation for the gateway protocol
// ABOUTME: Message structs for the Crisisline live websocket protocol

// Package protocol defines the JSON frames exchanged with the Crisisline
// conversational gateway over its live websocket.
//
// The client streams base64 pcm_s16le microphone frames outbound and
// receives agent audio segments, transcript deltas, turn markers,
// interruption signals, and tool calls inbound. Tool calls block the
// model's turn until the client replies with a tool_ack carrying the same
// call id.
package protocol
