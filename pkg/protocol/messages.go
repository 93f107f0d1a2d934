// ABOUTME: Crisisline gateway protocol message definitions
// ABOUTME: Defines structs for every frame exchanged over the live websocket
package protocol

import "encoding/json"

// Frame type tags. Every websocket text frame is a JSON object carrying
// one of these in its "type" field.
const (
	TypeHello           = "hello"
	TypeHelloAck        = "hello_ack"
	TypeAudioFrame      = "audio_frame"
	TypeAudioSegment    = "audio_segment"
	TypeTranscriptDelta = "transcript_delta"
	TypeTurnComplete    = "turn_complete"
	TypeInterrupted     = "interrupted"
	TypeToolCall        = "tool_call"
	TypeToolAck         = "tool_ack"
	TypeError           = "error"
	TypeSessionEnd      = "session_end"
	TypeBye             = "bye"
)

// Tool names the gateway may invoke on the client.
const (
	ToolClassifyStage = "classify_stage"
	ToolShareLink     = "share_link"
)

// Envelope is the minimal frame used to sniff the type tag before full
// decoding.
type Envelope struct {
	Type string `json:"type"`
}

// AudioFormat describes one direction's PCM format.
type AudioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name            string `json:"name"`
	SoftwareVersion string `json:"software_version"`
}

// Hello opens a live session. AudioOutEncodings lists the segment
// encodings the client can play; the gateway picks one in HelloAck.
type Hello struct {
	Type              string      `json:"type"`
	ProtocolVersion   int         `json:"protocol_version"`
	SessionID         string      `json:"session_id"`
	APIKey            string      `json:"api_key,omitempty"`
	Client            ClientInfo  `json:"client"`
	AudioIn           AudioFormat `json:"audio_in"`
	AudioOutEncodings []string    `json:"audio_out_encodings"`
	AudioOutRateHz    int         `json:"audio_out_rate_hz"`
}

// HelloAck confirms the session and the selected agent audio format.
type HelloAck struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	AudioOut  AudioFormat `json:"audio_out"`
}

// AudioFrame carries one captured microphone frame, base64-encoded
// pcm_s16le.
type AudioFrame struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`
	Data string `json:"data"`
}

// AudioSegment carries one synthesized agent audio segment.
type AudioSegment struct {
	Type     string `json:"type"`
	Seq      int64  `json:"seq"`
	Encoding string `json:"encoding,omitempty"`
	Data     string `json:"data"`
}

// TranscriptDelta carries a partial or final transcript fragment.
type TranscriptDelta struct {
	Type  string `json:"type"`
	Role  string `json:"role"` // "user" or "agent"
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// TurnComplete marks the end of one conversational exchange.
type TurnComplete struct {
	Type string `json:"type"`
}

// Interrupted signals that the user began speaking over the agent; all
// in-flight agent audio must be cancelled immediately.
type Interrupted struct {
	Type string `json:"type"`
}

// ToolCall is a structured request the client must acknowledge before the
// model continues its turn.
type ToolCall struct {
	Type   string          `json:"type"`
	CallID string          `json:"call_id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
}

// ClassifyStageArgs are the arguments of a classify_stage tool call.
type ClassifyStageArgs struct {
	Stage     string `json:"stage"` // "Before", "During", or "After"
	Reasoning string `json:"reasoning"`
}

// ShareLinkArgs are the arguments of a share_link tool call.
type ShareLinkArgs struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ToolAck acknowledges a tool call, correlated by call id.
type ToolAck struct {
	Type   string         `json:"type"`
	CallID string         `json:"call_id"`
	Output map[string]any `json:"output,omitempty"`
}

// ServerError reports a gateway-side failure; the session is terminal
// after one.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionEnd is the gateway's graceful close.
type SessionEnd struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// Bye is sent by the client before a graceful disconnect.
type Bye struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}
