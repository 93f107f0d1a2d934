// ABOUTME: Tests for protocol message serialization
// ABOUTME: Verifies wire field names and tool argument decoding
package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHelloSerialization(t *testing.T) {
	hello := Hello{
		Type:            TypeHello,
		ProtocolVersion: 1,
		SessionID:       "abc-123",
		Client:          ClientInfo{Name: "test", SoftwareVersion: "0.1.0"},
		AudioIn: AudioFormat{
			Encoding:     "pcm_s16le",
			SampleRateHz: 16000,
			Channels:     1,
		},
		AudioOutEncodings: []string{"pcm_s16le", "opus"},
		AudioOutRateHz:    24000,
	}

	data, err := json.Marshal(hello)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for _, want := range []string{
		`"type":"hello"`,
		`"sample_rate_hz":16000`,
		`"audio_out_encodings":["pcm_s16le","opus"]`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("serialized hello missing %s: %s", want, data)
		}
	}
}

func TestToolCallArgsDecoding(t *testing.T) {
	raw := `{"type":"tool_call","call_id":"c1","name":"classify_stage",` +
		`"args":{"stage":"During","reasoning":"active data breach"}}`

	var call ToolCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if call.Name != ToolClassifyStage {
		t.Errorf("expected classify_stage, got %s", call.Name)
	}

	var args ClassifyStageArgs
	if err := json.Unmarshal(call.Args, &args); err != nil {
		t.Fatalf("args unmarshal failed: %v", err)
	}
	if args.Stage != "During" {
		t.Errorf("expected During, got %s", args.Stage)
	}
	if args.Reasoning != "active data breach" {
		t.Errorf("unexpected reasoning: %s", args.Reasoning)
	}
}

func TestEnvelopeSniffing(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"type":"audio_segment","seq":1,"data":"AA=="}`, TypeAudioSegment},
		{`{"type":"interrupted"}`, TypeInterrupted},
		{`{"type":"turn_complete"}`, TypeTurnComplete},
		{`{"type":"error","code":"internal","message":"boom"}`, TypeError},
	}

	for _, tt := range tests {
		var env Envelope
		if err := json.Unmarshal([]byte(tt.raw), &env); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if env.Type != tt.want {
			t.Errorf("expected %s, got %s", tt.want, env.Type)
		}
	}
}

func TestToolAckCorrelation(t *testing.T) {
	ack := ToolAck{Type: TypeToolAck, CallID: "c1", Output: map[string]any{"ok": true}}

	data, err := json.Marshal(ack)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"call_id":"c1"`) {
		t.Errorf("ack missing call id: %s", data)
	}
}
