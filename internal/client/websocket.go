// ABOUTME: WebSocket client for the Crisisline gateway
// ABOUTME: Handles connection, handshake, and inbound event decoding
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/crisisline-ai/crisisline-go/internal/version"
	"github.com/crisisline-ai/crisisline-go/pkg/audio"
	"github.com/crisisline-ai/crisisline-go/pkg/protocol"
	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

// Event is one inbound gateway event. All variants are decoded by the
// read loop and consumed from a single channel, so handler ordering is
// exactly arrival ordering.
type Event interface {
	eventType() string
}

// AudioSegmentEvent carries one decoded-from-base64 agent audio segment.
type AudioSegmentEvent struct {
	Seq      int64
	Encoding string
	Data     []byte
}

func (AudioSegmentEvent) eventType() string { return protocol.TypeAudioSegment }

// TranscriptEvent carries a partial or final transcript fragment.
type TranscriptEvent struct {
	Role  string
	Text  string
	Final bool
}

func (TranscriptEvent) eventType() string { return protocol.TypeTranscriptDelta }

// TurnCompleteEvent marks the end of an exchange.
type TurnCompleteEvent struct{}

func (TurnCompleteEvent) eventType() string { return protocol.TypeTurnComplete }

// InterruptedEvent signals that in-flight agent audio must be cancelled.
type InterruptedEvent struct{}

func (InterruptedEvent) eventType() string { return protocol.TypeInterrupted }

// ToolCallEvent is a structured tool request awaiting acknowledgment.
type ToolCallEvent struct {
	CallID string
	Name   string
	Args   json.RawMessage
}

func (ToolCallEvent) eventType() string { return protocol.TypeToolCall }

// ErrorEvent reports a gateway error; the session is terminal after one.
type ErrorEvent struct {
	Code    string
	Message string
}

func (ErrorEvent) eventType() string { return protocol.TypeError }

// SessionEndEvent is the gateway's graceful close.
type SessionEndEvent struct {
	Reason string
}

func (SessionEndEvent) eventType() string { return protocol.TypeSessionEnd }

// Config holds client connection parameters.
type Config struct {
	GatewayURL        string
	APIKey            string
	SessionID         string
	Name              string
	AudioOutEncodings []string
}

// Client is a live websocket session with the gateway.
type Client struct {
	config Config
	logger *slog.Logger
	conn   *websocket.Conn

	audioOut audio.Format
	events   chan Event
	seq      int64

	writeMu   sync.Mutex
	closeOnce sync.Once
	closedMu  sync.Mutex
	closed    bool
	done      chan struct{}
}

// New creates an unconnected client.
func New(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		logger: logger,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
}

// Connect dials the gateway and performs the hello handshake. On success
// the read loop runs until the stream closes or errors, after which
// Events() is closed.
func (c *Client) Connect(ctx context.Context) error {
	wsURL, err := websocketURL(c.config.GatewayURL)
	if err != nil {
		return err
	}

	header := make(http.Header)
	if c.config.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	dialCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, handshakeTimeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	c.conn = conn

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readLoop()
	return nil
}

// handshake sends hello and waits for hello_ack.
func (c *Client) handshake() error {
	hello := protocol.Hello{
		Type:            protocol.TypeHello,
		ProtocolVersion: 1,
		SessionID:       c.config.SessionID,
		APIKey:          c.config.APIKey,
		Client: protocol.ClientInfo{
			Name:            c.config.Name,
			SoftwareVersion: version.Version,
		},
		AudioIn: protocol.AudioFormat{
			Encoding:     "pcm_s16le",
			SampleRateHz: audio.InputSampleRate,
			Channels:     1,
		},
		AudioOutEncodings: c.config.AudioOutEncodings,
		AudioOutRateHz:    audio.OutputSampleRate,
	}

	if err := c.sendJSON(hello); err != nil {
		return fmt.Errorf("failed to send hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer c.conn.SetReadDeadline(time.Time{})

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read hello_ack: %w", err)
	}

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to parse hello_ack: %w", err)
	}

	switch env.Type {
	case protocol.TypeHelloAck:
		var ack protocol.HelloAck
		if err := json.Unmarshal(data, &ack); err != nil {
			return fmt.Errorf("failed to parse hello_ack: %w", err)
		}
		c.audioOut = audio.Format{
			Encoding:   ack.AudioOut.Encoding,
			SampleRate: ack.AudioOut.SampleRateHz,
			Channels:   ack.AudioOut.Channels,
		}
		if c.audioOut.Encoding == "" {
			c.audioOut.Encoding = "pcm_s16le"
		}
		if c.audioOut.SampleRate == 0 {
			c.audioOut.SampleRate = audio.OutputSampleRate
		}
		if c.audioOut.Channels == 0 {
			c.audioOut.Channels = 1
		}
		return nil
	case protocol.TypeError:
		var serverErr protocol.ServerError
		if err := json.Unmarshal(data, &serverErr); err != nil {
			return fmt.Errorf("gateway rejected session")
		}
		return fmt.Errorf("gateway rejected session: %s (%s)", serverErr.Message, serverErr.Code)
	default:
		return fmt.Errorf("expected hello_ack, got %s", env.Type)
	}
}

// AudioOut returns the agent audio format negotiated during handshake.
func (c *Client) AudioOut() audio.Format {
	return c.audioOut
}

// Events returns the inbound event channel. It is closed when the stream
// ends for any reason.
func (c *Client) Events() <-chan Event {
	return c.events
}

// SendAudio sends one encoded microphone frame.
func (c *Client) SendAudio(pcm []byte) error {
	c.writeMu.Lock()
	seq := c.seq
	c.seq++
	c.writeMu.Unlock()

	return c.sendJSON(protocol.AudioFrame{
		Type: protocol.TypeAudioFrame,
		Seq:  seq,
		Data: base64.StdEncoding.EncodeToString(pcm),
	})
}

// SendToolAck acknowledges one tool call by its call id.
func (c *Client) SendToolAck(callID string, output map[string]any) error {
	return c.sendJSON(protocol.ToolAck{
		Type:   protocol.TypeToolAck,
		CallID: callID,
		Output: output,
	})
}

func (c *Client) sendJSON(v any) error {
	c.closedMu.Lock()
	closed := c.closed
	c.closedMu.Unlock()
	if closed {
		return fmt.Errorf("session closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// readLoop reads frames until the connection dies and decodes each into
// an Event on the events channel.
func (c *Client) readLoop() {
	defer close(c.events)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("read loop ended", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger.Debug("ignoring non-text frame", "ws_type", messageType)
			continue
		}

		event, err := decodeEvent(data)
		if err != nil {
			c.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}
		if event == nil {
			continue
		}
		// Close unblocks delivery when the consumer is gone; otherwise
		// a full events buffer would pin this goroutine forever.
		select {
		case c.events <- event:
		case <-c.done:
			return
		}
	}
}

// decodeEvent maps one inbound JSON frame to its Event variant. Unknown
// frame types decode to nil and are skipped.
func decodeEvent(data []byte) (Event, error) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case protocol.TypeAudioSegment:
		var seg protocol.AudioSegment
		if err := json.Unmarshal(data, &seg); err != nil {
			return nil, fmt.Errorf("decode audio_segment: %w", err)
		}
		raw, err := base64.StdEncoding.DecodeString(seg.Data)
		if err != nil {
			return nil, fmt.Errorf("decode audio_segment payload: %w", err)
		}
		return AudioSegmentEvent{Seq: seg.Seq, Encoding: seg.Encoding, Data: raw}, nil

	case protocol.TypeTranscriptDelta:
		var delta protocol.TranscriptDelta
		if err := json.Unmarshal(data, &delta); err != nil {
			return nil, fmt.Errorf("decode transcript_delta: %w", err)
		}
		return TranscriptEvent{Role: delta.Role, Text: delta.Text, Final: delta.Final}, nil

	case protocol.TypeTurnComplete:
		return TurnCompleteEvent{}, nil

	case protocol.TypeInterrupted:
		return InterruptedEvent{}, nil

	case protocol.TypeToolCall:
		var call protocol.ToolCall
		if err := json.Unmarshal(data, &call); err != nil {
			return nil, fmt.Errorf("decode tool_call: %w", err)
		}
		return ToolCallEvent{CallID: call.CallID, Name: call.Name, Args: call.Args}, nil

	case protocol.TypeError:
		var serverErr protocol.ServerError
		if err := json.Unmarshal(data, &serverErr); err != nil {
			return nil, fmt.Errorf("decode error frame: %w", err)
		}
		return ErrorEvent{Code: serverErr.Code, Message: serverErr.Message}, nil

	case protocol.TypeSessionEnd:
		var end protocol.SessionEnd
		if err := json.Unmarshal(data, &end); err != nil {
			return nil, fmt.Errorf("decode session_end: %w", err)
		}
		return SessionEndEvent{Reason: end.Reason}, nil

	default:
		return nil, nil
	}
}

// Close closes the connection. Safe to call more than once and while the
// read loop is running.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()
		close(c.done)

		if c.conn != nil {
			c.writeMu.Lock()
			c.conn.WriteJSON(protocol.Bye{Type: protocol.TypeBye, Reason: "shutdown"})
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(2*time.Second))
			c.writeMu.Unlock()
			c.conn.Close()
		}
	})
	return nil
}

// websocketURL normalizes the configured gateway URL to a ws(s) scheme.
func websocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid gateway URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	case "":
		u, err = url.Parse("ws://" + raw)
		if err != nil {
			return "", fmt.Errorf("invalid gateway URL: %w", err)
		}
	default:
		return "", fmt.Errorf("gateway URL must use http(s) or ws(s), got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/v1/live"
	}
	return u.String(), nil
}
