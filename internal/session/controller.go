// ABOUTME: Session lifecycle controller tying capture, transport, and playback together
// ABOUTME: Runs the single dispatch loop that orders all gateway events
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/crisisline-ai/crisisline-go/internal/client"
	"github.com/crisisline-ai/crisisline-go/internal/metrics"
	"github.com/crisisline-ai/crisisline-go/internal/transcript"
	"github.com/crisisline-ai/crisisline-go/pkg/audio"
	"github.com/crisisline-ai/crisisline-go/pkg/audio/decode"
	"github.com/crisisline-ai/crisisline-go/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Conn is the gateway connection the controller drives.
type Conn interface {
	Events() <-chan client.Event
	SendAudio(pcm []byte) error
	SendToolAck(callID string, output map[string]any) error
	AudioOut() audio.Format
	Close() error
}

// Capture produces encoded microphone frames.
type Capture interface {
	Frames() <-chan []byte
	Run(ctx context.Context) error
	Snapshot() []float32
	Close() error
}

// Player schedules decoded agent audio.
type Player interface {
	Schedule(frame audio.Frame) error
	Interrupt()
	SetOnIdle(fn func())
	Close() error
}

// Deps supplies the controller's external resources. Each opener is
// called once during Start.
type Deps struct {
	Dial         func(ctx context.Context) (Conn, error)
	OpenCapture  func() (Capture, error)
	OpenPlayback func(format audio.Format) (Player, error)
}

// Hooks are optional observers for UI updates. All hooks are invoked
// from the dispatch goroutine except OnState, which may also fire from
// playback completion.
type Hooks struct {
	OnState      func(State)
	OnTranscript func(role, text string)
	OnPartial    func(role, text string)
	OnStage      func(stage, reasoning string)
	OnLink       func(title, url string)
}

// Controller owns one conversation session from dial to teardown.
type Controller struct {
	deps    Deps
	hooks   Hooks
	log     *transcript.Log
	logger  *slog.Logger
	metrics *metrics.Metrics

	started atomic.Bool
	stopped atomic.Bool

	mu       sync.Mutex
	state    State
	conn     Conn
	capture  Capture
	player   Player
	decoders map[string]decode.Decoder
	cancel   context.CancelFunc

	group *errgroup.Group
}

// New creates an idle controller. The transcript log must not be nil;
// metrics may be.
func New(deps Deps, hooks Hooks, log *transcript.Log, m *metrics.Metrics, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		deps:     deps,
		hooks:    hooks,
		log:      log,
		logger:   logger,
		metrics:  m,
		decoders: make(map[string]decode.Decoder),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns the session transcript log.
func (c *Controller) Transcript() *transcript.Log {
	return c.log
}

// Snapshot returns the latest captured frame for the visualizer, or nil
// before capture starts.
func (c *Controller) Snapshot() []float32 {
	c.mu.Lock()
	capture := c.capture
	c.mu.Unlock()
	if capture == nil {
		return nil
	}
	return capture.Snapshot()
}

// Start dials the gateway, opens audio devices, and launches the pump
// and dispatch goroutines. One session runs at a time; after Stop the
// controller can be started again for a fresh session.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("session already started")
	}
	c.stopped.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.setState(StateConnecting)

	conn, err := c.deps.Dial(ctx)
	if err != nil {
		cancel()
		c.setState(StateIdle)
		return fmt.Errorf("failed to connect: %w", err)
	}

	capture, err := c.deps.OpenCapture()
	if err != nil {
		conn.Close()
		cancel()
		c.setState(StateIdle)
		return fmt.Errorf("failed to open capture: %w", err)
	}

	player, err := c.deps.OpenPlayback(conn.AudioOut())
	if err != nil {
		capture.Close()
		conn.Close()
		cancel()
		c.setState(StateIdle)
		return fmt.Errorf("failed to open playback: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.capture = capture
	c.player = player
	c.mu.Unlock()

	player.SetOnIdle(func() {
		// Agent audio drained naturally; go back to listening.
		c.mu.Lock()
		transition := c.state == StateSpeaking
		if transition {
			c.state = StateListening
		}
		c.mu.Unlock()
		if transition {
			c.notifyState(StateListening)
		}
	})

	c.setState(StateListening)

	group, gctx := errgroup.WithContext(ctx)
	c.group = group

	group.Go(func() error {
		err := capture.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		return c.pumpAudio(gctx, capture, conn)
	})
	group.Go(func() error {
		// The event stream ending ends the whole session.
		defer cancel()
		return c.dispatch(gctx, conn, player)
	})

	return nil
}

// Wait blocks until the session's goroutines finish.
func (c *Controller) Wait() error {
	if c.group == nil {
		return nil
	}
	return c.group.Wait()
}

// pumpAudio forwards encoded capture frames to the gateway. Send
// failures are discarded here so capture cadence never stalls on the
// network; a dead transport surfaces through the read side instead.
func (c *Controller) pumpAudio(ctx context.Context, capture Capture, conn Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-capture.Frames():
			if !ok {
				return nil
			}
			if err := conn.SendAudio(frame); err != nil {
				c.logger.Debug("dropped outbound frame", "error", err)
				continue
			}
			if c.metrics != nil {
				c.metrics.RecordFrameSent()
			}
		}
	}
}

// dispatch consumes gateway events in arrival order. Tool calls are
// acknowledged before the next event is read, so acks always match the
// gateway's ordering expectations.
func (c *Controller) dispatch(ctx context.Context, conn Conn, player Player) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-conn.Events():
			if !ok {
				c.setState(StateIdle)
				return nil
			}
			if err := c.handleEvent(event, conn, player); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) handleEvent(event client.Event, conn Conn, player Player) error {
	switch e := event.(type) {
	case client.AudioSegmentEvent:
		c.handleSegment(e, player)

	case client.TranscriptEvent:
		c.handleTranscript(e)

	case client.TurnCompleteEvent:
		c.logger.Debug("turn complete")

	case client.InterruptedEvent:
		player.Interrupt()
		c.setState(StateListening)
		c.logger.Info("barge-in, playback cancelled")

	case client.ToolCallEvent:
		return c.handleToolCall(e, conn)

	case client.ErrorEvent:
		c.setState(StateIdle)
		return fmt.Errorf("gateway error: %s (%s)", e.Message, e.Code)

	case client.SessionEndEvent:
		c.logger.Info("session ended by gateway", "reason", e.Reason)
		c.setState(StateIdle)
		return nil
	}
	return nil
}

func (c *Controller) handleSegment(e client.AudioSegmentEvent, player Player) {
	if c.metrics != nil {
		c.metrics.RecordSegmentReceived()
	}

	decoder, err := c.decoderFor(e.Encoding)
	if err != nil {
		c.recordDecodeError("unsupported segment encoding", err)
		return
	}
	frame, err := decoder.Decode(e.Data)
	if err != nil {
		c.recordDecodeError("segment decode failed", err)
		return
	}

	if err := player.Schedule(frame); err != nil {
		c.logger.Warn("failed to schedule segment", "error", err)
		return
	}
	c.setState(StateSpeaking)
}

// decoderFor returns a cached decoder for the given segment encoding,
// defaulting to the negotiated format when the tag is absent.
func (c *Controller) decoderFor(encoding string) (decode.Decoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, fmt.Errorf("session stopped")
	}
	format := c.conn.AudioOut()
	if encoding != "" {
		format.Encoding = encoding
	}

	if decoder, ok := c.decoders[format.Encoding]; ok {
		return decoder, nil
	}
	decoder, err := decode.New(format)
	if err != nil {
		return nil, err
	}
	c.decoders[format.Encoding] = decoder
	return decoder, nil
}

func (c *Controller) recordDecodeError(msg string, err error) {
	if c.metrics != nil {
		c.metrics.RecordDecodeError()
	}
	c.logger.Warn(msg, "error", err)
}

func (c *Controller) handleTranscript(e client.TranscriptEvent) {
	if e.Final {
		c.log.AddSpeech(e.Role, e.Text)
		if c.metrics != nil {
			c.metrics.RecordTranscriptLine()
		}
		if c.hooks.OnTranscript != nil {
			c.hooks.OnTranscript(e.Role, e.Text)
		}
		return
	}
	if c.hooks.OnPartial != nil {
		c.hooks.OnPartial(e.Role, e.Text)
	}
}

// handleToolCall applies the tool's effect and acknowledges it exactly
// once. An ack failure is terminal since the model's turn is blocked on
// it.
func (c *Controller) handleToolCall(e client.ToolCallEvent, conn Conn) error {
	if c.metrics != nil {
		c.metrics.RecordToolCall(e.Name)
	}

	output := map[string]any{"ok": true}

	switch e.Name {
	case protocol.ToolClassifyStage:
		var args protocol.ClassifyStageArgs
		if err := json.Unmarshal(e.Args, &args); err != nil {
			c.logger.Warn("bad classify_stage args", "error", err)
			output = map[string]any{"ok": false, "error": "invalid arguments"}
			break
		}
		c.log.SetStage(args.Stage, args.Reasoning)
		if c.hooks.OnStage != nil {
			c.hooks.OnStage(args.Stage, args.Reasoning)
		}

	case protocol.ToolShareLink:
		var args protocol.ShareLinkArgs
		if err := json.Unmarshal(e.Args, &args); err != nil {
			c.logger.Warn("bad share_link args", "error", err)
			output = map[string]any{"ok": false, "error": "invalid arguments"}
			break
		}
		c.log.AddLink(args.Title, args.URL)
		if c.hooks.OnLink != nil {
			c.hooks.OnLink(args.Title, args.URL)
		}

	default:
		c.logger.Warn("unknown tool call", "name", e.Name)
		output = map[string]any{"ok": false, "error": "unknown tool"}
	}

	if err := conn.SendToolAck(e.CallID, output); err != nil {
		return fmt.Errorf("failed to ack tool call %s: %w", e.CallID, err)
	}
	return nil
}

// Stop tears the session down. Every step is attempted even when an
// earlier one fails; Stop is safe to call more than once.
func (c *Controller) Stop() error {
	if !c.stopped.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	capture := c.capture
	player := c.player
	decoders := c.decoders
	c.cancel = nil
	c.conn = nil
	c.capture = nil
	c.player = nil
	c.decoders = make(map[string]decode.Decoder)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var errs []error
	if capture != nil {
		if err := capture.Close(); err != nil {
			errs = append(errs, fmt.Errorf("capture close: %w", err))
		}
	}
	if player != nil {
		if err := player.Close(); err != nil {
			errs = append(errs, fmt.Errorf("player close: %w", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("connection close: %w", err))
		}
	}
	for _, decoder := range decoders {
		if err := decoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("decoder close: %w", err))
		}
	}

	c.setState(StateIdle)
	c.started.Store(false)
	return errors.Join(errs...)
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()
	c.notifyState(state)
}

func (c *Controller) notifyState(state State) {
	if c.metrics != nil {
		c.metrics.SetSessionState(int(state))
	}
	if c.hooks.OnState != nil {
		c.hooks.OnState(state)
	}
}
