// ABOUTME: Prometheus metrics for the voice client
// ABOUTME: Counters and gauges for capture, playback, and session activity
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice client.
type Metrics struct {
	// Capture metrics
	FramesCaptured prometheus.Counter
	FramesSent     prometheus.Counter
	FramesDropped  prometheus.Counter

	// Playback metrics
	SegmentsReceived  prometheus.Counter
	SegmentsScheduled prometheus.Counter
	DecodeErrors      prometheus.Counter
	Interrupts        prometheus.Counter
	ScheduledAhead    prometheus.Gauge

	// Session metrics
	ToolCalls       *prometheus.CounterVec
	SessionState    prometheus.Gauge
	TranscriptLines prometheus.Counter
}

// New creates and registers all metrics on the given registerer. A nil
// registerer uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "crisisline_frames_captured_total",
			Help: "Total number of microphone frames captured",
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "crisisline_frames_sent_total",
			Help: "Total number of microphone frames sent to the gateway",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "crisisline_frames_dropped_total",
			Help: "Total number of microphone frames dropped due to backpressure",
		}),
		SegmentsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "crisisline_segments_received_total",
			Help: "Total number of agent audio segments received",
		}),
		SegmentsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "crisisline_segments_scheduled_total",
			Help: "Total number of agent audio segments scheduled for playback",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "crisisline_decode_errors_total",
			Help: "Total number of agent audio segments that failed to decode",
		}),
		Interrupts: factory.NewCounter(prometheus.CounterOpts{
			Name: "crisisline_interrupts_total",
			Help: "Total number of barge-in interruptions handled",
		}),
		ScheduledAhead: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crisisline_scheduled_ahead_seconds",
			Help: "Seconds of agent audio scheduled ahead of the device clock",
		}),
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crisisline_tool_calls_total",
			Help: "Total number of tool calls handled",
		}, []string{"name"}),
		SessionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crisisline_session_state",
			Help: "Current session state (0=idle 1=connecting 2=listening 3=speaking)",
		}),
		TranscriptLines: factory.NewCounter(prometheus.CounterOpts{
			Name: "crisisline_transcript_lines_total",
			Help: "Total number of finalized transcript lines",
		}),
	}
}

// RecordFrameCaptured increments the frames captured counter.
func (m *Metrics) RecordFrameCaptured() {
	m.FramesCaptured.Inc()
}

// RecordFrameSent increments the frames sent counter.
func (m *Metrics) RecordFrameSent() {
	m.FramesSent.Inc()
}

// RecordFrameDropped increments the frames dropped counter.
func (m *Metrics) RecordFrameDropped() {
	m.FramesDropped.Inc()
}

// RecordSegmentReceived increments the segments received counter.
func (m *Metrics) RecordSegmentReceived() {
	m.SegmentsReceived.Inc()
}

// RecordSegmentScheduled records a scheduled segment and the current
// lookahead.
func (m *Metrics) RecordSegmentScheduled(aheadSeconds float64) {
	m.SegmentsScheduled.Inc()
	m.ScheduledAhead.Set(aheadSeconds)
}

// RecordDecodeError increments the decode errors counter.
func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

// RecordInterrupt increments the interrupts counter and zeroes the
// lookahead gauge.
func (m *Metrics) RecordInterrupt() {
	m.Interrupts.Inc()
	m.ScheduledAhead.Set(0)
}

// RecordToolCall increments the tool call counter for the named tool.
func (m *Metrics) RecordToolCall(name string) {
	m.ToolCalls.WithLabelValues(name).Inc()
}

// SetSessionState sets the session state gauge.
func (m *Metrics) SetSessionState(state int) {
	m.SessionState.Set(float64(state))
}

// RecordTranscriptLine increments the transcript lines counter.
func (m *Metrics) RecordTranscriptLine() {
	m.TranscriptLines.Inc()
}
