// ABOUTME: Cursor-based playback scheduler for agent audio segments
// ABOUTME: Queues segments back to back and cancels everything on barge-in
package player

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/crisisline-ai/crisisline-go/internal/metrics"
	"github.com/crisisline-ai/crisisline-go/pkg/audio"
)

// Mode is the scheduler's playback state.
type Mode int

const (
	ModeIdle Mode = iota
	ModePlaying
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Scheduler lays agent audio segments end to end on the device clock.
// The cursor marks where the next segment begins; it only moves forward
// when a segment is actually scheduled, so a failed start never leaves a
// gap.
type Scheduler struct {
	device  Device
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	cursor    float64
	cursorSet bool
	live      map[*liveEntry]struct{}
	mode      Mode
	onIdle    func()

	stats SchedulerStats
}

// SchedulerStats tracks scheduler activity.
type SchedulerStats struct {
	Scheduled   int64
	Completed   int64
	Interrupted int64
}

type liveEntry struct {
	handle Handle
}

// NewScheduler creates a scheduler over the given device. Metrics may be
// nil.
func NewScheduler(device Device, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		device:  device,
		logger:  logger,
		metrics: m,
		live:    make(map[*liveEntry]struct{}),
	}
}

// SetOnIdle registers a callback invoked whenever the last live segment
// finishes naturally. Must be set before scheduling begins.
func (s *Scheduler) SetOnIdle(fn func()) {
	s.mu.Lock()
	s.onIdle = fn
	s.mu.Unlock()
}

// Schedule queues one segment to start at the cursor, or immediately if
// the cursor is unset or already behind the device clock.
func (s *Scheduler) Schedule(frame audio.Frame) error {
	if frame.Samples() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.device.Now()
	startAt := now
	if s.cursorSet && s.cursor > startAt {
		startAt = s.cursor
	}

	entry := &liveEntry{}
	handle, err := s.device.Start(frame, startAt, func() {
		s.complete(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to start segment: %w", err)
	}
	entry.handle = handle

	s.live[entry] = struct{}{}
	s.cursor = startAt + frame.Duration()
	s.cursorSet = true
	s.mode = ModePlaying
	s.stats.Scheduled++

	if s.metrics != nil {
		s.metrics.RecordSegmentScheduled(s.cursor - now)
	}
	s.logger.Debug("scheduled segment",
		"start_at", startAt, "duration", frame.Duration(), "live", len(s.live))
	return nil
}

// complete handles natural end of one segment.
func (s *Scheduler) complete(entry *liveEntry) {
	s.mu.Lock()
	if _, ok := s.live[entry]; !ok {
		// Already removed by an interrupt racing the done callback.
		s.mu.Unlock()
		return
	}
	delete(s.live, entry)
	s.stats.Completed++

	var idle func()
	if len(s.live) == 0 {
		s.mode = ModeIdle
		idle = s.onIdle
	}
	s.mu.Unlock()

	if idle != nil {
		idle()
	}
}

// Interrupt stops every live segment and forgets the cursor, so the next
// segment starts fresh at the device clock. Segments that already
// finished are tolerated.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	stopped := make([]*liveEntry, 0, len(s.live))
	for entry := range s.live {
		stopped = append(stopped, entry)
	}
	s.live = make(map[*liveEntry]struct{})
	s.stats.Interrupted += int64(len(stopped))
	s.cursorSet = false
	s.cursor = 0
	s.mode = ModeIdle
	s.mu.Unlock()

	for _, entry := range stopped {
		entry.handle.Stop()
	}

	if s.metrics != nil {
		s.metrics.RecordInterrupt()
	}
	if len(stopped) > 0 {
		s.logger.Info("playback interrupted", "cancelled", len(stopped))
	}
}

// Mode returns the current playback state.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Cursor returns the next start time and whether one is set.
func (s *Scheduler) Cursor() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, s.cursorSet
}

// Live returns the number of segments currently scheduled or playing.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Stats returns a copy of the scheduler counters.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close interrupts playback and closes the device.
func (s *Scheduler) Close() error {
	s.Interrupt()
	return s.device.Close()
}
