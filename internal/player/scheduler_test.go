// ABOUTME: Tests for the playback scheduler
// ABOUTME: Uses a fake device with a manual clock to verify cursor behavior
package player

import (
	"math"
	"testing"

	"github.com/crisisline-ai/crisisline-go/pkg/audio"
)

// fakeDevice records starts against a manually advanced clock.
type fakeDevice struct {
	now     float64
	entries []*fakeHandle
	closed  bool
}

type fakeHandle struct {
	startAt  float64
	duration float64
	done     func()
	stopped  bool
	fired    bool
}

func (h *fakeHandle) Stop() { h.stopped = true }

func (d *fakeDevice) Now() float64 { return d.now }

func (d *fakeDevice) Start(frame audio.Frame, at float64, done func()) (Handle, error) {
	h := &fakeHandle{startAt: at, duration: frame.Duration(), done: done}
	d.entries = append(d.entries, h)
	return h, nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

// Advance moves the clock and fires completion for any segment that has
// finished by the new time.
func (d *fakeDevice) Advance(to float64) {
	d.now = to
	for _, h := range d.entries {
		if !h.stopped && !h.fired && h.startAt+h.duration <= to {
			h.fired = true
			h.done()
		}
	}
}

func segmentOf(seconds float64) audio.Frame {
	n := int(seconds * audio.OutputSampleRate)
	return audio.Frame{
		Planes:     [][]float32{make([]float32, n)},
		SampleRate: audio.OutputSampleRate,
		Channels:   1,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScheduleBackToBack(t *testing.T) {
	device := &fakeDevice{now: 10.0}
	s := NewScheduler(device, nil, nil)

	for _, seconds := range []float64{0.5, 0.3, 0.2} {
		if err := s.Schedule(segmentOf(seconds)); err != nil {
			t.Fatalf("Schedule failed: %v", err)
		}
	}

	wantStarts := []float64{10.0, 10.5, 10.8}
	for i, h := range device.entries {
		if !almostEqual(h.startAt, wantStarts[i]) {
			t.Errorf("segment %d: expected start %.3f, got %.3f", i, wantStarts[i], h.startAt)
		}
	}

	cursor, set := s.Cursor()
	if !set || !almostEqual(cursor, 11.0) {
		t.Errorf("expected cursor 11.0 set, got %.3f (set=%v)", cursor, set)
	}
	if s.Mode() != ModePlaying {
		t.Errorf("expected playing mode, got %s", s.Mode())
	}
	if s.Live() != 3 {
		t.Errorf("expected 3 live segments, got %d", s.Live())
	}
}

func TestScheduleAfterCursorFallsBehind(t *testing.T) {
	device := &fakeDevice{now: 10.0}
	s := NewScheduler(device, nil, nil)

	s.Schedule(segmentOf(0.5))
	device.Advance(11.2) // well past the cursor at 10.5

	s.Schedule(segmentOf(0.3))
	if got := device.entries[1].startAt; !almostEqual(got, 11.2) {
		t.Errorf("expected start at device clock 11.2, got %.3f", got)
	}
	cursor, _ := s.Cursor()
	if !almostEqual(cursor, 11.5) {
		t.Errorf("expected cursor 11.5, got %.3f", cursor)
	}
}

func TestNaturalCompletionGoesIdle(t *testing.T) {
	device := &fakeDevice{now: 0}
	s := NewScheduler(device, nil, nil)

	idleCalls := 0
	s.SetOnIdle(func() { idleCalls++ })

	s.Schedule(segmentOf(0.5))
	s.Schedule(segmentOf(0.5))

	device.Advance(0.5)
	if s.Mode() != ModePlaying {
		t.Error("expected playing while second segment remains")
	}
	if idleCalls != 0 {
		t.Errorf("idle fired early: %d", idleCalls)
	}

	device.Advance(1.0)
	if s.Mode() != ModeIdle {
		t.Error("expected idle after all segments complete")
	}
	if idleCalls != 1 {
		t.Errorf("expected exactly one idle callback, got %d", idleCalls)
	}
	if s.Live() != 0 {
		t.Errorf("expected no live segments, got %d", s.Live())
	}

	stats := s.Stats()
	if stats.Scheduled != 2 || stats.Completed != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestInterruptStopsEverything(t *testing.T) {
	device := &fakeDevice{now: 10.0}
	s := NewScheduler(device, nil, nil)

	s.Schedule(segmentOf(0.5))
	s.Schedule(segmentOf(0.5))
	s.Interrupt()

	for i, h := range device.entries {
		if !h.stopped {
			t.Errorf("segment %d not stopped", i)
		}
	}
	if _, set := s.Cursor(); set {
		t.Error("expected cursor unset after interrupt")
	}
	if s.Mode() != ModeIdle {
		t.Errorf("expected idle after interrupt, got %s", s.Mode())
	}
	if s.Live() != 0 {
		t.Errorf("expected no live segments, got %d", s.Live())
	}

	// Playback resumes fresh at the device clock.
	device.now = 11.2
	s.Schedule(segmentOf(0.3))
	if got := device.entries[2].startAt; !almostEqual(got, 11.2) {
		t.Errorf("expected restart at 11.2, got %.3f", got)
	}
}

func TestInterruptToleratesFinishedSegments(t *testing.T) {
	device := &fakeDevice{now: 0}
	s := NewScheduler(device, nil, nil)

	s.Schedule(segmentOf(0.2))
	s.Schedule(segmentOf(0.5))
	device.Advance(0.2) // first segment completes naturally

	s.Interrupt()

	if device.entries[0].stopped {
		t.Error("completed segment should not be re-stopped")
	}
	if !device.entries[1].stopped {
		t.Error("live segment should be stopped")
	}

	stats := s.Stats()
	if stats.Completed != 1 || stats.Interrupted != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestInterruptWhenIdle(t *testing.T) {
	device := &fakeDevice{now: 0}
	s := NewScheduler(device, nil, nil)

	// No segments scheduled; interrupt must be a no-op.
	s.Interrupt()
	if s.Mode() != ModeIdle {
		t.Error("expected idle")
	}
}

func TestLateCompletionAfterInterrupt(t *testing.T) {
	device := &fakeDevice{now: 0}
	s := NewScheduler(device, nil, nil)

	s.Schedule(segmentOf(0.5))
	entry := device.entries[0]
	s.Interrupt()

	// A done callback racing the interrupt must not double-count.
	entry.done()

	stats := s.Stats()
	if stats.Completed != 0 {
		t.Errorf("expected no completions, got %d", stats.Completed)
	}
	if s.Live() != 0 {
		t.Errorf("expected no live segments, got %d", s.Live())
	}
}

func TestScheduleEmptyFrame(t *testing.T) {
	device := &fakeDevice{now: 0}
	s := NewScheduler(device, nil, nil)

	if err := s.Schedule(audio.Frame{SampleRate: audio.OutputSampleRate, Channels: 1}); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(device.entries) != 0 {
		t.Error("empty frame should not reach the device")
	}
	if _, set := s.Cursor(); set {
		t.Error("cursor should stay unset for empty frames")
	}
}

func TestCloseStopsDevice(t *testing.T) {
	device := &fakeDevice{now: 0}
	s := NewScheduler(device, nil, nil)

	s.Schedule(segmentOf(0.5))
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !device.closed {
		t.Error("expected device closed")
	}
	if !device.entries[0].stopped {
		t.Error("expected live segment stopped on close")
	}
}
