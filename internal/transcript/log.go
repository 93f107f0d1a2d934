// ABOUTME: Append-only conversation transcript with crisis stage tracking
// ABOUTME: Records speech, shared links, and stage classifications for export
package transcript

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Kind labels one transcript entry.
type Kind int

const (
	KindUserSpeech Kind = iota
	KindAgentSpeech
	KindSharedLink
	KindStage
)

func (k Kind) String() string {
	switch k {
	case KindUserSpeech:
		return "user"
	case KindAgentSpeech:
		return "agent"
	case KindSharedLink:
		return "link"
	case KindStage:
		return "stage"
	default:
		return "unknown"
	}
}

// Entry is one finalized transcript line.
type Entry struct {
	Time time.Time
	Kind Kind
	Text string
}

// Log accumulates the conversation record. Entries are append-only; the
// crisis stage is last-writer-wins.
type Log struct {
	mu          sync.Mutex
	entries     []Entry
	stage       string
	stageReason string
	now         func() time.Time
}

// New creates an empty transcript log.
func New() *Log {
	return &Log{now: time.Now}
}

// AddSpeech records one finalized utterance for the given role ("user"
// or "agent").
func (l *Log) AddSpeech(role, text string) {
	if text == "" {
		return
	}
	kind := KindAgentSpeech
	if role == "user" {
		kind = KindUserSpeech
	}
	l.append(Entry{Kind: kind, Text: text})
}

// AddLink records a link the agent shared.
func (l *Log) AddLink(title, url string) {
	l.append(Entry{Kind: KindSharedLink, Text: fmt.Sprintf("%s <%s>", title, url)})
}

// SetStage records a crisis stage classification. Later classifications
// replace earlier ones, but every change stays in the entry list.
func (l *Log) SetStage(stage, reasoning string) {
	l.mu.Lock()
	l.stage = stage
	l.stageReason = reasoning
	l.entries = append(l.entries, Entry{
		Time: l.now(),
		Kind: KindStage,
		Text: fmt.Sprintf("%s: %s", stage, reasoning),
	})
	l.mu.Unlock()
}

func (l *Log) append(entry Entry) {
	l.mu.Lock()
	entry.Time = l.now()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Stage returns the current classification and its reasoning; ok is
// false before the first classification.
func (l *Log) Stage() (stage, reasoning string, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stage, l.stageReason, l.stage != ""
}

// Entries returns a copy of all entries in order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Export writes the transcript as plain text: a stage header followed by
// one timestamped line per entry.
func (l *Log) Export(w io.Writer) error {
	l.mu.Lock()
	stage := l.stage
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	if stage == "" {
		stage = "Not Determined"
	}
	if _, err := fmt.Fprintf(w, "Crisis stage: %s\n\n", stage); err != nil {
		return err
	}

	for _, entry := range entries {
		_, err := fmt.Fprintf(w, "[%s] %-5s %s\n",
			entry.Time.Format("15:04:05"), entry.Kind, entry.Text)
		if err != nil {
			return err
		}
	}
	return nil
}
