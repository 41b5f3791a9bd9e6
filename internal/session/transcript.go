package session

import (
	"sync"
	"time"

	"ai-interviewer/internal/interview"
)

// Transcript is the append-only interview record. Ordinals are
// assigned on append and are strictly increasing and gapless; once
// frozen no further entries are accepted.
type Transcript struct {
	mu      sync.RWMutex
	entries []interview.TranscriptEntry
	frozen  bool
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records one entry and returns it. Returns false if the
// transcript is frozen.
func (t *Transcript) Append(speaker interview.Speaker, text string, annotation interview.Annotation) (interview.TranscriptEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return interview.TranscriptEntry{}, false
	}
	entry := interview.TranscriptEntry{
		Ordinal:    len(t.entries) + 1,
		Speaker:    speaker,
		Text:       text,
		Timestamp:  time.Now(),
		Annotation: annotation,
	}
	t.entries = append(t.entries, entry)
	return entry, true
}

// Freeze makes the transcript immutable.
func (t *Transcript) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

func (t *Transcript) Entries() []interview.TranscriptEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]interview.TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
