package storage

import (
	"time"

	"ai-interviewer/internal/interview"
)

// ResultEvent is one delivered interview handoff. Events are expected
// to be appended in chronological order.
type ResultEvent struct {
	Timestamp time.Time                `json:"timestamp"`
	Payload   interview.HandoffPayload `json:"payload"`
}

// Recorder abstracts persistence of handoff events.
// Implementations can be file-based, database, etc.
// LoadResults should return events in chronological order.
// AppendResult should atomically append a new event.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendResult(event ResultEvent) error
	LoadResults() ([]ResultEvent, error)
}
