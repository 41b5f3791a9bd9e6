package protocol

import (
	"context"
	"fmt"

	"ai-interviewer/internal/interview"
)

// Started is the result of opening a new interview session with the
// question-and-scoring collaborator.
type Started struct {
	SessionID     string
	FirstQuestion interview.Question
	QuestionLabel string
}

// Client is a typed wrapper over the question-and-scoring collaborator.
// It has no local side effects; errors are surfaced to the caller,
// never swallowed here.
type Client interface {
	StartSession(ctx context.Context, params interview.Params) (Started, error)
	SubmitAnswer(ctx context.Context, sessionID, text string) (interview.Turn, error)
	SkipQuestion(ctx context.Context, sessionID string) (interview.Turn, error)
	FetchSummary(ctx context.Context, sessionID string) (interview.Summary, error)
}

// SessionStartError is fatal to session creation: the caller must
// abort and may not retry automatically.
type SessionStartError struct {
	Err error
}

func (e *SessionStartError) Error() string { return fmt.Sprintf("session start failed: %v", e.Err) }
func (e *SessionStartError) Unwrap() error { return e.Err }

// TurnError means a submit or skip call failed; the session stays in
// its current state and the same turn may be retried.
type TurnError struct {
	Err error
}

func (e *TurnError) Error() string { return fmt.Sprintf("turn failed: %v", e.Err) }
func (e *TurnError) Unwrap() error { return e.Err }

// SummaryFetchError is best-effort only: termination proceeds with no
// summary rather than blocking on it.
type SummaryFetchError struct {
	Err error
}

func (e *SummaryFetchError) Error() string { return fmt.Sprintf("summary fetch failed: %v", e.Err) }
func (e *SummaryFetchError) Unwrap() error { return e.Err }
