package store

import (
	"context"
	"errors"
	"time"

	"ai-interviewer/internal/interview"
)

var ErrNotFound = errors.New("session record not found")

// Record is the queryable snapshot of one interview attempt: live
// status while the session runs, plus the delivered result once the
// handoff happened.
type Record struct {
	SessionID     string                    `json:"session_id"`
	Company       string                    `json:"company"`
	Role          string                    `json:"role"`
	Type          string                    `json:"type"`
	State         string                    `json:"state"`
	QuestionLabel string                    `json:"question_label,omitempty"`
	UpdatedAt     time.Time                 `json:"updated_at"`
	Result        *interview.HandoffPayload `json:"result,omitempty"`
}

// Store persists session records. Implementations must be safe for
// concurrent use.
type Store interface {
	SaveStatus(ctx context.Context, rec Record) error
	SaveResult(ctx context.Context, sessionID string, payload interview.HandoffPayload) error
	Get(ctx context.Context, sessionID string) (*Record, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
