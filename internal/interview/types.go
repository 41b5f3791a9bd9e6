package interview

import "time"

// Params is fixed at intake and never mutated afterwards.
type Params struct {
	Company    string `json:"company"`
	Role       string `json:"role"`
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
	Resume     string `json:"resume"`
}

type Question struct {
	Text     string `json:"question"`
	Category string `json:"category"`
}

// Turn is the result of submitting or skipping an answer: either the
// next question or the completion summary, never both.
type Turn struct {
	Completed     bool     `json:"completed"`
	NextQuestion  string   `json:"next_question,omitempty"`
	QuestionLabel string   `json:"question_info,omitempty"`
	Summary       *Summary `json:"summary,omitempty"`
}

// Summary is opaque beyond display: any subset of fields may be absent
// and consumers must fall back to defaults rather than fail.
type Summary struct {
	OverallScore      *float64           `json:"overall_score,omitempty"`
	Rating            string             `json:"rating,omitempty"`
	Feedback          string             `json:"feedback,omitempty"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown,omitempty"`
	Strengths         []string           `json:"strengths,omitempty"`
	Improvements      []string           `json:"improvements,omitempty"`
}

type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

type Annotation string

const (
	AnnotationNone         Annotation = ""
	AnnotationQuestionMeta Annotation = "question_meta"
	AnnotationSkip         Annotation = "skip"
	AnnotationSummary      Annotation = "summary"
	AnnotationTermination  Annotation = "termination"
)

// TranscriptEntry ordering is carried by Ordinal; Timestamp is for
// display only.
type TranscriptEntry struct {
	Ordinal    int        `json:"ordinal"`
	Speaker    Speaker    `json:"speaker"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
	Annotation Annotation `json:"annotation,omitempty"`
}

// HandoffPayload is the immutable record passed to the results view
// exactly once per session.
type HandoffPayload struct {
	SessionID  string            `json:"session_id"`
	Params     Params            `json:"params"`
	Transcript []TranscriptEntry `json:"transcript"`
	Summary    Summary           `json:"summary"`
	Terminated bool              `json:"terminated"`
	Reason     string            `json:"reason,omitempty"`
}
