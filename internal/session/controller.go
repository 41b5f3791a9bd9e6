package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ai-interviewer/internal/interview"
	"ai-interviewer/internal/protocol"
)

type State string

const (
	StateStarting         State = "starting"
	StateAwaitingAnswer   State = "awaiting_answer"
	StateAwaitingNextTurn State = "awaiting_next_turn"
	StateCompleted        State = "completed"
	StateTerminated       State = "terminated"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTerminated
}

var (
	ErrNotAwaitingAnswer = errors.New("session is not awaiting an answer")
	ErrAnswerPending     = errors.New("an answer is already being processed")
)

// HandoffSink receives the finished transcript and summary exactly
// once per session. The results view has no write access back.
type HandoffSink interface {
	Deliver(payload interview.HandoffPayload)
}

// Stopper is the monitor's shutdown handle.
type Stopper interface {
	Stop()
}

type Config struct {
	Client protocol.Client
	Sink   HandoffSink

	AnswerHandoffDelay    time.Duration
	SkipHandoffDelay      time.Duration
	TerminateHandoffDelay time.Duration
	// SummaryTimeout bounds the best-effort summary fetch during
	// forced termination.
	SummaryTimeout time.Duration

	// OnUpdate is invoked after every observable state change so the
	// shell can re-render. Never called while internal locks are held.
	OnUpdate func()
}

// Controller owns one interview attempt: lifecycle state, the
// transcript, turn sequencing and termination. Exactly one terminal
// transition happens per session; after it, the only remaining action
// is the single scheduled handoff.
type Controller struct {
	cfg    Config
	params interview.Params

	mu               sync.Mutex
	id               string
	state            State
	label            string
	transcript       *Transcript
	summary          interview.Summary
	reason           string
	deviceNotice     string
	inFlight         bool
	handoffScheduled bool
	monitor          Stopper
	lastActivity     time.Time
	terminalAt       time.Time
}

func NewController(params interview.Params, cfg Config) *Controller {
	if cfg.AnswerHandoffDelay <= 0 {
		cfg.AnswerHandoffDelay = 5 * time.Second
	}
	if cfg.SkipHandoffDelay <= 0 {
		cfg.SkipHandoffDelay = 3 * time.Second
	}
	if cfg.TerminateHandoffDelay <= 0 {
		cfg.TerminateHandoffDelay = 3 * time.Second
	}
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = 15 * time.Second
	}
	return &Controller{
		cfg:          cfg,
		params:       params,
		state:        StateStarting,
		transcript:   NewTranscript(),
		lastActivity: time.Now(),
	}
}

// Start opens the session with the collaborator and seeds the
// transcript with the welcome entry and the first question. On failure
// the session never materializes and no transcript is produced.
func (c *Controller) Start(ctx context.Context) error {
	started, err := c.cfg.Client.StartSession(ctx, c.params)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.id = started.SessionID
	greeting := fmt.Sprintf(
		"Hello! I'm your AI interviewer for the %s interview at %s for the %s position. I've reviewed your resume. Let's begin! Please introduce yourself.",
		c.params.Type, c.params.Company, c.params.Role)
	c.transcript.Append(interview.SpeakerInterviewer, greeting, interview.AnnotationQuestionMeta)
	c.transcript.Append(interview.SpeakerInterviewer, started.FirstQuestion.Text, interview.AnnotationNone)
	c.label = started.QuestionLabel
	if c.label == "" {
		c.label = started.FirstQuestion.Category + " Question 1"
	}
	c.state = StateAwaitingAnswer
	c.touch()
	c.mu.Unlock()

	c.notify()
	return nil
}

// AttachMonitor gives the controller the integrity monitor's shutdown
// handle; the camera must stop on every exit path.
func (c *Controller) AttachMonitor(m Stopper) {
	c.mu.Lock()
	c.monitor = m
	c.mu.Unlock()
}

// SubmitAnswer drives one turn. The candidate entry is appended before
// the network call; the resulting question or summary is appended when
// the call resolves, unless termination happened in between.
func (c *Controller) SubmitAnswer(ctx context.Context, text string) error {
	if err := c.beginTurn(interview.SpeakerCandidate, text, interview.AnnotationNone); err != nil {
		return err
	}

	turn, err := c.cfg.Client.SubmitAnswer(ctx, c.ID(), text)
	return c.finishTurn(turn, err, c.cfg.AnswerHandoffDelay)
}

// Skip records a non-answer for the current question.
func (c *Controller) Skip(ctx context.Context) error {
	if err := c.beginTurn(interview.SpeakerCandidate, "(question skipped)", interview.AnnotationSkip); err != nil {
		return err
	}

	turn, err := c.cfg.Client.SkipQuestion(ctx, c.ID())
	return c.finishTurn(turn, err, c.cfg.SkipHandoffDelay)
}

func (c *Controller) beginTurn(speaker interview.Speaker, text string, annotation interview.Annotation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingAnswer {
		return ErrNotAwaitingAnswer
	}
	if c.inFlight {
		return ErrAnswerPending
	}
	c.transcript.Append(speaker, text, annotation)
	c.inFlight = true
	c.touch()
	return nil
}

func (c *Controller) finishTurn(turn interview.Turn, err error, completionDelay time.Duration) error {
	c.mu.Lock()
	c.inFlight = false

	// A violation or explicit end may have raced the network call;
	// a late-arriving turn result must never be applied afterwards.
	if c.state.Terminal() {
		c.mu.Unlock()
		log.Printf("⏭️ discarding turn result for session %s: terminal state reached while call was in flight", c.id)
		c.notify()
		return nil
	}

	if err != nil {
		// The chat stays usable; the candidate may retry the turn.
		c.touch()
		c.mu.Unlock()
		log.Printf("⚠️ turn failed for session %s: %v", c.id, err)
		c.notify()
		return err
	}

	c.state = StateAwaitingNextTurn
	if turn.Completed {
		summaryText := "Thank you for your time. The interview is now complete. We will get back to you soon."
		c.transcript.Append(interview.SpeakerInterviewer, summaryText, interview.AnnotationSummary)
		if turn.Summary != nil {
			c.summary = *turn.Summary
		}
		c.enterTerminalLocked(StateCompleted, "")
		c.scheduleHandoffLocked(completionDelay, false)
		c.mu.Unlock()
		c.releaseMonitor()
		c.notify()
		return nil
	}

	c.transcript.Append(interview.SpeakerInterviewer, turn.NextQuestion, interview.AnnotationNone)
	if turn.QuestionLabel != "" {
		c.label = turn.QuestionLabel
	}
	c.state = StateAwaitingAnswer
	c.touch()
	c.mu.Unlock()
	c.notify()
	return nil
}

// Terminate forces the session into the Terminated state. Idempotent:
// only the first trigger among concurrent candidates takes effect.
// Safe to call from the violation callback, a guard event, the
// candidate's explicit end or the janitor.
func (c *Controller) Terminate(reason string) bool {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return false
	}
	// Claim the terminal transition before the (slow) summary fetch so
	// concurrent triggers and late turn results bounce off.
	c.state = StateTerminated
	c.reason = reason
	id := c.id
	c.mu.Unlock()

	log.Printf("🛑 Terminating session %s: %s", id, reason)
	c.releaseMonitor()

	// Best effort only: a failed fetch means "no summary available",
	// never a blocked termination.
	var summary interview.Summary
	if id != "" {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SummaryTimeout)
		defer cancel()
		s, err := c.cfg.Client.FetchSummary(ctx, id)
		if err != nil {
			log.Printf("⚠️ best-effort summary fetch failed for session %s: %v", id, err)
		} else {
			summary = s
		}
	}

	c.mu.Lock()
	c.summary = summary
	c.transcript.Append(interview.SpeakerInterviewer,
		fmt.Sprintf("The interview has been terminated: %s.", reason),
		interview.AnnotationTermination)
	c.enterTerminalLocked(StateTerminated, reason)
	c.scheduleHandoffLocked(c.cfg.TerminateHandoffDelay, true)
	c.mu.Unlock()

	c.notify()
	return true
}

// NoteDeviceIssue records a degraded camera condition. Deliberately
// distinct from a violation: the session keeps running and the shell
// is expected to surface the notice to the candidate.
func (c *Controller) NoteDeviceIssue(err error) {
	c.mu.Lock()
	c.deviceNotice = err.Error()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) enterTerminalLocked(state State, reason string) {
	c.state = state
	c.reason = reason
	c.terminalAt = time.Now()
	c.transcript.Freeze()
}

func (c *Controller) scheduleHandoffLocked(delay time.Duration, terminated bool) {
	if c.handoffScheduled {
		return
	}
	c.handoffScheduled = true

	payload := interview.HandoffPayload{
		SessionID:  c.id,
		Params:     c.params,
		Transcript: c.transcript.Entries(),
		Summary:    c.summary,
		Terminated: terminated,
		Reason:     c.reason,
	}
	time.AfterFunc(delay, func() {
		c.cfg.Sink.Deliver(payload)
	})
}

func (c *Controller) releaseMonitor() {
	c.mu.Lock()
	m := c.monitor
	c.mu.Unlock()
	if m != nil {
		m.Stop()
	}
}

func (c *Controller) notify() {
	if c.cfg.OnUpdate != nil {
		c.cfg.OnUpdate()
	}
}

func (c *Controller) touch() {
	c.lastActivity = time.Now()
}

func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Params() interview.Params { return c.params }

// IdleFor reports time since the last candidate activity, for the
// janitor's abandoned-session sweep.
func (c *Controller) IdleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}

// TerminalFor reports how long ago the session ended, or zero while
// it is still live.
func (c *Controller) TerminalFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminalAt.IsZero() {
		return 0
	}
	return time.Since(c.terminalAt)
}

// Snapshot is a point-in-time view for the status endpoint and the
// proctor socket.
type Snapshot struct {
	SessionID     string                      `json:"session_id"`
	Params        interview.Params            `json:"params"`
	State         State                       `json:"state"`
	QuestionLabel string                      `json:"question_label"`
	Transcript    []interview.TranscriptEntry `json:"transcript"`
	DeviceNotice  string                      `json:"device_notice,omitempty"`
	InFlight      bool                        `json:"answer_pending"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		SessionID:     c.id,
		Params:        c.params,
		State:         c.state,
		QuestionLabel: c.label,
		Transcript:    c.transcript.Entries(),
		DeviceNotice:  c.deviceNotice,
		InFlight:      c.inFlight,
	}
}
