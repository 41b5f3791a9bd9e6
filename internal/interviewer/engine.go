package interviewer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ai-interviewer/internal/interview"
	"ai-interviewer/internal/llm"
	"ai-interviewer/internal/protocol"
)

const skipMarker = "(The candidate chose to skip this question without answering.)"

// Engine is the in-process question-and-scoring collaborator: it
// implements the interview protocol directly over an LLM instead of
// proxying to a remote deployment.
type Engine struct {
	llm   llm.Client
	total int

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

type sessionState struct {
	params        interview.Params
	messages      []llm.Message
	questionCount int
}

func New(client llm.Client, totalQuestions int) *Engine {
	if totalQuestions <= 0 {
		totalQuestions = 5
	}
	return &Engine{
		llm:      client,
		total:    totalQuestions,
		sessions: make(map[string]*sessionState),
	}
}

func (e *Engine) StartSession(ctx context.Context, params interview.Params) (protocol.Started, error) {
	if strings.TrimSpace(params.Resume) == "" {
		return protocol.Started{}, &protocol.SessionStartError{Err: fmt.Errorf("resume content is empty")}
	}

	st := &sessionState{
		params: params,
		messages: []llm.Message{
			{Role: "system", Content: systemPrompt(params.Company, params.Role, params.Type, params.Difficulty, params.Resume)},
			{Role: "user", Content: firstQuestionPrompt(params.Type)},
		},
	}

	resp, err := e.llm.Generate(ctx, st.messages)
	if err != nil {
		return protocol.Started{}, &protocol.SessionStartError{Err: fmt.Errorf("failed to generate first question: %w", err)}
	}

	st.messages = append(st.messages, llm.Message{Role: "assistant", Content: resp.Content})
	st.questionCount = 1

	id := uuid.New().String()
	e.mu.Lock()
	e.sessions[id] = st
	e.mu.Unlock()

	log.Printf("🎤 Started interview session %s: %s %s at %s", id, params.Type, params.Role, params.Company)

	return protocol.Started{
		SessionID:     id,
		FirstQuestion: interview.Question{Text: resp.Content, Category: category(params.Type)},
		QuestionLabel: e.label(params.Type, 1),
	}, nil
}

func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, text string) (interview.Turn, error) {
	return e.advance(ctx, sessionID, text)
}

func (e *Engine) SkipQuestion(ctx context.Context, sessionID string) (interview.Turn, error) {
	return e.advance(ctx, sessionID, skipMarker)
}

func (e *Engine) advance(ctx context.Context, sessionID, answer string) (interview.Turn, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return interview.Turn{}, &protocol.TurnError{Err: err}
	}

	e.mu.Lock()
	st.messages = append(st.messages, llm.Message{Role: "user", Content: answer})
	done := st.questionCount >= e.total
	msgs := append([]llm.Message(nil), st.messages...)
	e.mu.Unlock()

	if done {
		summary, err := e.generateSummary(ctx, msgs)
		if err != nil {
			return interview.Turn{}, &protocol.TurnError{Err: err}
		}
		return interview.Turn{Completed: true, Summary: &summary}, nil
	}

	msgs = append(msgs, llm.Message{Role: "system", Content: followUpPrompt})
	resp, err := e.llm.Generate(ctx, msgs)
	if err != nil {
		return interview.Turn{}, &protocol.TurnError{Err: fmt.Errorf("failed to generate next question: %w", err)}
	}

	e.mu.Lock()
	st.messages = append(st.messages, llm.Message{Role: "assistant", Content: resp.Content})
	st.questionCount++
	count := st.questionCount
	interviewType := st.params.Type
	e.mu.Unlock()

	return interview.Turn{
		Completed:     false,
		NextQuestion:  resp.Content,
		QuestionLabel: e.label(interviewType, count),
	}, nil
}

// FetchSummary scores whatever partial progress exists. Used during
// forced termination.
func (e *Engine) FetchSummary(ctx context.Context, sessionID string) (interview.Summary, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return interview.Summary{}, &protocol.SummaryFetchError{Err: err}
	}

	e.mu.RLock()
	msgs := append([]llm.Message(nil), st.messages...)
	e.mu.RUnlock()

	summary, err := e.generateSummary(ctx, msgs)
	if err != nil {
		return interview.Summary{}, &protocol.SummaryFetchError{Err: err}
	}
	return summary, nil
}

// Release drops the per-session state once the owning controller has
// handed the result off.
func (e *Engine) Release(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, sessionID)
}

func (e *Engine) ActiveSessions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

// QuestionCount reports interview progress for the status endpoint.
func (e *Engine) QuestionCount(sessionID string) (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.sessions[sessionID]
	if !ok {
		return 0, false
	}
	return st.questionCount, true
}

func (e *Engine) state(sessionID string) (*sessionState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("invalid or expired session: %s", sessionID)
	}
	return st, nil
}

func (e *Engine) generateSummary(ctx context.Context, msgs []llm.Message) (interview.Summary, error) {
	msgs = append(msgs, llm.Message{Role: "system", Content: summaryPrompt})
	resp, err := e.llm.Generate(ctx, msgs)
	if err != nil {
		return interview.Summary{}, fmt.Errorf("failed to generate summary: %w", err)
	}
	return parseSummary(resp.Content), nil
}

// parseSummary extracts the JSON verdict from the LLM response, which
// may be wrapped in prose or a markdown block. A response with no
// parseable JSON degrades to free-text feedback rather than failing.
func parseSummary(content string) interview.Summary {
	jsonStart := strings.Index(content, "{")
	jsonEnd := strings.LastIndex(content, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return interview.Summary{Feedback: strings.TrimSpace(content)}
	}

	var summary interview.Summary
	if err := json.Unmarshal([]byte(content[jsonStart:jsonEnd+1]), &summary); err != nil {
		return interview.Summary{Feedback: strings.TrimSpace(content)}
	}
	return summary
}

func category(interviewType string) string {
	if strings.EqualFold(interviewType, "hr") {
		return "behavioral"
	}
	return "technical"
}

func (e *Engine) label(interviewType string, n int) string {
	return fmt.Sprintf("%s Question %d/%d", category(interviewType), n, e.total)
}
