package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-interviewer/internal/interview"
)

// HTTPClient talks to a remotely deployed question-and-scoring
// service over JSON.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type startRequest struct {
	Company    string `json:"company"`
	Role       string `json:"role"`
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
	Resume     string `json:"resume"`
}

type startResponse struct {
	SessionID     string             `json:"session_id"`
	FirstQuestion interview.Question `json:"first_question"`
	QuestionLabel string             `json:"question_info"`
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer,omitempty"`
}

func (c *HTTPClient) StartSession(ctx context.Context, params interview.Params) (Started, error) {
	var resp startResponse
	err := c.post(ctx, "/api/start-interview", startRequest{
		Company:    params.Company,
		Role:       params.Role,
		Type:       params.Type,
		Difficulty: params.Difficulty,
		Resume:     params.Resume,
	}, &resp)
	if err != nil {
		return Started{}, &SessionStartError{Err: err}
	}
	if resp.SessionID == "" {
		return Started{}, &SessionStartError{Err: fmt.Errorf("service returned no session id")}
	}
	return Started{
		SessionID:     resp.SessionID,
		FirstQuestion: resp.FirstQuestion,
		QuestionLabel: resp.QuestionLabel,
	}, nil
}

func (c *HTTPClient) SubmitAnswer(ctx context.Context, sessionID, text string) (interview.Turn, error) {
	var turn interview.Turn
	if err := c.post(ctx, "/api/chat", turnRequest{SessionID: sessionID, Answer: text}, &turn); err != nil {
		return interview.Turn{}, &TurnError{Err: err}
	}
	return turn, nil
}

func (c *HTTPClient) SkipQuestion(ctx context.Context, sessionID string) (interview.Turn, error) {
	var turn interview.Turn
	if err := c.post(ctx, "/api/skip", turnRequest{SessionID: sessionID}, &turn); err != nil {
		return interview.Turn{}, &TurnError{Err: err}
	}
	return turn, nil
}

func (c *HTTPClient) FetchSummary(ctx context.Context, sessionID string) (interview.Summary, error) {
	var summary interview.Summary
	if err := c.post(ctx, "/api/summary", turnRequest{SessionID: sessionID}, &summary); err != nil {
		return interview.Summary{}, &SummaryFetchError{Err: err}
	}
	return summary, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
