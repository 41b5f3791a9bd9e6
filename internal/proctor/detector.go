package proctor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type FaceBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection is one face-detection result. ConsecutiveCount and
// Violation come from the service and are advisory only; the monitor
// computes its own run length and trusts that instead.
type Detection struct {
	FaceCount        int       `json:"face_count"`
	ConsecutiveCount int       `json:"consecutive_count"`
	Violation        bool      `json:"violation"`
	Reason           string    `json:"reason,omitempty"`
	Faces            []FaceBox `json:"faces"`
}

type Detector interface {
	Detect(ctx context.Context, frame []byte) (Detection, error)
}

// HTTPDetector submits JPEG frames to the face-detection collaborator.
type HTTPDetector struct {
	url    string
	client *http.Client
}

func NewHTTPDetector(url string) *HTTPDetector {
	return &HTTPDetector{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *HTTPDetector) Detect(ctx context.Context, frame []byte) (Detection, error) {
	payload := struct {
		Image string `json:"image"`
	}{
		Image: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Detection{}, fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return Detection{}, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Detection{}, fmt.Errorf("face detection call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Detection{}, fmt.Errorf("face detection returned %d", resp.StatusCode)
	}

	var det Detection
	if err := json.NewDecoder(resp.Body).Decode(&det); err != nil {
		return Detection{}, fmt.Errorf("decode detection: %w", err)
	}
	return det, nil
}
