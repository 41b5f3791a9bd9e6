package proctor

import (
	"sync"
	"time"
)

// FrameSource hands the monitor the most recent camera frame. Take
// consumes the frame so a stalled camera is visible as an empty read
// rather than the same frame being re-submitted forever.
type FrameSource interface {
	Take() ([]byte, bool)
	LastSeen() time.Time
}

// PushSource buffers the latest frame pushed by the shell over the
// session's proctor socket. Only the newest frame is kept; the monitor
// samples on its own cadence.
type PushSource struct {
	mu       sync.Mutex
	frame    []byte
	fresh    bool
	lastSeen time.Time
}

func NewPushSource() *PushSource {
	return &PushSource{}
}

func (s *PushSource) Push(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
	s.fresh = true
	s.lastSeen = time.Now()
}

func (s *PushSource) Take() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return nil, false
	}
	s.fresh = false
	return s.frame, true
}

func (s *PushSource) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
