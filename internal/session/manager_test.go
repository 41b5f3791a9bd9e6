package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-interviewer/internal/interview"
	"ai-interviewer/internal/protocol"
)

func newTestManager(client protocol.Client, onRelease func(string)) *Manager {
	return NewManager(ManagerConfig{
		Client:                client,
		Sink:                  &fakeSink{},
		AnswerHandoffDelay:    time.Millisecond,
		SkipHandoffDelay:      time.Millisecond,
		TerminateHandoffDelay: time.Millisecond,
		SummaryTimeout:        time.Second,
		OnRelease:             onRelease,
	})
}

func TestManagerCreateAndGet(t *testing.T) {
	m := newTestManager(&fakeClient{started: defaultStarted()}, nil)

	c, err := m.CreateSession(context.Background(), interview.Params{Company: "Acme", Role: "Dev", Type: "Technical"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if got := m.Get(c.ID()); got != c {
		t.Fatal("Get must return the live controller")
	}
	if m.ActiveSessions() != 1 {
		t.Fatalf("expected 1 live session, got %d", m.ActiveSessions())
	}
	if m.Get("missing") != nil {
		t.Fatal("unknown session id must return nil")
	}
}

func TestManagerCreateFailureRegistersNothing(t *testing.T) {
	m := newTestManager(&fakeClient{startErr: &protocol.SessionStartError{Err: errors.New("down")}}, nil)

	if _, err := m.CreateSession(context.Background(), interview.Params{}); err == nil {
		t.Fatal("expected start error")
	}
	if m.ActiveSessions() != 0 {
		t.Fatalf("failed start must not register a session, got %d", m.ActiveSessions())
	}
}

func TestSweepTerminatesIdleSessions(t *testing.T) {
	m := newTestManager(&fakeClient{started: defaultStarted()}, nil)
	c, err := m.CreateSession(context.Background(), interview.Params{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	terminated, _ := m.Sweep(time.Millisecond, time.Hour)
	if terminated != 1 {
		t.Fatalf("expected 1 terminated session, got %d", terminated)
	}
	if c.State() != StateTerminated {
		t.Fatalf("idle session should be terminated, got %s", c.State())
	}
	// Terminated sessions stay registered until the terminal TTL passes.
	if m.ActiveSessions() != 1 {
		t.Fatalf("terminated session removed too early, %d live", m.ActiveSessions())
	}
}

func TestSweepRemovesOldTerminalSessions(t *testing.T) {
	var mu sync.Mutex
	var released []string
	m := newTestManager(&fakeClient{started: defaultStarted()}, func(id string) {
		mu.Lock()
		released = append(released, id)
		mu.Unlock()
	})
	c, err := m.CreateSession(context.Background(), interview.Params{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	c.Terminate("ended by the candidate")

	time.Sleep(5 * time.Millisecond)
	_, removed := m.Sweep(time.Hour, time.Millisecond)
	if removed != 1 {
		t.Fatalf("expected 1 removed session, got %d", removed)
	}
	if m.ActiveSessions() != 0 {
		t.Fatalf("expected 0 live sessions, got %d", m.ActiveSessions())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(released) != 1 || released[0] != c.ID() {
		t.Fatalf("OnRelease not invoked for swept session: %v", released)
	}
}

func TestSweepLeavesFreshSessionsAlone(t *testing.T) {
	m := newTestManager(&fakeClient{started: defaultStarted()}, nil)
	if _, err := m.CreateSession(context.Background(), interview.Params{}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	terminated, removed := m.Sweep(time.Hour, time.Hour)
	if terminated != 0 || removed != 0 {
		t.Fatalf("fresh session swept: terminated=%d removed=%d", terminated, removed)
	}
}
