package session

import (
	"context"
	"log"
	"sync"
	"time"

	"ai-interviewer/internal/interview"
	"ai-interviewer/internal/protocol"
)

type ManagerConfig struct {
	Client protocol.Client
	Sink   HandoffSink

	AnswerHandoffDelay    time.Duration
	SkipHandoffDelay      time.Duration
	TerminateHandoffDelay time.Duration
	SummaryTimeout        time.Duration

	// OnUpdate is invoked on every observable change of any session.
	OnUpdate func(c *Controller)
	// OnRelease is invoked when a finished session is swept out, so
	// collaborator-side state can be dropped too.
	OnRelease func(sessionID string)
}

// Manager owns the live sessions, keyed by the collaborator-issued
// session identifier.
type Manager struct {
	cfg ManagerConfig

	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Controller),
	}
}

// CreateSession starts a new interview attempt. On a start failure no
// session materializes and the intake error is returned to the caller.
func (m *Manager) CreateSession(ctx context.Context, params interview.Params) (*Controller, error) {
	c := NewController(params, Config{
		Client:                m.cfg.Client,
		Sink:                  m.cfg.Sink,
		AnswerHandoffDelay:    m.cfg.AnswerHandoffDelay,
		SkipHandoffDelay:      m.cfg.SkipHandoffDelay,
		TerminateHandoffDelay: m.cfg.TerminateHandoffDelay,
		SummaryTimeout:        m.cfg.SummaryTimeout,
	})
	if m.cfg.OnUpdate != nil {
		c.cfg.OnUpdate = func() { m.cfg.OnUpdate(c) }
	}

	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[c.ID()] = c
	count := len(m.sessions)
	m.mu.Unlock()

	log.Printf("🎬 Created interview session %s (%d live)", c.ID(), count)
	return c, nil
}

func (m *Manager) Get(sessionID string) *Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep terminates abandoned live sessions and drops finished ones
// whose handoff delay has long passed. Run periodically by the
// janitor.
func (m *Manager) Sweep(idleTTL, terminalTTL time.Duration) (terminated, removed int) {
	m.mu.RLock()
	controllers := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		controllers = append(controllers, c)
	}
	m.mu.RUnlock()

	for _, c := range controllers {
		if !c.State().Terminal() {
			if c.IdleFor() > idleTTL && c.Terminate("session expired") {
				terminated++
			}
			continue
		}
		if c.TerminalFor() > terminalTTL {
			m.mu.Lock()
			delete(m.sessions, c.ID())
			m.mu.Unlock()
			if m.cfg.OnRelease != nil {
				m.cfg.OnRelease(c.ID())
			}
			removed++
		}
	}

	if terminated > 0 || removed > 0 {
		log.Printf("🧹 Session sweep: %d expired, %d removed", terminated, removed)
	}
	return terminated, removed
}
