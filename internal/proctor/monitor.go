package proctor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	DefaultSampleInterval     = 100 * time.Millisecond
	DefaultViolationThreshold = 5
	DefaultDeviceTimeout      = 5 * time.Second
)

// DeviceUnavailableError reports that the camera produced no frames
// for longer than the device timeout. It is a degraded condition, not
// a violation, and never terminates the session by itself.
type DeviceUnavailableError struct {
	Since time.Duration
}

func (e *DeviceUnavailableError) Error() string {
	return fmt.Sprintf("no camera frames for %s", e.Since.Round(time.Second))
}

type Config struct {
	Source    FrameSource
	Detector  Detector
	Interval  time.Duration
	Threshold int
	// DeviceTimeout bounds how long the monitor waits for a frame
	// before reporting the camera as unavailable.
	DeviceTimeout time.Duration

	// OnViolation fires exactly once, after the sampling loop has
	// stopped.
	OnViolation func()
	// OnDegraded fires at most once when the camera goes silent.
	OnDegraded func(err error)
	// OnSample receives every classified sample for live feedback.
	OnSample func(det Detection, consecutive int)
}

// Monitor decides, from a noisy stream of per-frame face counts,
// whether a sustained integrity violation occurred. A sample is
// violating iff the face count differs from one; the threshold applies
// to consecutive violating samples only.
type Monitor struct {
	cfg Config

	mu          sync.Mutex
	consecutive int
	triggered   bool
	degraded    bool
	started     time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	stopped bool
}

func NewMonitor(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSampleInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultViolationThreshold
	}
	if cfg.DeviceTimeout <= 0 {
		cfg.DeviceTimeout = DefaultDeviceTimeout
	}
	return &Monitor{cfg: cfg, done: make(chan struct{})}
}

// Start launches the sampling loop. The loop stops when the violation
// latches, when Stop is called, or when ctx is cancelled, whichever
// comes first. A monitor that was already stopped never launches; the
// session may be terminated between handing the monitor to its owner
// and starting it.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.stopped || m.running {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancel = cancel
	m.running = true
	m.started = time.Now()
	m.mu.Unlock()

	go m.loop(ctx)
}

// Stop cancels the sampling loop and waits for it to exit. Safe to
// call from any goroutine, any number of times, including from the
// violation callback itself or before Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopped = true
	cancel := m.cancel
	running := m.running
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if running {
		<-m.done
	}
}

// Status reports the current run length and whether the latch fired.
func (m *Monitor) Status() (consecutive int, triggered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutive, m.triggered
}

func (m *Monitor) loop(ctx context.Context) {
	latched := m.run(ctx)
	// The callback fires only after the loop has fully stopped, so it
	// may call Stop (directly or through session termination) without
	// deadlocking, and no sample can follow it.
	if latched && m.cfg.OnViolation != nil {
		m.cfg.OnViolation()
	}
}

func (m *Monitor) run(ctx context.Context) bool {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if m.sample(ctx) {
				return true
			}
		}
	}
}

// sample runs one capture/classify cycle. Returns true when the
// violation latched and the loop must stop.
func (m *Monitor) sample(ctx context.Context) bool {
	frame, ok := m.cfg.Source.Take()
	if !ok {
		m.checkDevice()
		return false
	}

	det, err := m.cfg.Detector.Detect(ctx, frame)
	if err != nil {
		// Transient detection failures are clean samples so a network
		// hiccup never falsely terminates a session.
		log.Printf("⚠️ face detection failed, counting as clean sample: %v", err)
		m.mu.Lock()
		m.consecutive = 0
		m.mu.Unlock()
		return false
	}

	violating := det.FaceCount != 1

	m.mu.Lock()
	if m.triggered {
		m.mu.Unlock()
		return true
	}
	if violating {
		m.consecutive++
	} else {
		m.consecutive = 0
	}
	consecutive := m.consecutive
	latch := consecutive >= m.cfg.Threshold
	if latch {
		m.triggered = true
	}
	m.mu.Unlock()

	if m.cfg.OnSample != nil {
		m.cfg.OnSample(det, consecutive)
	}

	if latch {
		log.Printf("🚨 Integrity violation latched after %d consecutive samples (face count %d)", consecutive, det.FaceCount)
	}
	return latch
}

func (m *Monitor) checkDevice() {
	last := m.cfg.Source.LastSeen()

	m.mu.Lock()
	if last.IsZero() {
		last = m.started
	}
	silent := time.Since(last)
	report := silent >= m.cfg.DeviceTimeout && !m.degraded
	if report {
		m.degraded = true
	}
	m.mu.Unlock()

	if report {
		log.Printf("⚠️ camera silent for %s, reporting device unavailable", silent.Round(time.Second))
		if m.cfg.OnDegraded != nil {
			m.cfg.OnDegraded(&DeviceUnavailableError{Since: silent})
		}
	}
}
