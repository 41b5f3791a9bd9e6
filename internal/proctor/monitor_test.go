package proctor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// liveSource always has a fresh frame, like a healthy camera feed.
type liveSource struct{}

func (liveSource) Take() ([]byte, bool) { return []byte{0xff}, true }
func (liveSource) LastSeen() time.Time  { return time.Now() }

// deadSource never produces a frame.
type deadSource struct{}

func (deadSource) Take() ([]byte, bool) { return nil, false }
func (deadSource) LastSeen() time.Time  { return time.Time{} }

// scriptDetector replays a fixed sequence of face counts, then keeps
// reporting a single face. A negative count simulates a service error.
type scriptDetector struct {
	mu     sync.Mutex
	counts []int
	idx    int
	calls  int
}

func (d *scriptDetector) Detect(ctx context.Context, frame []byte) (Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.idx >= len(d.counts) {
		return Detection{FaceCount: 1}, nil
	}
	c := d.counts[d.idx]
	d.idx++
	if c < 0 {
		return Detection{}, errors.New("face service unreachable")
	}
	return Detection{FaceCount: c}, nil
}

func (d *scriptDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func runMonitor(t *testing.T, detector Detector, source FrameSource, violations *int32) *Monitor {
	t.Helper()
	m := NewMonitor(Config{
		Source:    source,
		Detector:  detector,
		Interval:  time.Millisecond,
		Threshold: 5,
		OnViolation: func() {
			atomic.AddInt32(violations, 1)
		},
	})
	m.Start(context.Background())
	t.Cleanup(m.Stop)
	return m
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestViolationAfterFiveConsecutiveSamples(t *testing.T) {
	var violations int32
	det := &scriptDetector{counts: []int{2, 2, 2, 2, 2}}
	runMonitor(t, det, liveSource{}, &violations)

	if !waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&violations) == 1 }) {
		t.Fatal("violation did not fire after 5 consecutive violating samples")
	}

	// Give the loop ample time to misbehave; the latch must hold.
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&violations); got != 1 {
		t.Fatalf("violation fired %d times, want exactly 1", got)
	}
}

func TestZeroFacesCountsAsViolating(t *testing.T) {
	var violations int32
	det := &scriptDetector{counts: []int{0, 0, 0, 0, 0}}
	runMonitor(t, det, liveSource{}, &violations)

	if !waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&violations) == 1 }) {
		t.Fatal("violation did not fire for zero-face samples")
	}
}

func TestCleanSampleResetsRunLength(t *testing.T) {
	var violations int32
	// Four violating samples, one clean, then five violating: the
	// clean sample resets progress but the fresh run still triggers.
	det := &scriptDetector{counts: []int{2, 2, 2, 2, 1, 2, 2, 2, 2, 2}}
	runMonitor(t, det, liveSource{}, &violations)

	if !waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&violations) == 1 }) {
		t.Fatal("violation did not fire after reset and a fresh run of 5")
	}
}

func TestFourViolatingSamplesDoNotTrigger(t *testing.T) {
	var violations int32
	det := &scriptDetector{counts: []int{2, 2, 2, 2, 1}}
	runMonitor(t, det, liveSource{}, &violations)

	waitFor(t, 50*time.Millisecond, func() bool { return det.callCount() >= 10 })
	if got := atomic.LoadInt32(&violations); got != 0 {
		t.Fatalf("violation fired %d times for a run of only 4", got)
	}
}

func TestDetectorErrorIsACleanSample(t *testing.T) {
	var violations int32
	// A service hiccup in the middle of a streak must not terminate.
	det := &scriptDetector{counts: []int{2, 2, 2, 2, -1, 2, 2, 2, 2}}
	runMonitor(t, det, liveSource{}, &violations)

	waitFor(t, 50*time.Millisecond, func() bool { return det.callCount() >= 12 })
	if got := atomic.LoadInt32(&violations); got != 0 {
		t.Fatalf("violation fired %d times despite reset by service error", got)
	}
}

func TestSamplingStopsAfterLatch(t *testing.T) {
	var violations int32
	det := &scriptDetector{counts: []int{2, 2, 2, 2, 2}}
	runMonitor(t, det, liveSource{}, &violations)

	if !waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&violations) == 1 }) {
		t.Fatal("violation did not fire")
	}
	calls := det.callCount()
	time.Sleep(20 * time.Millisecond)
	if det.callCount() != calls {
		t.Fatalf("detector still being called after latch: %d -> %d", calls, det.callCount())
	}
}

func TestStopFromViolationCallback(t *testing.T) {
	det := &scriptDetector{counts: []int{2, 2, 2, 2, 2}}
	fired := make(chan struct{})

	var m *Monitor
	m = NewMonitor(Config{
		Source:    liveSource{},
		Detector:  det,
		Interval:  time.Millisecond,
		Threshold: 5,
		OnViolation: func() {
			m.Stop()
			close(fired)
		},
	})
	m.Start(context.Background())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("violation callback never ran")
	}
}

func TestStopCancelsSampling(t *testing.T) {
	var violations int32
	det := &scriptDetector{counts: []int{2, 2}}
	m := runMonitor(t, det, liveSource{}, &violations)

	waitFor(t, 50*time.Millisecond, func() bool { return det.callCount() >= 1 })
	m.Stop()
	calls := det.callCount()
	time.Sleep(20 * time.Millisecond)
	if det.callCount() != calls {
		t.Fatal("detector still being called after Stop")
	}
	// Stop must be safe to call again.
	m.Stop()
}

func TestStopBeforeStartPreventsSampling(t *testing.T) {
	det := &scriptDetector{counts: []int{2, 2, 2, 2, 2}}
	m := NewMonitor(Config{
		Source:    liveSource{},
		Detector:  det,
		Interval:  time.Millisecond,
		Threshold: 5,
	})

	// A session can be terminated between AttachMonitor and Start;
	// the release must still win.
	m.Stop()
	m.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	if got := det.callCount(); got != 0 {
		t.Fatalf("sampling loop ran despite Stop before Start: %d detector calls", got)
	}

	// And later Stops stay safe.
	m.Stop()
}

func TestStartIsIdempotent(t *testing.T) {
	var violations int32
	det := &scriptDetector{counts: []int{2, 2}}
	m := runMonitor(t, det, liveSource{}, &violations)

	// A second Start must not spawn a second loop.
	m.Start(context.Background())

	waitFor(t, 50*time.Millisecond, func() bool { return det.callCount() >= 2 })
	m.Stop()
	calls := det.callCount()
	time.Sleep(20 * time.Millisecond)
	if det.callCount() != calls {
		t.Fatal("detector still being called after Stop")
	}
}

func TestDeviceUnavailableReportedOnce(t *testing.T) {
	var degraded int32
	m := NewMonitor(Config{
		Source:        deadSource{},
		Detector:      &scriptDetector{},
		Interval:      time.Millisecond,
		Threshold:     5,
		DeviceTimeout: 5 * time.Millisecond,
		OnDegraded: func(err error) {
			var devErr *DeviceUnavailableError
			if !errors.As(err, &devErr) {
				t.Errorf("expected DeviceUnavailableError, got %v", err)
			}
			atomic.AddInt32(&degraded, 1)
		},
	})
	m.Start(context.Background())
	t.Cleanup(m.Stop)

	if !waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&degraded) == 1 }) {
		t.Fatal("device condition was never reported")
	}
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&degraded); got != 1 {
		t.Fatalf("device condition reported %d times, want exactly 1", got)
	}
}
