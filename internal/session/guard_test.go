package session

import "testing"

type recordingTerminator struct {
	reasons []string
}

func (r *recordingTerminator) Terminate(reason string) bool {
	r.reasons = append(r.reasons, reason)
	return len(r.reasons) == 1
}

func TestGuardTerminatesOnEnvironmentEvents(t *testing.T) {
	target := &recordingTerminator{}
	g := NewEnvironmentGuard(target)

	g.PresentationLost()
	g.FocusLost()

	if len(target.reasons) != 2 {
		t.Fatalf("expected 2 termination triggers, got %d", len(target.reasons))
	}
	if target.reasons[0] != "fullscreen was exited" {
		t.Fatalf("unexpected reason: %q", target.reasons[0])
	}
	if target.reasons[1] != "the interview tab lost focus" {
		t.Fatalf("unexpected reason: %q", target.reasons[1])
	}
}
