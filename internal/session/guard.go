package session

// IntegrityPolicy is the exam posture the shell must enforce while the
// session is live. The service cannot reach into the candidate's
// browser, so the policy travels with the session-start response and
// the shell applies it; losing fullscreen or visibility is reported
// back as a guard event and terminates the session.
type IntegrityPolicy struct {
	RequireFullscreen bool `json:"require_fullscreen"`
	SuppressClipboard bool `json:"suppress_clipboard"`
	BlockContextMenu  bool `json:"block_context_menu"`
}

func DefaultIntegrityPolicy() IntegrityPolicy {
	return IntegrityPolicy{
		RequireFullscreen: true,
		SuppressClipboard: true,
		BlockContextMenu:  true,
	}
}

// Terminator is the slice of the controller the guard needs.
type Terminator interface {
	Terminate(reason string) bool
}

// EnvironmentGuard translates environment integrity events reported by
// the shell into termination triggers. Injected rather than reached
// into so it can be faked in tests.
type EnvironmentGuard struct {
	target Terminator
}

func NewEnvironmentGuard(target Terminator) *EnvironmentGuard {
	return &EnvironmentGuard{target: target}
}

// PresentationLost handles a fullscreen exit.
func (g *EnvironmentGuard) PresentationLost() {
	g.target.Terminate("fullscreen was exited")
}

// FocusLost handles the tab or window losing visibility.
func (g *EnvironmentGuard) FocusLost() {
	g.target.Terminate("the interview tab lost focus")
}
