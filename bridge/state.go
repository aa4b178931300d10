package bridge

// SessionState is the lifecycle state of a bridge session.
type SessionState string

const (
	StateIdle           SessionState = "idle"
	StateOpening        SessionState = "opening"
	StateReady          SessionState = "ready"
	StateAuthenticating SessionState = "authenticating"
	StateClosing        SessionState = "closing"
	StateClosed         SessionState = "closed"
)

// transitions is the closed set of legal state changes. Anything not
// listed here is ignored rather than applied.
var transitions = map[SessionState][]SessionState{
	StateIdle:           {StateOpening},
	StateOpening:        {StateReady, StateAuthenticating, StateClosing},
	StateReady:          {StateAuthenticating, StateClosing},
	StateAuthenticating: {StateClosing},
	StateClosing:        {StateClosed},
	StateClosed:         {StateOpening},
}

func validTransition(from, to SessionState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// openable reports whether a fresh session may start from s.
func openable(s SessionState) bool {
	return s == StateIdle || s == StateClosed
}
