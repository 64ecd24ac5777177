package rpc

import "sync/atomic"

// State is the per-connection lifecycle state.
type State int32

const (
	StateUnconnected State = iota
	StateConnected
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "unconnected"
}

// Session holds dispatch state for a single connection.
type Session struct {
	state atomic.Int32
}

// NewSession returns an unconnected session.
func NewSession() *Session {
	return &Session{}
}

// State returns the current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Connected reports whether joinCloud has been accepted.
func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// markConnected flips the session; it reports true only on the first transition.
func (s *Session) markConnected() bool {
	return s.state.CompareAndSwap(int32(StateUnconnected), int32(StateConnected))
}
