package session

// State is the lifecycle position of a Session.
type State int32

// Session states, in the order a successful request passes through them.
const (
	StateStarting State = iota
	StateAwaitingReady
	StateConfiguring
	StateSearching
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateAwaitingReady:
		return "awaiting_ready"
	case StateConfiguring:
		return "configuring"
	case StateSearching:
		return "searching"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition happens without a new request.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
