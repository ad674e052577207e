package livechat

// ConnectionState is the lifecycle of a Client connection:
//
//	disconnected -> connecting -> connected -> closed
//	                    |             |
//	                    +--> error <--+
//
// Nothing leaves StateError on its own; only another Connect does.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting                   // dialing and sending hello
	StateConnected
	StateError
	StateClosed // closed by the caller
)

var stateNames = [...]string{"disconnected", "connecting", "connected", "error", "closed"}

func (s ConnectionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText prints the state by name in logs and JSON.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// busy reports whether a connection attempt is in progress or established.
func (s ConnectionState) busy() bool {
	return s == StateConnecting || s == StateConnected
}

// StateEvent is one transition reported to OnStateChanged. Error is set when
// a failure caused it.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error
}
