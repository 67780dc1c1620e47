package acceptor

// State represents the current lifecycle state of the Acceptor.
type State int32

const (
	Closed    State = iota // Not bound; the initial state and the state after Unbind
	Binding                // Bind in progress; the transport is not yet serving
	Listening              // Bound and admitting connections (unless mode-changing)
	Unbinding              // Unbind in progress; the transport is shutting down
)

// String returns a human-readable name for the lifecycle state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Binding:
		return "Binding"
	case Listening:
		return "Listening"
	case Unbinding:
		return "Unbinding"
	default:
		return "Unknown"
	}
}
