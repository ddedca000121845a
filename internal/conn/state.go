package conn

// State is the lifecycle stage of the game connection.
// Disconnected -> Connecting -> Open -> Closed, or Connecting -> Failed.
// Closed and Failed are terminal for an attempt; Connect starts a new one.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
