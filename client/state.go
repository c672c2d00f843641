package client

// State is the progress of one call.
//
//	Idle → Connecting → AwaitingResponse → Decoding → Done
//	  └───────┴──────────────┴────────────────┴──────→ Failed
type State int

const (
	Idle State = iota
	Connecting
	AwaitingResponse
	Decoding
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Connecting:
		return "Connecting"
	case AwaitingResponse:
		return "AwaitingResponse"
	case Decoding:
		return "Decoding"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// Transition is reported to the observer on every state change. Err is set
// when To is Failed.
type Transition struct {
	CallID string
	Host   string
	Proc   uint32
	From   State
	To     State
	Err    error
}
