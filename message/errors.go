package message

import "fmt"

// RPCError reports a reply that did not carry results.
type RPCError struct {
	Stat       ReplyStat
	AcceptStat AcceptStat
	RejectStat RejectStat
	Mismatch   MismatchInfo
	AuthStat   uint32
}

func (e *RPCError) Error() string {
	if e.Stat == MsgDenied {
		switch e.RejectStat {
		case RPCMismatch:
			return fmt.Sprintf("rpc: call denied: %s (supported %d-%d)", e.RejectStat, e.Mismatch.Low, e.Mismatch.High)
		case AuthError:
			return fmt.Sprintf("rpc: call denied: %s (auth_stat %d)", e.RejectStat, e.AuthStat)
		}
		return fmt.Sprintf("rpc: call denied: %s", e.RejectStat)
	}
	if e.AcceptStat == ProgMismatch {
		return fmt.Sprintf("rpc: %s (supported versions %d-%d)", e.AcceptStat, e.Mismatch.Low, e.Mismatch.High)
	}
	return fmt.Sprintf("rpc: %s", e.AcceptStat)
}
