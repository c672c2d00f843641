// Package message defines the ONC RPC (RFC 5531) envelope exchanged between client and server.
//
// Every call is a CallHeader followed by the XDR-encoded procedure arguments;
// every reply is a reply header followed by the XDR-encoded results. The codec
// package serializes these headers and the protocol package wraps the bytes in
// a record-marking frame for transmission over TCP.
package message

// RPCVersion is the only ONC RPC protocol version spoken on the wire.
const RPCVersion uint32 = 2

// MaxAuthBytes bounds the body of an opaque_auth structure.
const MaxAuthBytes = 400

// MsgType distinguishes calls from replies.
type MsgType uint32

const (
	MsgTypeCall  MsgType = 0
	MsgTypeReply MsgType = 1
)

// ReplyStat says whether the server accepted the call at all.
type ReplyStat uint32

const (
	MsgAccepted ReplyStat = 0
	MsgDenied   ReplyStat = 1
)

// AcceptStat is the outcome of an accepted call.
type AcceptStat uint32

const (
	Success      AcceptStat = 0 // Results follow
	ProgUnavail  AcceptStat = 1 // Program not exported by this server
	ProgMismatch AcceptStat = 2 // Version range follows
	ProcUnavail  AcceptStat = 3 // Procedure number unknown to the program
	GarbageArgs  AcceptStat = 4 // Arguments could not be decoded
	SystemErr    AcceptStat = 5 // Server-side failure (memory, handler error, ...)
)

func (s AcceptStat) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case ProgUnavail:
		return "PROG_UNAVAIL"
	case ProgMismatch:
		return "PROG_MISMATCH"
	case ProcUnavail:
		return "PROC_UNAVAIL"
	case GarbageArgs:
		return "GARBAGE_ARGS"
	case SystemErr:
		return "SYSTEM_ERR"
	default:
		return "UNKNOWN_ACCEPT_STAT"
	}
}

// RejectStat is the reason a call was denied.
type RejectStat uint32

const (
	RPCMismatch RejectStat = 0
	AuthError   RejectStat = 1
)

func (s RejectStat) String() string {
	switch s {
	case RPCMismatch:
		return "RPC_MISMATCH"
	case AuthError:
		return "AUTH_ERROR"
	default:
		return "UNKNOWN_REJECT_STAT"
	}
}

// AuthNone is the null authentication flavor. It is the only flavor used by
// the DDS server.
const AuthNone uint32 = 0

// OpaqueAuth carries credentials or a verifier.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte
}

// CallHeader is the fixed part of every call message.
type CallHeader struct {
	Xid     uint32
	MsgType uint32
	RPCVers uint32
	Prog    uint32
	Vers    uint32
	Proc    uint32
	Cred    OpaqueAuth
	Verf    OpaqueAuth
}

// NewCall builds an AUTH_NONE call header.
func NewCall(xid, prog, vers, proc uint32) *CallHeader {
	return &CallHeader{
		Xid:     xid,
		MsgType: uint32(MsgTypeCall),
		RPCVers: RPCVersion,
		Prog:    prog,
		Vers:    vers,
		Proc:    proc,
		Cred:    OpaqueAuth{Flavor: AuthNone},
		Verf:    OpaqueAuth{Flavor: AuthNone},
	}
}

// MismatchInfo is the supported version range reported by PROG_MISMATCH and
// RPC_MISMATCH replies.
type MismatchInfo struct {
	Low  uint32
	High uint32
}

// Request is a decoded call as seen by the server: header plus the still
// encoded argument bytes.
type Request struct {
	Header *CallHeader
	Args   []byte
}

// Reply is the decoded form of a reply message. Only the fields relevant to
// the Stat/AcceptStat/RejectStat combination are meaningful.
//
//   - Accepted + Success:      Body holds the XDR-encoded results.
//   - Accepted + ProgMismatch: Mismatch holds the supported versions.
//   - Denied + RPCMismatch:    Mismatch holds the supported RPC versions.
//   - Denied + AuthError:      AuthStat holds the auth_stat code.
type Reply struct {
	Xid        uint32
	Stat       ReplyStat
	Verf       OpaqueAuth
	AcceptStat AcceptStat
	RejectStat RejectStat
	Mismatch   MismatchInfo
	AuthStat   uint32
	Body       []byte
}

// NewSuccess builds an accepted reply carrying results.
func NewSuccess(xid uint32, body []byte) *Reply {
	return &Reply{
		Xid:        xid,
		Stat:       MsgAccepted,
		Verf:       OpaqueAuth{Flavor: AuthNone},
		AcceptStat: Success,
		Body:       body,
	}
}

// NewAccepted builds an accepted reply with a non-success status.
func NewAccepted(xid uint32, stat AcceptStat) *Reply {
	return &Reply{
		Xid:        xid,
		Stat:       MsgAccepted,
		Verf:       OpaqueAuth{Flavor: AuthNone},
		AcceptStat: stat,
	}
}

// NewDenied builds a denied reply.
func NewDenied(xid uint32, stat RejectStat) *Reply {
	return &Reply{
		Xid:        xid,
		Stat:       MsgDenied,
		RejectStat: stat,
	}
}

// Err converts a non-success reply into an *RPCError. It returns nil for an
// accepted, successful reply.
func (r *Reply) Err() error {
	if r.Stat == MsgAccepted && r.AcceptStat == Success {
		return nil
	}
	return &RPCError{
		Stat:       r.Stat,
		AcceptStat: r.AcceptStat,
		RejectStat: r.RejectStat,
		Mismatch:   r.Mismatch,
		AuthStat:   r.AuthStat,
	}
}
