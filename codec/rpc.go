package codec

import (
	"bytes"
	"fmt"

	"dds-rpc/message"

	xdr "github.com/davecgh/go-xdr/xdr2"
)

// EncodeCall serializes a call header followed by the procedure arguments.
// A nil args encodes an empty argument list (the NULL procedure).
func EncodeCall(h *message.CallHeader, args any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, h); err != nil {
		return nil, fmt.Errorf("encode call header: %w", err)
	}
	if args != nil {
		if _, err := xdr.Marshal(&buf, args); err != nil {
			return nil, fmt.Errorf("encode call arguments: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeCall parses a call header and returns it with the remaining,
// still encoded, argument bytes.
func DecodeCall(data []byte) (*message.CallHeader, []byte, error) {
	r := bytes.NewReader(data)
	h := &message.CallHeader{}
	if err := unmarshal(r, h); err != nil {
		return nil, nil, fmt.Errorf("decode call header: %w", err)
	}
	if h.MsgType != uint32(message.MsgTypeCall) {
		return nil, nil, fmt.Errorf("unexpected message type: %d", h.MsgType)
	}
	if len(h.Cred.Body) > message.MaxAuthBytes || len(h.Verf.Body) > message.MaxAuthBytes {
		return nil, nil, fmt.Errorf("auth body exceeds %d bytes", message.MaxAuthBytes)
	}
	return h, data[len(data)-r.Len():], nil
}

// replyPrefix is common to every reply.
type replyPrefix struct {
	Xid     uint32
	MsgType uint32
	Stat    uint32
}

// acceptedPrefix follows replyPrefix when Stat is MSG_ACCEPTED.
type acceptedPrefix struct {
	Verf message.OpaqueAuth
	Stat uint32
}

// EncodeReply serializes a reply message.
func EncodeReply(rep *message.Reply) ([]byte, error) {
	var buf bytes.Buffer
	prefix := replyPrefix{Xid: rep.Xid, MsgType: uint32(message.MsgTypeReply), Stat: uint32(rep.Stat)}
	if _, err := xdr.Marshal(&buf, &prefix); err != nil {
		return nil, err
	}

	var tail any
	switch rep.Stat {
	case message.MsgAccepted:
		if _, err := xdr.Marshal(&buf, &acceptedPrefix{Verf: rep.Verf, Stat: uint32(rep.AcceptStat)}); err != nil {
			return nil, err
		}
		switch rep.AcceptStat {
		case message.Success:
			buf.Write(rep.Body) // already XDR
		case message.ProgMismatch:
			tail = &rep.Mismatch
		}
	case message.MsgDenied:
		stat := uint32(rep.RejectStat)
		if _, err := xdr.Marshal(&buf, &stat); err != nil {
			return nil, err
		}
		switch rep.RejectStat {
		case message.RPCMismatch:
			tail = &rep.Mismatch
		case message.AuthError:
			tail = &rep.AuthStat
		default:
			return nil, fmt.Errorf("unknown reject status: %d", rep.RejectStat)
		}
	default:
		return nil, fmt.Errorf("unknown reply status: %d", rep.Stat)
	}

	if tail != nil {
		if _, err := xdr.Marshal(&buf, tail); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeReply parses a reply message. For a successful call Body holds the
// remaining, still encoded, results.
func DecodeReply(data []byte) (*message.Reply, error) {
	r := bytes.NewReader(data)

	var prefix replyPrefix
	if err := unmarshal(r, &prefix); err != nil {
		return nil, fmt.Errorf("decode reply header: %w", err)
	}
	if prefix.MsgType != uint32(message.MsgTypeReply) {
		return nil, fmt.Errorf("unexpected message type: %d", prefix.MsgType)
	}

	rep := &message.Reply{Xid: prefix.Xid, Stat: message.ReplyStat(prefix.Stat)}
	switch rep.Stat {
	case message.MsgAccepted:
		var acc acceptedPrefix
		if err := unmarshal(r, &acc); err != nil {
			return nil, fmt.Errorf("decode accepted reply: %w", err)
		}
		rep.Verf = acc.Verf
		rep.AcceptStat = message.AcceptStat(acc.Stat)
		switch rep.AcceptStat {
		case message.Success:
			rep.Body = data[len(data)-r.Len():]
		case message.ProgMismatch:
			if err := unmarshal(r, &rep.Mismatch); err != nil {
				return nil, fmt.Errorf("decode mismatch info: %w", err)
			}
		}
	case message.MsgDenied:
		var stat uint32
		if err := unmarshal(r, &stat); err != nil {
			return nil, fmt.Errorf("decode rejected reply: %w", err)
		}
		rep.RejectStat = message.RejectStat(stat)
		switch rep.RejectStat {
		case message.RPCMismatch:
			if err := unmarshal(r, &rep.Mismatch); err != nil {
				return nil, fmt.Errorf("decode mismatch info: %w", err)
			}
		case message.AuthError:
			if err := unmarshal(r, &rep.AuthStat); err != nil {
				return nil, fmt.Errorf("decode auth status: %w", err)
			}
		default:
			return nil, fmt.Errorf("unknown reject status: %d", stat)
		}
	default:
		return nil, fmt.Errorf("unknown reply status: %d", prefix.Stat)
	}
	return rep, nil
}
