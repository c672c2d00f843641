// Package transport implements the client side of ONC RPC over TCP.
//
// A ClientTransport owns exactly one connection and runs one call at a time:
//
//	Call(proc) ──record(call xid=N)──→ server
//	           ←─record(reply xid=N)── server
//
// Replies carrying another xid are stale and skipped. There is no background
// reader, no heartbeat and no pooling; the connection lives as long as the
// caller keeps the transport.
package transport

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"dds-rpc/codec"
	"dds-rpc/message"
	"dds-rpc/protocol"
)

// DefaultTimeout bounds a whole call, send and receive. It matches the Sun
// RPC client default.
const DefaultTimeout = 25 * time.Second

// ClientTransport is a synchronous RPC client bound to one program version.
type ClientTransport struct {
	conn    net.Conn
	prog    uint32
	vers    uint32
	timeout time.Duration
	codec   codec.Codec
	xid     uint32     // protected by sending
	sending sync.Mutex // one call on the wire at a time
}

// NewClientTransport wraps conn. A non-positive timeout disables deadlines.
func NewClientTransport(conn net.Conn, prog, vers uint32, timeout time.Duration) *ClientTransport {
	return &ClientTransport{
		conn:    conn,
		prog:    prog,
		vers:    vers,
		timeout: timeout,
		codec:   codec.GetCodec(codec.CodecTypeXDR),
		xid:     rand.Uint32(),
	}
}

// Call invokes proc with args and XDR-decodes the results into reply.
// A nil args sends no arguments; a nil reply discards the results.
//
// A non-success reply is returned as *message.RPCError.
func (t *ClientTransport) Call(proc uint32, args, reply any) error {
	t.sending.Lock()
	defer t.sending.Unlock()

	t.xid++
	xid := t.xid

	body, err := codec.EncodeCall(message.NewCall(xid, t.prog, t.vers, proc), args)
	if err != nil {
		return err
	}

	if t.timeout > 0 {
		if err := t.conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
			return err
		}
		defer t.conn.SetDeadline(time.Time{})
	}

	if err := protocol.Encode(t.conn, body); err != nil {
		return fmt.Errorf("send call: %w", err)
	}

	for {
		record, err := protocol.Decode(t.conn)
		if err != nil {
			return fmt.Errorf("receive reply: %w", err)
		}
		rep, err := codec.DecodeReply(record)
		if err != nil {
			return err
		}
		if rep.Xid != xid {
			continue
		}
		if err := rep.Err(); err != nil {
			return err
		}
		if reply == nil {
			return nil
		}
		if err := t.codec.Decode(rep.Body, reply); err != nil {
			return fmt.Errorf("decode results: %w", err)
		}
		return nil
	}
}

// Conn returns the underlying TCP connection.
func (t *ClientTransport) Conn() net.Conn {
	return t.conn
}

// Close releases the connection.
func (t *ClientTransport) Close() error {
	return t.conn.Close()
}
