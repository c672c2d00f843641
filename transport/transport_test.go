package transport

import (
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"dds-rpc/codec"
	"dds-rpc/message"
	"dds-rpc/protocol"
)

// fakeServer answers every call record on one connection with the records
// returned by respond. A nil result closes the connection.
func fakeServer(t *testing.T, respond func(h *message.CallHeader, args []byte) [][]byte) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				for {
					record, err := protocol.Decode(conn)
					if err != nil {
						return
					}
					h, args, err := codec.DecodeCall(record)
					if err != nil {
						return
					}
					out := respond(h, args)
					if out == nil {
						return
					}
					for _, r := range out {
						if err := protocol.Encode(conn, r); err != nil {
							return
						}
					}
				}
			}()
		}
	}()
	return ln
}

func encodeReply(t *testing.T, rep *message.Reply) []byte {
	data, err := codec.EncodeReply(rep)
	if err != nil {
		t.Error(err)
	}
	return data
}

func dial(t *testing.T, ln net.Listener, prog, vers uint32, timeout time.Duration) *ClientTransport {
	t.Helper()
	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	tr := NewClientTransport(conn, prog, vers, timeout)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestCallSkipsStaleReplies(t *testing.T) {
	xdr := codec.GetCodec(codec.CodecTypeXDR)
	ln := fakeServer(t, func(h *message.CallHeader, args []byte) [][]byte {
		var in uint32
		if err := xdr.Decode(args, &in); err != nil {
			return nil
		}
		result, _ := xdr.Encode(in * 2)
		stale := encodeReply(t, message.NewSuccess(h.Xid-1, []byte{0, 0, 0, 1}))
		return [][]byte{stale, encodeReply(t, message.NewSuccess(h.Xid, result))}
	})
	tr := dial(t, ln, 7, 1, time.Second)

	in := uint32(21)
	var out uint32
	if err := tr.Call(1, &in, &out); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if out != 42 {
		t.Fatalf("expect 42, got %d", out)
	}

	// The same transport serves a second call with a fresh xid.
	in = 5
	if err := tr.Call(1, &in, &out); err != nil {
		t.Fatal(err)
	}
	if out != 10 {
		t.Fatalf("expect 10, got %d", out)
	}
}

func TestCallSendsProgramAndVersion(t *testing.T) {
	seen := make(chan *message.CallHeader, 1)
	ln := fakeServer(t, func(h *message.CallHeader, args []byte) [][]byte {
		seen <- h
		return [][]byte{encodeReply(t, message.NewSuccess(h.Xid, nil))}
	})
	tr := dial(t, ln, 0x20000101, 1, time.Second)

	if err := tr.Call(13, nil, nil); err != nil {
		t.Fatal(err)
	}
	h := <-seen
	if h.Prog != 0x20000101 || h.Vers != 1 || h.Proc != 13 || h.RPCVers != message.RPCVersion {
		t.Fatalf("unexpected call header: %+v", h)
	}
}

func TestCallReturnsRPCError(t *testing.T) {
	ln := fakeServer(t, func(h *message.CallHeader, args []byte) [][]byte {
		return [][]byte{encodeReply(t, message.NewAccepted(h.Xid, message.ProcUnavail))}
	})
	tr := dial(t, ln, 7, 1, time.Second)

	err := tr.Call(99, nil, nil)
	var rpcErr *message.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expect *message.RPCError, got %v", err)
	}
	if rpcErr.AcceptStat != message.ProcUnavail {
		t.Fatalf("expect PROC_UNAVAIL, got %v", rpcErr.AcceptStat)
	}
}

func TestCallConnectionClosed(t *testing.T) {
	ln := fakeServer(t, func(h *message.CallHeader, args []byte) [][]byte {
		return nil
	})
	tr := dial(t, ln, 7, 1, time.Second)

	if err := tr.Call(1, nil, nil); err == nil {
		t.Fatal("expect error when the server closes without replying")
	}
}

func TestCallUndecodableResults(t *testing.T) {
	ln := fakeServer(t, func(h *message.CallHeader, args []byte) [][]byte {
		return [][]byte{encodeReply(t, message.NewSuccess(h.Xid, []byte{0, 0}))}
	})
	tr := dial(t, ln, 7, 1, time.Second)

	var out uint32
	if err := tr.Call(1, nil, &out); err == nil {
		t.Fatal("expect error for truncated results")
	}
}

func TestCallTimeout(t *testing.T) {
	ln := fakeServer(t, func(h *message.CallHeader, args []byte) [][]byte {
		return [][]byte{} // keep the connection, never answer
	})
	tr := dial(t, ln, 7, 1, 100*time.Millisecond)

	start := time.Now()
	err := tr.Call(1, nil, nil)
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expect timeout error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("call did not honor its deadline")
	}
}

func portmapper(t *testing.T, ports map[uint32]uint32) int {
	xdr := codec.GetCodec(codec.CodecTypeXDR)
	ln := fakeServer(t, func(h *message.CallHeader, args []byte) [][]byte {
		if h.Prog != message.PortmapProgram || h.Proc != message.PortmapProcGetPort {
			return [][]byte{encodeReply(t, message.NewAccepted(h.Xid, message.ProgUnavail))}
		}
		var m message.Mapping
		if err := xdr.Decode(args, &m); err != nil || m.Prot != message.IPProtoTCP {
			return [][]byte{encodeReply(t, message.NewAccepted(h.Xid, message.GarbageArgs))}
		}
		body, _ := xdr.Encode(ports[m.Prog])
		return [][]byte{encodeReply(t, message.NewSuccess(h.Xid, body))}
	})
	return ln.Addr().(*net.TCPAddr).Port
}

func TestDialThroughPortmapper(t *testing.T) {
	target := fakeServer(t, func(h *message.CallHeader, args []byte) [][]byte {
		return [][]byte{encodeReply(t, message.NewSuccess(h.Xid, nil))}
	})
	targetPort := target.Addr().(*net.TCPAddr).Port

	d := &Dialer{PortmapperPort: portmapper(t, map[uint32]uint32{7: uint32(targetPort)}), Timeout: time.Second}

	port, err := d.GetPort("127.0.0.1", 7, 1)
	if err != nil {
		t.Fatalf("GetPort failed: %v", err)
	}
	if int(port) != targetPort {
		t.Fatalf("expect port %d, got %d", targetPort, port)
	}

	tr, err := d.Dial("127.0.0.1", 7, 1)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()
	if got := tr.Conn().RemoteAddr().(*net.TCPAddr).Port; got != targetPort {
		t.Fatalf("dialed port %d, want %d", got, targetPort)
	}
	if err := tr.Call(0, nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestDialUnregisteredProgram(t *testing.T) {
	d := &Dialer{PortmapperPort: portmapper(t, nil), Timeout: time.Second}

	if _, err := d.Dial("127.0.0.1", 7, 1); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expect ErrNotRegistered, got %v", err)
	}
}

func TestDialExplicitPort(t *testing.T) {
	ln := fakeServer(t, func(h *message.CallHeader, args []byte) [][]byte {
		return [][]byte{encodeReply(t, message.NewSuccess(h.Xid, nil))}
	})

	// No portmapper is listening on this port; an explicit port must bypass it.
	d := &Dialer{PortmapperPort: 1, Timeout: time.Second}
	tr, err := d.Dial(ln.Addr().String(), 7, 1)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()
	if err := tr.Call(0, nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	d := &Dialer{Timeout: time.Second}
	if _, err := d.Dial(net.JoinHostPort("127.0.0.1", strconv.Itoa(addr.Port)), 7, 1); err == nil {
		t.Fatal("expect error dialing a closed port")
	}
	d.PortmapperPort = addr.Port
	if _, err := d.Dial("127.0.0.1", 7, 1); err == nil {
		t.Fatal("expect error when no portmapper is listening")
	}
}
