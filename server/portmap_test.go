package server

import (
	"net"
	"strconv"
	"testing"
	"time"

	"dds-rpc/message"
	"dds-rpc/transport"
)

func portOf(t *testing.T, addr string) int {
	t.Helper()
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestPortmapperTable(t *testing.T) {
	pm := NewPortmapper()
	m := message.Mapping{Prog: 7, Vers: 1, Prot: message.IPProtoTCP, Port: 4000}

	if !pm.Set(m) {
		t.Fatal("first Set must succeed")
	}
	if pm.Set(message.Mapping{Prog: 7, Vers: 1, Prot: message.IPProtoTCP, Port: 5000}) {
		t.Fatal("Set must not overwrite an existing mapping")
	}
	pm.Set(message.Mapping{Prog: 7, Vers: 1, Prot: message.IPProtoUDP, Port: 4001})

	if port := pm.GetPort(7, 1, message.IPProtoTCP); port != 4000 {
		t.Fatalf("expect 4000, got %d", port)
	}
	if port := pm.GetPort(7, 2, message.IPProtoTCP); port != 0 {
		t.Fatalf("expect 0 for unknown version, got %d", port)
	}

	if !pm.Unset(7, 1) {
		t.Fatal("Unset must report removal")
	}
	if pm.GetPort(7, 1, message.IPProtoTCP) != 0 || pm.GetPort(7, 1, message.IPProtoUDP) != 0 {
		t.Fatal("Unset must remove every protocol")
	}
	if pm.Unset(7, 1) {
		t.Fatal("second Unset has nothing to remove")
	}
}

func TestPortmapperOverRPC(t *testing.T) {
	target := newArithServer(t)
	targetAddr := startServer(t, target, nil)
	targetPort := portOf(t, targetAddr)

	pm := NewPortmapper()
	pm.Advertise(target, targetPort)
	pmServer := NewServer()
	if err := pm.Register(pmServer); err != nil {
		t.Fatal(err)
	}
	pmAddr := startServer(t, pmServer, nil)
	pmPort := portOf(t, pmAddr)

	d := &transport.Dialer{PortmapperPort: pmPort, Timeout: 2 * time.Second}
	port, err := d.GetPort("127.0.0.1", testProg, 1)
	if err != nil {
		t.Fatalf("GetPort failed: %v", err)
	}
	if int(port) != targetPort {
		t.Fatalf("expect %d, got %d", targetPort, port)
	}

	tr, err := d.Dial("127.0.0.1", testProg, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	var sum int32
	if err := tr.Call(1, &pair{A: 2, B: 3}, &sum); err != nil || sum != 5 {
		t.Fatalf("call through portmapper: sum=%d err=%v (target %s)", sum, err, targetAddr)
	}

	// SET and UNSET over the wire
	pmc := dial(t, pmAddr, message.PortmapProgram, message.PortmapVersion)
	var ok bool
	if err := pmc.Call(message.PortmapProcSet, &message.Mapping{Prog: 9, Vers: 1, Prot: message.IPProtoTCP, Port: 1234}, &ok); err != nil || !ok {
		t.Fatalf("SET: ok=%v err=%v", ok, err)
	}
	if pm.GetPort(9, 1, message.IPProtoTCP) != 1234 {
		t.Fatal("SET did not reach the table")
	}
	if err := pmc.Call(message.PortmapProcUnset, &message.Mapping{Prog: 9, Vers: 1}, &ok); err != nil || !ok {
		t.Fatalf("UNSET: ok=%v err=%v", ok, err)
	}
	if _, err := d.GetPort("127.0.0.1", 9, 1); err == nil {
		t.Fatal("expect error for an unset program")
	}
}
