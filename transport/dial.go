package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"dds-rpc/message"
)

// ErrNotRegistered is returned when the portmapper knows no TCP port for the
// requested program version.
var ErrNotRegistered = errors.New("program not registered with portmapper")

// Dialer opens one connection per Dial, the way clnt_create does for "tcp".
type Dialer struct {
	// PortmapperPort is where bare host names are resolved. Zero means 111.
	PortmapperPort int
	// Timeout bounds dialing and every call on the resulting transport.
	// Zero means DefaultTimeout.
	Timeout time.Duration
}

// Dial connects to prog/vers on host. A host with an explicit port is dialed
// directly; a bare host is first resolved through its portmapper.
func (d *Dialer) Dial(host string, prog, vers uint32) (*ClientTransport, error) {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		port, err := d.GetPort(host, prog, vers)
		if err != nil {
			return nil, err
		}
		addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	}

	conn, err := net.DialTimeout("tcp", addr, d.timeout())
	if err != nil {
		return nil, err
	}
	return NewClientTransport(conn, prog, vers, d.timeout()), nil
}

// GetPort asks the portmapper on host for the TCP port of prog/vers.
func (d *Dialer) GetPort(host string, prog, vers uint32) (uint32, error) {
	pmPort := d.PortmapperPort
	if pmPort == 0 {
		pmPort = message.PortmapPort
	}

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(pmPort)), d.timeout())
	if err != nil {
		return 0, fmt.Errorf("portmapper: %w", err)
	}
	pm := NewClientTransport(conn, message.PortmapProgram, message.PortmapVersion, d.timeout())
	defer pm.Close()

	var port uint32
	mapping := message.Mapping{Prog: prog, Vers: vers, Prot: message.IPProtoTCP}
	if err := pm.Call(message.PortmapProcGetPort, &mapping, &port); err != nil {
		return 0, fmt.Errorf("portmapper: %w", err)
	}
	if port == 0 {
		return 0, fmt.Errorf("%w: program %#x version %d", ErrNotRegistered, prog, vers)
	}
	return port, nil
}

func (d *Dialer) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return DefaultTimeout
}
