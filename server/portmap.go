package server

import (
	"context"
	"sync"

	"dds-rpc/message"
)

// Portmapper is an in-memory portmapper version 2 program. Register it on a
// Server listening on the portmapper port to make programs reachable by bare
// host name.
type Portmapper struct {
	mu    sync.RWMutex
	ports map[message.Mapping]uint32 // keyed with Port zero
}

func NewPortmapper() *Portmapper {
	return &Portmapper{ports: make(map[message.Mapping]uint32)}
}

func mappingKey(prog, vers, prot uint32) message.Mapping {
	return message.Mapping{Prog: prog, Vers: vers, Prot: prot}
}

// Set records m. It fails if prog/vers/prot is already mapped.
func (p *Portmapper) Set(m message.Mapping) bool {
	key := mappingKey(m.Prog, m.Vers, m.Prot)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.ports[key]; ok {
		return false
	}
	p.ports[key] = m.Port
	return true
}

// Unset removes every mapping of prog/vers, whatever the protocol.
func (p *Portmapper) Unset(prog, vers uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := false
	for key := range p.ports {
		if key.Prog == prog && key.Vers == vers {
			delete(p.ports, key)
			removed = true
		}
	}
	return removed
}

// GetPort returns the mapped port, or 0 when there is none.
func (p *Portmapper) GetPort(prog, vers, prot uint32) uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ports[mappingKey(prog, vers, prot)]
}

// Advertise maps every program version of svr to a TCP port.
func (p *Portmapper) Advertise(svr *Server, port int) {
	for _, pv := range svr.Programs() {
		p.Set(message.Mapping{Prog: pv.Prog, Vers: pv.Vers, Prot: message.IPProtoTCP, Port: uint32(port)})
	}
}

// Register exports the portmapper program on svr.
func (p *Portmapper) Register(svr *Server) error {
	return svr.Register(message.PortmapProgram, message.PortmapVersion, map[uint32]Procedure{
		message.PortmapProcSet: Typed(func(ctx context.Context, m *message.Mapping) (*bool, error) {
			ok := p.Set(*m)
			return &ok, nil
		}),
		message.PortmapProcUnset: Typed(func(ctx context.Context, m *message.Mapping) (*bool, error) {
			ok := p.Unset(m.Prog, m.Vers)
			return &ok, nil
		}),
		message.PortmapProcGetPort: Typed(func(ctx context.Context, m *message.Mapping) (*uint32, error) {
			port := p.GetPort(m.Prog, m.Vers, m.Prot)
			return &port, nil
		}),
	})
}
