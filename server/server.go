// Package server implements an ONC RPC server over TCP with program
// registration, a middleware chain, parallel call processing and graceful
// shutdown.
//
// Call processing pipeline:
//
//	Accept conn → handleConn (single goroutine reads records)
//	  → for each call: go handleRequest (parallel processing)
//	    → DecodeCall → Middleware Chain → dispatch (prog/vers/proc) → EncodeReply → write record
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dds-rpc/codec"
	"dds-rpc/message"
	"dds-rpc/middleware"
	"dds-rpc/protocol"
	"dds-rpc/registry"

	"go.uber.org/zap"
)

// DefaultServiceName is the registry name used when none is configured.
const DefaultServiceName = "dds"

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(svr *Server) { svr.logger = logger }
}

// WithServiceName sets the name the server registers under.
func WithServiceName(name string) Option {
	return func(svr *Server) { svr.serviceName = name }
}

// WithWeight sets the load-balancing weight advertised to the registry.
func WithWeight(weight int) Option {
	return func(svr *Server) { svr.weight = weight }
}

// WithRegistryTTL sets the lease TTL, in seconds, of the registry entry.
func WithRegistryTTL(ttl int64) Option {
	return func(svr *Server) { svr.ttl = ttl }
}

// Server serves registered RPC programs.
type Server struct {
	programs    map[uint32]*program     // prog → versions → procedures
	mu          sync.Mutex              // guards listener, conns, registry, advertiseAddr and wg.Add
	listener    net.Listener            // TCP listener
	conns       map[net.Conn]struct{}   // open client connections
	wg          sync.WaitGroup          // Tracks in-flight calls for graceful shutdown
	shutdown    atomic.Bool             // Set under mu when Shutdown starts
	middlewares []middleware.Middleware // Applied in the order they were added
	handler     middleware.HandlerFunc  // middleware(middleware(...(dispatch)))
	logger      *zap.Logger

	registry      registry.Registry // nil if not using discovery
	serviceName   string
	weight        int
	ttl           int64
	advertiseAddr string // Routable address registered in etcd
}

// NewServer creates a server with no programs.
func NewServer(opts ...Option) *Server {
	svr := &Server{
		programs:    make(map[uint32]*program),
		conns:       make(map[net.Conn]struct{}),
		logger:      zap.NewNop(),
		serviceName: DefaultServiceName,
		weight:      10,
		ttl:         10,
	}
	for _, opt := range opts {
		opt(svr)
	}
	return svr
}

// Register exports version vers of program prog. procs maps procedure
// numbers to their implementation. Procedure 0 answers with no results
// unless procs overrides it. Register must be called before Serve.
func (svr *Server) Register(prog, vers uint32, procs map[uint32]Procedure) error {
	p, ok := svr.programs[prog]
	if !ok {
		p = newProgram(prog)
	}
	if err := p.register(vers, procs); err != nil {
		return err
	}
	svr.programs[prog] = p
	return nil
}

// Programs lists the registered program versions in ascending order.
func (svr *Server) Programs() []ProgramVersion {
	var out []ProgramVersion
	for _, p := range svr.programs {
		out = append(out, p.list()...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Prog != out[j].Prog {
			return out[i].Prog < out[j].Prog
		}
		return out[i].Vers < out[j].Vers
	})
	return out
}

// Use registers a middleware. Middlewares are applied in the order they are added.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// ListenAndServe listens on the TCP address and calls Serve.
func (svr *Server) ListenAndServe(address, advertiseAddr string, reg registry.Registry) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return svr.Serve(listener, advertiseAddr, reg)
}

// Serve accepts connections on listener until Shutdown.
//
// advertiseAddr is registered with reg under the server's service name; it
// differs from the listen address because ":8080" is not routable. Pass a nil
// reg to skip service discovery.
func (svr *Server) Serve(listener net.Listener, advertiseAddr string, reg registry.Registry) error {
	svr.mu.Lock()
	svr.listener = listener
	svr.advertiseAddr = advertiseAddr
	svr.registry = reg
	svr.mu.Unlock()

	// Built once at startup, not per call
	svr.handler = middleware.Chain(svr.middlewares...)(svr.dispatch)

	if reg != nil {
		err := reg.Register(svr.serviceName, registry.ServiceInstance{
			Addr:    advertiseAddr,
			Weight:  svr.weight,
			Version: svr.versionTag(),
		}, svr.ttl) // KeepAlive renews the lease
		if err != nil {
			listener.Close()
			return fmt.Errorf("register %s: %w", svr.serviceName, err)
		}
	}

	svr.logger.Info("serving", zap.String("addr", listener.Addr().String()), zap.String("programs", svr.versionTag()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if svr.shutdown.Load() {
				return nil
			}
			return err
		}
		go svr.handleConn(conn)
	}
}

// Addr returns the listener address, or nil before Serve.
func (svr *Server) Addr() net.Addr {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.listener == nil {
		return nil
	}
	return svr.listener.Addr()
}

// handleConn reads records sequentially and dispatches each call to its own
// goroutine. writeMu keeps concurrent replies from interleaving on the wire.
func (svr *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	if !svr.track(conn) {
		return
	}
	defer svr.untrack(conn)

	writeMu := &sync.Mutex{}
	for {
		record, err := protocol.Decode(conn)
		if err != nil {
			return // Connection closed or framing error
		}
		if !svr.beginCall() {
			return // shutting down, the call is dropped unanswered
		}
		go svr.handleRequest(record, conn, writeMu)
	}
}

func (svr *Server) track(conn net.Conn) bool {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.shutdown.Load() {
		return false
	}
	svr.conns[conn] = struct{}{}
	return true
}

func (svr *Server) untrack(conn net.Conn) {
	svr.mu.Lock()
	delete(svr.conns, conn)
	svr.mu.Unlock()
}

// beginCall counts one more in-flight call unless Shutdown has started.
func (svr *Server) beginCall() bool {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.shutdown.Load() {
		return false
	}
	svr.wg.Add(1)
	return true
}

func (svr *Server) closeConns() {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	for conn := range svr.conns {
		conn.Close()
	}
}

// handleRequest decodes one call, runs it through the middleware chain and
// writes the reply.
func (svr *Server) handleRequest(record []byte, conn net.Conn, writeMu *sync.Mutex) {
	defer svr.wg.Done()

	header, args, err := codec.DecodeCall(record)
	if err != nil {
		svr.logger.Warn("undecodable call, closing connection", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		conn.Close()
		return
	}

	var rep *message.Reply
	if header.RPCVers != message.RPCVersion {
		rep = message.NewDenied(header.Xid, message.RPCMismatch)
		rep.Mismatch = message.MismatchInfo{Low: message.RPCVersion, High: message.RPCVersion}
	} else {
		rep = svr.handler(context.Background(), &message.Request{Header: header, Args: args})
	}

	if rep == nil {
		conn.Close()
		return
	}

	data, err := codec.EncodeReply(rep)
	if err != nil {
		svr.logger.Error("failed to encode reply", zap.Uint32("xid", header.Xid), zap.Error(err))
		conn.Close()
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	if err := protocol.Encode(conn, data); err != nil {
		svr.logger.Debug("failed to write reply", zap.Uint32("xid", header.Xid), zap.Error(err))
	}
}

// dispatch routes a call to its procedure. It has the HandlerFunc signature
// and sits at the center of the middleware chain.
func (svr *Server) dispatch(ctx context.Context, req *message.Request) *message.Reply {
	h := req.Header

	p, ok := svr.programs[h.Prog]
	if !ok {
		return message.NewAccepted(h.Xid, message.ProgUnavail)
	}
	procs, ok := p.versions[h.Vers]
	if !ok {
		rep := message.NewAccepted(h.Xid, message.ProgMismatch)
		rep.Mismatch.Low, rep.Mismatch.High = p.versionRange()
		return rep
	}

	proc, ok := procs[h.Proc]
	if !ok {
		if h.Proc == 0 {
			return message.NewSuccess(h.Xid, nil)
		}
		return message.NewAccepted(h.Xid, message.ProcUnavail)
	}

	body, err := proc(ctx, req.Args)
	switch {
	case err == nil:
		return message.NewSuccess(h.Xid, body)
	case errors.Is(err, ErrNoReply):
		return nil
	case errors.Is(err, ErrGarbageArgs):
		return message.NewAccepted(h.Xid, message.GarbageArgs)
	default:
		svr.logger.Error("procedure failed", zap.Uint32("prog", h.Prog), zap.Uint32("proc", h.Proc), zap.Error(err))
		return message.NewAccepted(h.Xid, message.SystemErr)
	}
}

// Shutdown performs graceful shutdown:
//  1. Set shutdown flag (no new connections or calls are taken)
//  2. Deregister from the registry (clients stop routing to this server)
//  3. Close the listener
//  4. Wait for in-flight calls to finish (with timeout)
//  5. Close every client connection
func (svr *Server) Shutdown(timeout time.Duration) error {
	svr.mu.Lock()
	svr.shutdown.Store(true)
	reg, addr, listener := svr.registry, svr.advertiseAddr, svr.listener
	svr.mu.Unlock()
	defer svr.closeConns()

	if reg != nil {
		if err := reg.Deregister(svr.serviceName, addr); err != nil {
			svr.logger.Warn("deregister failed", zap.Error(err))
		}
	}

	if listener != nil {
		listener.Close()
	}

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for ongoing calls to finish")
	}
}

// versionTag lists the registered programs, the Version advertised to the
// registry.
func (svr *Server) versionTag() string {
	var parts []string
	for _, pv := range svr.Programs() {
		parts = append(parts, registry.ProgramTag(pv.Prog, pv.Vers))
	}
	return strings.Join(parts, ",")
}
