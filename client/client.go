// Package client is the caller-facing DDS API.
//
// Every operation is one synchronous call on its own connection. Input is
// validated before dialing. A failed call is not retried and returns no
// partial result.
package client

import (
	"fmt"

	"dds-rpc/dds"
	"dds-rpc/transport"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client issues DDS calls. It holds configuration only and is safe for
// concurrent use.
type Client struct {
	dialer   transport.Dialer
	logger   *zap.Logger
	observer func(Transition)
}

type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithPortmapperPort changes where bare host names are resolved.
func WithPortmapperPort(port int) Option {
	return func(c *Client) { c.dialer.PortmapperPort = port }
}

// WithObserver registers fn to receive every state transition of every
// call. fn runs synchronously on the calling goroutine.
func WithObserver(fn func(Transition)) Option {
	return func(c *Client) { c.observer = fn }
}

func New(opts ...Option) *Client {
	c := &Client{
		dialer: transport.Dialer{Timeout: transport.DefaultTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendPhases submits one phase offset per antenna to host and returns the
// delay model it answers with.
//
// host is a name or address, optionally with ":port"; without a port the
// DDS program is located through the host's portmapper. Errors wrap one of
// dds.ErrSizeMismatch, dds.ErrTypeMismatch, dds.ErrConnectFailure,
// dds.ErrNullResponse or dds.ErrBuildFailure. Size and type are checked
// before any network activity.
func (c *Client) SendPhases(host string, phases []any) (*dds.DelayModel, error) {
	cl := c.newCall(host, dds.ProcPAPUpdate)
	cmd, err := dds.EncodePhases(phases)
	if err != nil {
		return nil, cl.fail(err)
	}
	return c.papUpdate(cl, cmd)
}

// SendPhaseVector is SendPhases for an already typed vector.
func (c *Client) SendPhaseVector(host string, v dds.PhaseOffsetVector) (*dds.DelayModel, error) {
	return c.papUpdate(c.newCall(host, dds.ProcPAPUpdate), v.Command())
}

func (c *Client) papUpdate(cl *call, cmd *dds.PAPToDDS) (*dds.DelayModel, error) {
	var w dds.DDSToPAP
	if err := cl.invoke(cmd, &w); err != nil {
		return nil, err
	}
	m, err := dds.DecodeDelayModel(&w)
	if err != nil {
		return nil, cl.fail(err)
	}
	cl.done()
	return m, nil
}

// GetWalshPattern fetches the Walsh phase-switching table of host. Errors
// wrap dds.ErrConnectFailure, dds.ErrNullResponse or dds.ErrBuildFailure.
func (c *Client) GetWalshPattern(host string) (dds.WalshPatternTable, error) {
	cl := c.newCall(host, dds.ProcGetWalshPatterns)

	var w dds.DDSWalshPackage
	if err := cl.invoke(&dds.DDSCommand{}, &w); err != nil {
		return nil, err
	}
	table, err := dds.DecodeWalshPatterns(&w)
	if err != nil {
		return nil, cl.fail(err)
	}
	cl.done()
	return table, nil
}

// Ping calls the NULL procedure of the DDS program on host.
func (c *Client) Ping(host string) error {
	cl := c.newCall(host, dds.ProcNull)
	if err := cl.invoke(nil, nil); err != nil {
		return err
	}
	cl.done()
	return nil
}

// call tracks one operation through its states.
type call struct {
	c      *Client
	id     string
	host   string
	proc   uint32
	state  State
	logger *zap.Logger
}

func (c *Client) newCall(host string, proc uint32) *call {
	id := uuid.NewString()
	return &call{
		c:      c,
		id:     id,
		host:   host,
		proc:   proc,
		state:  Idle,
		logger: c.logger.With(zap.String("call_id", id), zap.String("host", host), zap.Uint32("proc", proc)),
	}
}

func (cl *call) to(next State, err error) {
	t := Transition{CallID: cl.id, Host: cl.host, Proc: cl.proc, From: cl.state, To: next, Err: err}
	cl.state = next

	if err != nil {
		cl.logger.Warn("call failed", zap.Stringer("from", t.From), zap.String("kind", dds.Kind(err)), zap.Error(err))
	} else {
		cl.logger.Debug("call state", zap.Stringer("from", t.From), zap.Stringer("state", next))
	}
	if cl.c.observer != nil {
		cl.c.observer(t)
	}
}

func (cl *call) fail(err error) error {
	cl.to(Failed, err)
	return err
}

func (cl *call) done() {
	cl.to(Done, nil)
}

// invoke runs the network part of the call on a connection it owns. The
// connection is closed before invoke returns, on every path.
func (cl *call) invoke(args, reply any) error {
	cl.to(Connecting, nil)
	tr, err := cl.c.dialer.Dial(cl.host, dds.Program, dds.Version)
	if err != nil {
		return cl.fail(fmt.Errorf("%w: %s: %w", dds.ErrConnectFailure, cl.host, err))
	}
	defer tr.Close()

	cl.to(AwaitingResponse, nil)
	if err := tr.Call(cl.proc, args, reply); err != nil {
		return cl.fail(fmt.Errorf("%w: %s: %w", dds.ErrNullResponse, cl.host, err))
	}

	cl.to(Decoding, nil)
	return nil
}
