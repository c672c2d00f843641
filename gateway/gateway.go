// Package gateway exposes the DDS client over JSON-RPC 2.0 on HTTP for
// callers that cannot speak ONC RPC. Methods:
//
//	DDS.SendPhases      {"host": "...", "phases": [11 numbers]}  → delay model
//	DDS.GetWalshPattern {"host": "..."}                          → {"patterns": {"1": [...], ...}}
//
// Phases arrive as untyped JSON values, so non-numeric entries surface as
// TypeMismatch. Failures are JSON-RPC errors whose data carries the kind.
package gateway

import (
	"net/http"

	"dds-rpc/client"
	"dds-rpc/dds"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"
)

// ServiceName prefixes every gateway method.
const ServiceName = "DDS"

type SendPhasesArgs struct {
	Host   string `json:"host"`
	Phases []any  `json:"phases"`
}

type WalshArgs struct {
	Host string `json:"host"`
}

type WalshReply struct {
	Patterns dds.WalshPatternTable `json:"patterns"`
}

// ErrorData is attached to every JSON-RPC error the gateway returns.
type ErrorData struct {
	Kind string `json:"kind"`
}

// Service is the DDS JSON-RPC service.
type Service struct {
	client *client.Client
	logger *zap.Logger
}

func (s *Service) SendPhases(r *http.Request, args *SendPhasesArgs, reply *dds.DelayModel) error {
	m, err := s.client.SendPhases(args.Host, args.Phases)
	if err != nil {
		return s.rpcError("SendPhases", args.Host, err)
	}
	*reply = *m
	return nil
}

func (s *Service) GetWalshPattern(r *http.Request, args *WalshArgs, reply *WalshReply) error {
	table, err := s.client.GetWalshPattern(args.Host)
	if err != nil {
		return s.rpcError("GetWalshPattern", args.Host, err)
	}
	reply.Patterns = table
	return nil
}

func (s *Service) rpcError(method, host string, err error) error {
	kind := dds.Kind(err)
	s.logger.Info("gateway call failed", zap.String("method", method), zap.String("host", host), zap.String("kind", kind), zap.Error(err))

	code := json2.E_SERVER
	if kind == "SizeMismatch" || kind == "TypeMismatch" {
		code = json2.E_BAD_PARAMS
	}
	return &json2.Error{Code: code, Message: err.Error(), Data: ErrorData{Kind: kind}}
}

// New returns an HTTP handler serving the DDS service through c.
func New(c *client.Client, logger *zap.Logger) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	if err := s.RegisterService(&Service{client: c, logger: logger}, ServiceName); err != nil {
		return nil, err
	}
	return s, nil
}
