// Package simulator is a stand-in DDS server. DDSPAPUPDATE records the phase
// offsets and answers with a configured delay model; DDSGETWALSHPATTERNS
// answers with sequency-ordered Walsh functions, row k for wire slot k.
package simulator

import (
	"context"
	"errors"
	"sync"

	"dds-rpc/dds"
	"dds-rpc/server"

	"go.uber.org/zap"
)

var errInjected = errors.New("simulator: injected fault")

type Simulator struct {
	cfg    Config
	model  dds.DDSToPAP
	walsh  dds.DDSWalshPackage
	logger *zap.Logger

	mu      sync.Mutex
	last    dds.PhaseOffsetVector
	updates int
}

// New validates cfg and precomputes the responses.
func New(cfg Config, logger *zap.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Simulator{
		cfg: cfg,
		model: dds.DDSToPAP{
			RA:            cfg.RA,
			RefLat:        cfg.RefLat,
			RefLong:       cfg.RefLong,
			RefRad:        cfg.RefRad,
			AntennaExists: cfg.AntennaExists,
			A:             cfg.A,
			B:             cfg.B,
			C:             cfg.C,
		},
		logger: logger,
	}

	s.walsh.Pattern = make([]dds.DDSWalshPattern, WalshSlots)
	for slot := range s.walsh.Pattern {
		steps, err := WalshSteps(cfg.walshLength(slot), slot)
		if err != nil {
			return nil, err
		}
		s.walsh.Pattern[slot].Step = steps
	}
	return s, nil
}

// Register exports the DDS program on svr.
func (s *Simulator) Register(svr *server.Server) error {
	return svr.Register(dds.Program, dds.Version, map[uint32]server.Procedure{
		dds.ProcPAPUpdate:        server.Typed(s.papUpdate),
		dds.ProcGetWalshPatterns: server.Typed(s.getWalshPatterns),
	})
}

// LastPhases returns the most recent phase offsets received and whether any
// update arrived yet.
func (s *Simulator) LastPhases() (dds.PhaseOffsetVector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.updates > 0
}

// Updates counts DDSPAPUPDATE calls served.
func (s *Simulator) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

func (s *Simulator) fault() error {
	switch s.cfg.Fault {
	case FaultDrop:
		return server.ErrNoReply
	case FaultSystemErr:
		return errInjected
	}
	return nil
}

func (s *Simulator) papUpdate(ctx context.Context, cmd *dds.PAPToDDS) (*dds.DDSToPAP, error) {
	s.mu.Lock()
	s.last = dds.PhaseOffsetVector(cmd.PhaseOffsets)
	s.updates++
	s.mu.Unlock()

	s.logger.Debug("phase update", zap.Float64s("phases", cmd.PhaseOffsets[:]))
	if err := s.fault(); err != nil {
		return nil, err
	}
	model := s.model
	return &model, nil
}

func (s *Simulator) getWalshPatterns(ctx context.Context, cmd *dds.DDSCommand) (*dds.DDSWalshPackage, error) {
	if err := s.fault(); err != nil {
		return nil, err
	}
	return &s.walsh, nil
}
