package server

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"dds-rpc/codec"
)

var (
	// ErrGarbageArgs makes the server answer GARBAGE_ARGS.
	ErrGarbageArgs = errors.New("rpc: cannot decode arguments")
	// ErrNoReply makes the server drop the call and close the connection
	// without answering, like an rpcgen procedure returning NULL.
	ErrNoReply = errors.New("rpc: no reply")
)

// Procedure serves one remote procedure. args holds the XDR-encoded
// arguments; the returned bytes are the XDR-encoded results. Any error other
// than ErrGarbageArgs or ErrNoReply is answered with SYSTEM_ERR.
type Procedure func(ctx context.Context, args []byte) ([]byte, error)

// Typed adapts a function over decoded values into a Procedure. A nil result
// with a nil error means no reply.
func Typed[A, R any](fn func(ctx context.Context, args *A) (*R, error)) Procedure {
	cdc := codec.GetCodec(codec.CodecTypeXDR)
	return func(ctx context.Context, data []byte) ([]byte, error) {
		args := new(A)
		if err := cdc.Decode(data, args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGarbageArgs, err)
		}
		result, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, ErrNoReply
		}
		return cdc.Encode(result)
	}
}

// ProgramVersion identifies one registered program version.
type ProgramVersion struct {
	Prog uint32
	Vers uint32
}

// program holds the procedure tables of every registered version.
type program struct {
	prog     uint32
	versions map[uint32]map[uint32]Procedure
}

func newProgram(prog uint32) *program {
	return &program{prog: prog, versions: make(map[uint32]map[uint32]Procedure)}
}

func (p *program) register(vers uint32, procs map[uint32]Procedure) error {
	if _, ok := p.versions[vers]; ok {
		return fmt.Errorf("rpc: program %#x version %d already registered", p.prog, vers)
	}
	table := make(map[uint32]Procedure, len(procs))
	for num, proc := range procs {
		if proc == nil {
			return fmt.Errorf("rpc: program %#x version %d procedure %d is nil", p.prog, vers, num)
		}
		table[num] = proc
	}
	p.versions[vers] = table
	return nil
}

// versionRange returns the lowest and highest registered versions.
func (p *program) versionRange() (low, high uint32) {
	first := true
	for v := range p.versions {
		if first || v < low {
			low = v
		}
		if first || v > high {
			high = v
		}
		first = false
	}
	return low, high
}

func (p *program) list() []ProgramVersion {
	out := make([]ProgramVersion, 0, len(p.versions))
	for v := range p.versions {
		out = append(out, ProgramVersion{Prog: p.prog, Vers: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vers < out[j].Vers })
	return out
}
