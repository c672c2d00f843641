package dds

import (
	"fmt"
	"sort"
)

// Limits applied while building a WalshPatternTable. The hardware holds at
// most a few hundred steps per antenna; larger packages are rejected rather
// than handed to the caller.
const (
	MaxWalshPatterns = 256
	MaxWalshSteps    = 4096
)

// WalshPatternTable maps an antenna index to its ordered phase-switch steps.
type WalshPatternTable map[int][]int

// Antennas returns the table keys in ascending order.
func (t WalshPatternTable) Antennas() []int {
	keys := make([]int, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// DecodeWalshPatterns builds a WalshPatternTable from a DDSGETWALSHPATTERNS
// result.
//
// With nPatterns = len(w.Pattern), the table holds antennas 1 .. nPatterns-1;
// slot 0 of the package is never reported. Each antenna's steps are copied in
// order into a fresh slice, whatever its length. Any failure discards the
// whole table: the caller gets either every antenna or an error.
func DecodeWalshPatterns(w *DDSWalshPackage) (WalshPatternTable, error) {
	if w == nil {
		return nil, ErrNullResponse
	}

	nPatterns := len(w.Pattern)
	if nPatterns > MaxWalshPatterns {
		return nil, fmt.Errorf("%w: %d walsh patterns exceeds limit %d", ErrBuildFailure, nPatterns, MaxWalshPatterns)
	}

	size := 0
	if nPatterns > 1 {
		size = nPatterns - 1
	}
	table := make(WalshPatternTable, size)

	for antenna := 1; antenna < nPatterns; antenna++ {
		steps := w.Pattern[antenna].Step
		if len(steps) > MaxWalshSteps {
			return nil, fmt.Errorf("%w: antenna %d has %d walsh steps, limit %d", ErrBuildFailure, antenna, len(steps), MaxWalshSteps)
		}
		seq := make([]int, len(steps))
		for i, s := range steps {
			seq[i] = int(s)
		}
		table[antenna] = seq
	}
	return table, nil
}
