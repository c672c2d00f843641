package dds

import (
	"encoding/json"
	"fmt"
)

// PhaseOffsetVector holds one phase offset per antenna, indexed by antenna.
type PhaseOffsetVector [NAntennas]float64

// Command returns the wire command for v.
func (v PhaseOffsetVector) Command() *PAPToDDS {
	return &PAPToDDS{PhaseOffsets: [NAntennas]float64(v)}
}

// NewPhaseOffsetVector validates dynamically typed phase offsets.
//
// values must hold exactly NAntennas elements, otherwise ErrSizeMismatch.
// Each element must be a Go integer or floating-point value or a json.Number;
// integers are promoted to float64. Anything else (bool, string, nil, ...)
// fails the whole conversion with ErrTypeMismatch. Magnitudes are not
// clamped and NaN or Inf pass through.
func NewPhaseOffsetVector(values []any) (PhaseOffsetVector, error) {
	if len(values) != NAntennas {
		return PhaseOffsetVector{}, fmt.Errorf("%w: got %d values, want %d", ErrSizeMismatch, len(values), NAntennas)
	}

	var v PhaseOffsetVector
	for i, value := range values {
		f, ok := toFloat64(value)
		if !ok {
			return PhaseOffsetVector{}, fmt.Errorf("%w: antenna %d holds %T", ErrTypeMismatch, i, value)
		}
		v[i] = f
	}
	return v, nil
}

// EncodePhases converts caller phase offsets into the DDSPAPUPDATE command.
// Validation happens here, before any network activity.
func EncodePhases(values []any) (*PAPToDDS, error) {
	v, err := NewPhaseOffsetVector(values)
	if err != nil {
		return nil, err
	}
	return v.Command(), nil
}

func toFloat64(value any) (float64, bool) {
	switch x := value.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
