package dds

// DelayModel is the caller-facing DDSPAPUPDATE result.
//
// A, B and C are the delay polynomial precursors. The server sends them as
// doubles; they are kept as float64 so that no value is truncated on the way
// to the caller even though the server normally sends integral values.
type DelayModel struct {
	SourceRightAscension float64            `json:"rA"`
	ReferenceLatitude    float64            `json:"refLat"`
	ReferenceLongitude   float64            `json:"refLong"`
	ReferenceRadius      float64            `json:"refRad"`
	AntennaExists        [NAntennas]int32   `json:"antennaExists"`
	A                    [NAntennas]float64 `json:"a"`
	B                    [NAntennas]float64 `json:"b"`
	C                    [NAntennas]float64 `json:"c"`
}

// Exists reports whether the server flagged antenna as present. Any nonzero
// flag counts; out-of-range indices report false.
func (m *DelayModel) Exists(antenna int) bool {
	if antenna < 0 || antenna >= NAntennas {
		return false
	}
	return m.AntennaExists[antenna] != 0
}

// DecodeDelayModel copies a DDSPAPUPDATE result into a new DelayModel.
//
// The copy is positional and verbatim: no unit conversion, no range checks,
// NaN passes through. A nil response fails with ErrNullResponse. The result
// shares no memory with w.
func DecodeDelayModel(w *DDSToPAP) (*DelayModel, error) {
	if w == nil {
		return nil, ErrNullResponse
	}

	// Arrays are values in Go; assignment copies every element.
	return &DelayModel{
		SourceRightAscension: w.RA,
		ReferenceLatitude:    w.RefLat,
		ReferenceLongitude:   w.RefLong,
		ReferenceRadius:      w.RefRad,
		AntennaExists:        w.AntennaExists,
		A:                    w.A,
		B:                    w.B,
		C:                    w.C,
	}, nil
}
