// Package dds holds the Digital Delay System program contract: the XDR wire
// records for the phase update and Walsh pattern procedures, the encoder that
// turns caller phase offsets into a wire command, and the decoders that turn
// wire responses into caller-owned results.
//
// Field order in every wire struct is the XDR order; do not reorder.
package dds

// Program contract.
const (
	Program uint32 = 0x20000101 // DDSPROG
	Version uint32 = 1          // DDSVERS

	ProcNull             uint32 = 0
	ProcPAPUpdate        uint32 = 13 // DDSPAPUPDATE
	ProcGetWalshPatterns uint32 = 17 // DDSGETWALSHPATTERNS
)

// NAntennas is DDS_N_ANTENNAS: the length of every per-antenna array.
const NAntennas = 11

// ClientNameLen is the fixed length of DDSCommand.Client.
const ClientNameLen = 20

// PAPToDDS is the phase command sent to DDSPAPUPDATE.
type PAPToDDS struct {
	PhaseOffsets [NAntennas]float64
}

// DDSToPAP is the DDSPAPUPDATE result: astrometric reference values and the
// per-antenna delay polynomial precursors.
type DDSToPAP struct {
	RA            float64
	RefLat        float64
	RefLong       float64
	RefRad        float64
	AntennaExists [NAntennas]int32
	A             [NAntennas]float64
	B             [NAntennas]float64
	C             [NAntennas]float64
}

// DDSCommand is the generic DDS request. DDSGETWALSHPATTERNS ignores its
// contents; a zero value is sent.
type DDSCommand struct {
	Command      int32
	Antenna      int32
	Receiver     int32
	RefFrequency float64
	FringeRate1  [NAntennas]float64
	FringeRate2  [NAntennas]float64
	Phase1       [NAntennas]float64
	Phase2       [NAntennas]float64
	// char client[20]: rpcgen encodes each char as an XDR int.
	Client [ClientNameLen]int32
}

// DDSWalshPattern is one antenna's phase-switch step sequence.
type DDSWalshPattern struct {
	Step []int32
}

// DDSWalshPackage is the DDSGETWALSHPATTERNS result, indexed by antenna.
type DDSWalshPackage struct {
	Pattern []DDSWalshPattern
}
