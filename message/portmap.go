package message

// Portmapper (rpcbind version 2) program contract.
const (
	PortmapProgram uint32 = 100000
	PortmapVersion uint32 = 2
	PortmapPort           = 111

	PortmapProcNull    uint32 = 0
	PortmapProcSet     uint32 = 1
	PortmapProcUnset   uint32 = 2
	PortmapProcGetPort uint32 = 3

	IPProtoTCP uint32 = 6
	IPProtoUDP uint32 = 17
)

// Mapping is a portmapper entry: the port a program version listens on.
type Mapping struct {
	Prog uint32
	Vers uint32
	Prot uint32
	Port uint32
}
