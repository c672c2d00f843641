package simulator

import (
	"fmt"

	"dds-rpc/dds"
)

// Fault modes make the simulator misbehave on purpose.
const (
	FaultNone      = ""
	FaultDrop      = "drop"       // close the connection without replying
	FaultSystemErr = "system_err" // answer SYSTEM_ERR
)

// DefaultWalshLength is the step count of every pattern unless configured.
const DefaultWalshLength = 16

// Config is the delay model the simulator returns and the shape of its
// Walsh patterns.
type Config struct {
	RA            float64                `json:"rA"`
	RefLat        float64                `json:"refLat"`
	RefLong       float64                `json:"refLong"`
	RefRad        float64                `json:"refRad"`
	AntennaExists [dds.NAntennas]int32   `json:"antennaExists"`
	A             [dds.NAntennas]float64 `json:"a"`
	B             [dds.NAntennas]float64 `json:"b"`
	C             [dds.NAntennas]float64 `json:"c"`

	// WalshLengths holds one step count per wire slot 0..NAntennas. Each is
	// zero or a power of two greater than the slot index. Nil means
	// DefaultWalshLength everywhere.
	WalshLengths []int `json:"walshLengths,omitempty"`

	Fault string `json:"fault,omitempty"`
}

// DefaultConfig returns a two-antenna array at a reference radius of one
// Earth radius.
func DefaultConfig() Config {
	return Config{
		RA:            1.23,
		RefLat:        0.45,
		RefLong:       -0.67,
		RefRad:        6371000.0,
		AntennaExists: [dds.NAntennas]int32{1, 1},
		A:             [dds.NAntennas]float64{10, 20},
		B:             [dds.NAntennas]float64{1, 2},
		C:             [dds.NAntennas]float64{5, 6},
	}
}

// WalshSlots is the number of patterns served: slot 0 plus one per antenna.
const WalshSlots = dds.NAntennas + 1

func (c *Config) walshLength(slot int) int {
	if c.WalshLengths == nil {
		return DefaultWalshLength
	}
	return c.WalshLengths[slot]
}

func (c *Config) Validate() error {
	switch c.Fault {
	case FaultNone, FaultDrop, FaultSystemErr:
	default:
		return fmt.Errorf("unknown fault mode %q", c.Fault)
	}
	if c.WalshLengths == nil {
		return nil
	}
	if len(c.WalshLengths) != WalshSlots {
		return fmt.Errorf("walshLengths holds %d entries, want %d", len(c.WalshLengths), WalshSlots)
	}
	for slot, n := range c.WalshLengths {
		if n == 0 {
			continue
		}
		if n < 0 || n&(n-1) != 0 {
			return fmt.Errorf("walshLengths[%d] = %d is not a power of two", slot, n)
		}
		if n <= slot {
			return fmt.Errorf("walshLengths[%d] = %d has no row %d", slot, n, slot)
		}
		if n > dds.MaxWalshSteps {
			return fmt.Errorf("walshLengths[%d] = %d exceeds %d", slot, n, dds.MaxWalshSteps)
		}
	}
	return nil
}
