package packetbuf

import "fmt"

// EgressState is the read-side machine: it waits for a packet to become
// addressable, accepts stream/drop commands for the front packet, and drains
// one flit per tick until the packet boundary.
type EgressState uint8

const (
	EgressIdle EgressState = iota
	EgressReady
	EgressStreaming
	EgressDumping
)

func (s EgressState) String() string {
	switch s {
	case EgressIdle:
		return "IDLE"
	case EgressReady:
		return "CONTROL_READY"
	case EgressStreaming:
		return "STREAMING"
	case EgressDumping:
		return "DUMPING"
	default:
		return fmt.Sprintf("[UNKNOWN=%d]", uint8(s))
	}
}
