package packetbuf

import "fmt"

// IngestState is the write-side machine: it watches the incoming flit stream
// and delimits packets by reading each header's length field.
type IngestState uint8

const (
	IngestIdle IngestState = iota
	IngestHeader
	IngestBody
)

func (s IngestState) String() string {
	switch s {
	case IngestIdle:
		return "IDLE"
	case IngestHeader:
		return "READING_HEADER"
	case IngestBody:
		return "READING_BODY"
	default:
		return fmt.Sprintf("[UNKNOWN=%d]", uint8(s))
	}
}
