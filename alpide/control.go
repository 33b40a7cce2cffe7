package alpide

import "github.com/sarchlab/alpidesim/sim"

// BroadcastChipID addresses every chip on a control link.
const BroadcastChipID uint8 = 0x0F

// ControlCommand is a command sent to the chips on a control link.
type ControlCommand struct {
	Opcode  uint8
	ChipID  uint8
	Address uint16
	Data    uint16
}

// TriggerCommand returns a broadcast TRIGGER command. The data field carries
// the increment of the trigger id since the previous trigger.
func TriggerCommand(increment uint16) ControlCommand {
	return ControlCommand{
		Opcode: OpcodeTrigger,
		ChipID: BroadcastChipID,
		Data:   increment,
	}
}

// ReadoutResetCommand returns a broadcast RORST command.
func ReadoutResetCommand() ControlCommand {
	return ControlCommand{
		Opcode: OpcodeRORST,
		ChipID: BroadcastChipID,
	}
}

// ControlTarget accepts control commands. Transport is synchronous and
// completes within the current tick.
type ControlTarget interface {
	Transport(cmd ControlCommand) error
}

// DataPayload is what a chip puts on its data link in one clock cycle: three
// bytes on an inner barrel link, one byte on an outer barrel link.
type DataPayload struct {
	Time      sim.VTimeInNs
	ChipID    int
	Data      [3]byte
	Len       int
	TriggerID uint64
}

// Bytes returns the valid bytes of the payload.
func (p DataPayload) Bytes() []byte {
	return p.Data[:p.Len]
}

// DataSink receives the serial output of a chip.
type DataSink interface {
	ReceiveData(p DataPayload)
}

// PixelSink accepts pixel hits from an event source.
type PixelSink interface {
	InjectHit(col, row int, t sim.VTimeInNs) error
}
