package readoutunit

// TriggerAction is what a Readout Unit did with a trigger on one control
// link. The values are those of the trigger actions file.
type TriggerAction uint8

// Trigger actions.
const (
	TriggerSent        TriggerAction = 0
	TriggerNotSentBusy TriggerAction = 1
	TriggerFiltered    TriggerAction = 2
)

func (a TriggerAction) String() string {
	switch a {
	case TriggerSent:
		return "SENT"
	case TriggerNotSentBusy:
		return "NOT_SENT_BUSY"
	case TriggerFiltered:
		return "FILTERED"
	default:
		return "UNKNOWN"
	}
}

// TriggerStats counts the triggers of one control link.
type TriggerStats struct {
	Received    uint64
	Sent        uint64
	Filtered    uint64
	NotSentBusy uint64
}

func (s *TriggerStats) record(a TriggerAction) {
	s.Received++

	switch a {
	case TriggerSent:
		s.Sent++
	case TriggerNotSentBusy:
		s.NotSentBusy++
	case TriggerFiltered:
		s.Filtered++
	}
}
