package alpide

import "github.com/sarchlab/alpidesim/sim"

type dtuSlot struct {
	data      [3]byte
	len       int
	triggerID uint64
}

// dataTransmission moves one word slot from the busy and DMU FIFOs to the
// data link. Inner barrel chips send up to 3 bytes per cycle. Outer barrel
// masters send 1 byte per cycle, interleaving their own frames with the
// frames of their slaves. Slaves do not transmit.
func (c *Chip) dataTransmission(now sim.VTimeInNs) {
	if c.obMode && !c.obMaster {
		return
	}

	var slot dtuSlot
	if c.obMode {
		slot = dtuSlot{data: [3]byte{c.nextOBByte(), TagIdle, TagIdle}, len: 1}
	} else {
		w := c.nextIBWord()
		slot = dtuSlot{data: w.Bytes, len: 3}
	}

	slot.triggerID = c.dataOutTrigID
	out := c.delayThroughDTU(slot)

	if c.sink == nil {
		return
	}

	c.sink.ReceiveData(DataPayload{
		Time:      now,
		ChipID:    c.globalID,
		Data:      out.data,
		Len:       out.len,
		TriggerID: out.triggerID,
	})
}

func (c *Chip) nextIBWord() DataWord {
	w := IdleWord()

	switch {
	case c.busyFIFO.Size() > 0:
		w = c.busyFIFO.Pop().(DataWord)
	case !c.linkStalled && c.dmuFIFO.Size() > 0:
		w = c.dmuFIFO.Pop().(DataWord)
	}

	if w.Type == ChipHeader || w.Type == ChipEmptyFrame {
		c.dataOutTrigID = w.TriggerID
	}

	return w
}

// nextOBByte returns the next byte of an outer barrel link. Busy words are
// only inserted between words. The token passes to the next chip after a
// CHIP_TRAILER or CHIP_EMPTY_FRAME, which are followed by one IDLE byte.
func (c *Chip) nextOBByte() byte {
	if c.busyFIFO.Size() > 0 && c.obBytesRemaining == 0 {
		w := c.busyFIFO.Pop().(DataWord)
		return w.Bytes[0]
	}

	if c.obBytesRemaining == 0 {
		c.loadOBWord()
	}

	b := c.obWord.Bytes[c.obByteIndex]
	c.obByteIndex++
	c.obBytesRemaining--

	return b
}

func (c *Chip) loadOBWord() {
	c.obSel = c.obNextSel

	src := c.dmuFIFO
	if c.obSel < len(c.slaves) {
		src = c.slaves[c.obSel].dmuFIFO
	}

	w := IdleWord()
	if !c.linkStalled && src.Size() > 0 {
		w = src.Pop().(DataWord)
	}

	c.obWord = w
	c.obByteIndex = 0
	c.obBytesRemaining = w.Size

	switch w.Type {
	case ChipTrailer, ChipEmptyFrame:
		c.obBytesRemaining++
		c.obNextSel = (c.obSel + 1) % (len(c.slaves) + 1)
	}

	if w.Type == ChipHeader || w.Type == ChipEmptyFrame {
		c.dataOutTrigID = w.TriggerID
	}
}

func (c *Chip) delayThroughDTU(in dtuSlot) dtuSlot {
	if len(c.dtu) == 0 {
		return in
	}

	out := c.dtu[c.dtuHead]
	c.dtu[c.dtuHead] = in
	c.dtuHead = (c.dtuHead + 1) % len(c.dtu)

	return out
}

func (c *Chip) fillDTU(delay int) {
	n := 3
	if c.obMode {
		n = 1
	}

	c.dtu = make([]dtuSlot, delay)
	for i := range c.dtu {
		c.dtu[i] = dtuSlot{
			data: [3]byte{TagIdle, TagIdle, TagIdle},
			len:  n,
		}
	}

	c.dtuHead = 0
}
