// Package parser decodes the serial data stream of ALPIDE chips. It counts
// the protocol words on a link, tracks the busy state that the chips signal,
// and rebuilds the frames that the chips read out.
package parser

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/sim"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// HookPosBusyChange marks that a BUSY_ON or BUSY_OFF word was parsed. The
// hook item is the BusyEvent that was opened or closed.
var HookPosBusyChange = &sim.HookPos{Name: "BusyChange"}

// HookPosFrameComplete marks that a CHIP_TRAILER or CHIP_EMPTY_FRAME word
// completed a frame. The hook item is the *Frame.
var HookPosFrameComplete = &sim.HookPos{Name: "FrameComplete"}

// HookPosUnknownByte marks a byte that does not start any known word.
var HookPosUnknownByte = &sim.HookPos{Name: "UnknownByte"}

// BusyEvent is one interval between a BUSY_ON and a BUSY_OFF word.
type BusyEvent struct {
	OnTime       sim.VTimeInNs
	OffTime      sim.VTimeInNs
	OnTriggerID  uint64
	OffTriggerID uint64
	Open         bool
}

// Parser classifies every byte of one data link.
type Parser struct {
	*sim.HookableBase

	name             string
	logger           *slog.Logger
	dataRateInterval sim.VTimeInNs
	saveFrames       bool
	includeHits      bool

	pending     []byte
	pendingTime sim.VTimeInNs
	pendingTrig uint64

	inFrame       bool
	currentRegion int
	frames        []*Frame

	currentTriggerID uint64
	busy             bool
	busyEvents       []BusyEvent

	wordCounts [alpide.NumDataTypes]uint64
	byteCounts [alpide.NumDataTypes]uint64
	dataRate   map[uint64]uint64

	busyViolations     map[int][]uint64
	flushedIncompletes map[int][]uint64
	readoutAborts      map[int][]uint64
	fatals             map[int][]uint64
}

// Name returns the name of the parser.
func (p *Parser) Name() string {
	return p.name
}

// SetCurrentTriggerID sets the trigger id recorded in busy events. The
// Readout Unit updates it whenever it distributes a trigger.
func (p *Parser) SetCurrentTriggerID(id uint64) {
	p.currentTriggerID = id
}

// ReceiveData parses all the bytes of a payload.
func (p *Parser) ReceiveData(payload alpide.DataPayload) {
	for _, b := range payload.Bytes() {
		p.InputByte(b, payload.TriggerID, payload.Time)
	}
}

// InputByte parses one byte. trigID is the id of the frame being sent by the
// chip and now the time the byte arrived.
func (p *Parser) InputByte(b byte, trigID uint64, now sim.VTimeInNs) {
	if len(p.pending) == 0 {
		p.pendingTime = now
		p.pendingTrig = trigID
	}

	p.pending = append(p.pending, b)
	if len(p.pending) < alpide.WordSize(p.pending[0]) {
		return
	}

	w := alpide.ParseWord(p.pending)
	p.pending = p.pending[:0]

	if w.Type == alpide.Comma && p.inFrame {
		w.Type = alpide.ChipTrailer
	}

	p.handleWord(w, p.pendingTrig, p.pendingTime)
}

func (p *Parser) handleWord(w alpide.DataWord, trigID uint64, now sim.VTimeInNs) {
	p.wordCounts[w.Type]++
	p.byteCounts[w.Type] += uint64(w.Size)

	if carriesData(w.Type) {
		p.dataRate[uint64(now/p.dataRateInterval)] += uint64(w.Size)
	}

	switch w.Type {
	case alpide.ChipHeader:
		p.startFrame(w, trigID, false)
	case alpide.ChipEmptyFrame:
		p.startFrame(w, trigID, true)
		p.completeFrame(now)
	case alpide.ChipTrailer:
		p.endFrame(w, now)
	case alpide.RegionHeader:
		p.currentRegion = w.Region()
	case alpide.DataShort, alpide.DataLong:
		p.addHits(w)
	case alpide.BusyOn:
		p.busyOn(now)
	case alpide.BusyOff:
		p.busyOff(now)
	case alpide.Unknown:
		p.logger.Debug("unknown byte",
			"time", now, "byte", fmt.Sprintf("0x%02X", w.Bytes[0]))
		p.InvokeHook(sim.HookCtx{
			Domain: p,
			Now:    now,
			Pos:    HookPosUnknownByte,
			Item:   w.Bytes[0],
		})
	}
}

func carriesData(t alpide.DataType) bool {
	switch t {
	case alpide.ChipHeader, alpide.ChipTrailer, alpide.ChipEmptyFrame,
		alpide.RegionHeader, alpide.RegionTrailer,
		alpide.DataShort, alpide.DataLong:
		return true
	default:
		return false
	}
}

func (p *Parser) startFrame(w alpide.DataWord, trigID uint64, empty bool) {
	if !p.saveFrames && len(p.frames) > 0 {
		p.frames = p.frames[:0]
	}

	p.frames = append(p.frames, &Frame{
		ChipID:    int(w.Bytes[0] & 0x0F),
		Timestamp: w.Bytes[1],
		TriggerID: trigID,
		Empty:     empty,
		hits:      make(map[alpide.PixelHit]struct{}),
	})

	p.inFrame = !empty
}

func (p *Parser) endFrame(w alpide.DataWord, now sim.VTimeInNs) {
	p.inFrame = false

	f := p.lastFrame()
	if f == nil || f.Completed {
		p.logger.Debug("trailer outside a frame", "time", now)
		return
	}

	f.Flags = w.Flags()
	p.recordFlags(f)
	p.completeFrame(now)
}

func (p *Parser) completeFrame(now sim.VTimeInNs) {
	f := p.lastFrame()
	f.Completed = true

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Now:    now,
		Pos:    HookPosFrameComplete,
		Item:   f,
	})
}

func (p *Parser) recordFlags(f *Frame) {
	switch {
	case f.Fatal():
		p.fatals[f.ChipID] = append(p.fatals[f.ChipID], f.TriggerID)
	case f.ReadoutAbort():
		p.readoutAborts[f.ChipID] = append(p.readoutAborts[f.ChipID], f.TriggerID)
	case f.BusyViolation():
		p.busyViolations[f.ChipID] =
			append(p.busyViolations[f.ChipID], f.TriggerID)
	case f.FlushedIncomplete():
		p.flushedIncompletes[f.ChipID] =
			append(p.flushedIncompletes[f.ChipID], f.TriggerID)
	}
}

func (p *Parser) addHits(w alpide.DataWord) {
	f := p.lastFrame()
	if f == nil || f.Completed || !p.includeHits {
		return
	}

	for _, hit := range w.Pixels(p.currentRegion) {
		f.hits[hit] = struct{}{}
	}
}

func (p *Parser) lastFrame() *Frame {
	if len(p.frames) == 0 {
		return nil
	}

	return p.frames[len(p.frames)-1]
}

func (p *Parser) busyOn(now sim.VTimeInNs) {
	if p.busy {
		return
	}

	p.busy = true
	p.busyEvents = append(p.busyEvents, BusyEvent{
		OnTime:       now,
		OffTime:      now,
		OnTriggerID:  p.currentTriggerID,
		OffTriggerID: p.currentTriggerID,
		Open:         true,
	})

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Now:    now,
		Pos:    HookPosBusyChange,
		Item:   p.busyEvents[len(p.busyEvents)-1],
	})
}

func (p *Parser) busyOff(now sim.VTimeInNs) {
	if !p.busy {
		return
	}

	p.busy = false
	p.closeBusyEvent(now)

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Now:    now,
		Pos:    HookPosBusyChange,
		Item:   p.busyEvents[len(p.busyEvents)-1],
	})
}

func (p *Parser) closeBusyEvent(now sim.VTimeInNs) {
	e := &p.busyEvents[len(p.busyEvents)-1]
	e.OffTime = now
	e.OffTriggerID = p.currentTriggerID
	e.Open = false
}

// Finalize closes a busy interval that is still open at the end of the
// simulation.
func (p *Parser) Finalize(now sim.VTimeInNs) {
	if p.busy {
		p.closeBusyEvent(now)
	}
}

// Busy tells if the link is busy, that is, the last busy word seen was a
// BUSY_ON.
func (p *Parser) Busy() bool {
	return p.busy
}

// BusyEvents returns the busy intervals of the link in time order.
func (p *Parser) BusyEvents() []BusyEvent {
	return p.busyEvents
}

// WordCount returns how many words of a type were seen.
func (p *Parser) WordCount(t alpide.DataType) uint64 {
	return p.wordCounts[t]
}

// WordCounts returns the word counts indexed by data type.
func (p *Parser) WordCounts() [alpide.NumDataTypes]uint64 {
	return p.wordCounts
}

// ByteCount returns how many bytes were carried by words of a type.
func (p *Parser) ByteCount(t alpide.DataType) uint64 {
	return p.byteCounts[t]
}

// TotalBytes returns the number of bytes parsed, including bytes of an
// incomplete word.
func (p *Parser) TotalBytes() uint64 {
	var n uint64
	for _, c := range p.byteCounts {
		n += c
	}

	return n + uint64(len(p.pending))
}

// DataRateInterval returns the width of a data rate bucket.
func (p *Parser) DataRateInterval() sim.VTimeInNs {
	return p.dataRateInterval
}

// DataRate returns the number of data carrying bytes in each interval, from
// the first interval up to the last one that saw data.
func (p *Parser) DataRate() []uint64 {
	if len(p.dataRate) == 0 {
		return nil
	}

	keys := maps.Keys(p.dataRate)
	slices.Sort(keys)

	out := make([]uint64, keys[len(keys)-1]+1)
	for _, k := range keys {
		out[k] = p.dataRate[k]
	}

	return out
}

// BusyViolations returns, per chip id, the trigger ids of frames with the
// busy violation flag.
func (p *Parser) BusyViolations() map[int][]uint64 {
	return p.busyViolations
}

// FlushedIncompletes returns, per chip id, the trigger ids of frames that
// were flushed before the readout completed.
func (p *Parser) FlushedIncompletes() map[int][]uint64 {
	return p.flushedIncompletes
}

// ReadoutAborts returns, per chip id, the trigger ids of frames sent in
// readout abort mode.
func (p *Parser) ReadoutAborts() map[int][]uint64 {
	return p.readoutAborts
}

// Fatals returns, per chip id, the trigger ids of frames sent in fatal
// mode.
func (p *Parser) Fatals() map[int][]uint64 {
	return p.fatals
}

// NumCompleteFrames returns the number of frames that received their
// trailer.
func (p *Parser) NumCompleteFrames() int {
	n := len(p.frames)
	if n > 0 && !p.frames[n-1].Completed {
		n--
	}

	return n
}

// Frames returns the saved frames, the last one possibly incomplete.
func (p *Parser) Frames() []*Frame {
	return p.frames
}

// PopFrame removes and returns the oldest frame. It returns nil if there
// are no frames.
func (p *Parser) PopFrame() *Frame {
	if len(p.frames) == 0 {
		return nil
	}

	f := p.frames[0]
	p.frames = p.frames[1:]

	return f
}

// ChipIDs returns the sorted ids of all chips with a flagged frame.
func ChipIDs(sets ...map[int][]uint64) []int {
	seen := make(map[int]struct{})
	for _, s := range sets {
		for id := range s {
			seen[id] = struct{}{}
		}
	}

	ids := maps.Keys(seen)
	slices.Sort(ids)

	return ids
}
