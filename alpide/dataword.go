package alpide

import "fmt"

// DataType identifies the kind of a data word on the chip's serial link.
type DataType int

// The data word types. RegionTrailer never leaves the chip.
const (
	Idle DataType = iota
	ChipHeader
	ChipTrailer
	ChipEmptyFrame
	RegionHeader
	RegionTrailer
	DataShort
	DataLong
	BusyOn
	BusyOff
	Comma
	Unknown
	NumDataTypes
)

var dataTypeNames = [NumDataTypes]string{
	"IDLE",
	"CHIP_HEADER",
	"CHIP_TRAILER",
	"CHIP_EMPTY_FRAME",
	"REGION_HEADER",
	"REGION_TRAILER",
	"DATA_SHORT",
	"DATA_LONG",
	"BUSY_ON",
	"BUSY_OFF",
	"COMMA",
	"UNKNOWN",
}

func (t DataType) String() string {
	if t < 0 || t >= NumDataTypes {
		return fmt.Sprintf("DataType(%d)", int(t))
	}

	return dataTypeNames[t]
}

// Byte tags of the first byte of each data word.
const (
	TagIdle          byte = 0xFF
	TagChipHeader    byte = 0xA0
	TagChipTrailer   byte = 0xB0
	TagChipEmpty     byte = 0xE0
	TagRegionHeader  byte = 0xC0
	TagRegionTrailer byte = 0xF3
	TagDataShort     byte = 0x40
	TagDataLong      byte = 0x00
	TagBusyOn        byte = 0xF1
	TagBusyOff       byte = 0xF0
	TagComma         byte = 0xBC
)

// Readout flags carried in the low nibble of CHIP_TRAILER.
const (
	FlagBusyTransition    byte = 0x01
	FlagStrobeExtended    byte = 0x02
	FlagFlushedIncomplete byte = 0x04
	FlagBusyViolation     byte = 0x08

	// FlagsReadoutAbort marks a frame read out in data overrun mode.
	FlagsReadoutAbort = FlagBusyViolation | FlagFlushedIncomplete

	// FlagsFatal marks a frame read out after the frame FIFO overflowed.
	FlagsFatal = FlagBusyViolation | FlagFlushedIncomplete | FlagStrobeExtended
)

// DataWord is one word of the chip's output protocol. Bytes[0] is
// transmitted first; the unused bytes are IDLE.
type DataWord struct {
	Type      DataType
	Bytes     [3]byte
	Size      int
	TriggerID uint64
}

func (w DataWord) String() string {
	return fmt.Sprintf("%s % X", w.Type, w.Bytes[:w.Size])
}

func makeWord(t DataType, size int, b ...byte) DataWord {
	w := DataWord{
		Type:  t,
		Size:  size,
		Bytes: [3]byte{TagIdle, TagIdle, TagIdle},
	}
	copy(w.Bytes[:], b)

	return w
}

// IdleWord returns an IDLE word.
func IdleWord() DataWord {
	return makeWord(Idle, 1, TagIdle)
}

// CommaWord returns a COMMA word.
func CommaWord() DataWord {
	return makeWord(Comma, 1, TagComma)
}

// BusyOnWord returns a BUSY_ON word.
func BusyOnWord() DataWord {
	return makeWord(BusyOn, 1, TagBusyOn)
}

// BusyOffWord returns a BUSY_OFF word.
func BusyOffWord() DataWord {
	return makeWord(BusyOff, 1, TagBusyOff)
}

// ChipHeaderWord returns a CHIP_HEADER word with the 8-bit bunch counter
// field of the frame.
func ChipHeaderWord(chipID int, bunchCounter int, trigID uint64) DataWord {
	w := makeWord(ChipHeader, 2,
		TagChipHeader|byte(chipID&0x0F),
		FrameTimestamp(bunchCounter))
	w.TriggerID = trigID

	return w
}

// ChipEmptyFrameWord returns a CHIP_EMPTY_FRAME word.
func ChipEmptyFrameWord(chipID int, bunchCounter int, trigID uint64) DataWord {
	w := makeWord(ChipEmptyFrame, 2,
		TagChipEmpty|byte(chipID&0x0F),
		FrameTimestamp(bunchCounter))
	w.TriggerID = trigID

	return w
}

// ChipTrailerWord returns a CHIP_TRAILER word with the given readout flags.
func ChipTrailerWord(flags byte, trigID uint64) DataWord {
	w := makeWord(ChipTrailer, 1, TagChipTrailer|(flags&0x0F))
	w.TriggerID = trigID

	return w
}

// RegionHeaderWord returns a REGION_HEADER word.
func RegionHeaderWord(region int) DataWord {
	return makeWord(RegionHeader, 1, TagRegionHeader|byte(region&0x1F))
}

// RegionTrailerWord returns the marker that ends a region's data in the
// region FIFO.
func RegionTrailerWord() DataWord {
	return makeWord(RegionTrailer, 1, TagRegionTrailer)
}

// DataShortWord returns a DATA_SHORT word for one pixel.
func DataShortWord(encoder, addr int) DataWord {
	return makeWord(DataShort, 2,
		TagDataShort|byte(encoder&0x0F)<<2|byte(addr>>8)&0x03,
		byte(addr))
}

// DataLongWord returns a DATA_LONG word for a base pixel and the hitmap of
// the following 7 addresses.
func DataLongWord(encoder, addr int, hitmap byte) DataWord {
	return makeWord(DataLong, 3,
		TagDataLong|byte(encoder&0x0F)<<2|byte(addr>>8)&0x03,
		byte(addr),
		hitmap&0x7F)
}

// FrameTimestamp returns the 8-bit frame timestamp field for a bunch counter
// value.
func FrameTimestamp(bunchCounter int) byte {
	return byte((bunchCounter & 0x7F8) >> 3)
}

// WordSize returns the number of bytes of a word given its first byte. It
// returns 1 for bytes that do not start a known word.
func WordSize(first byte) int {
	switch ClassifyByte(first) {
	case ChipHeader, ChipEmptyFrame, DataShort:
		return 2
	case DataLong:
		return 3
	default:
		return 1
	}
}

// ClassifyByte identifies the word type from the first byte of a word. A
// 0xBC byte is reported as COMMA; inside a frame the caller must treat it as
// a CHIP_TRAILER with the readout abort flags.
func ClassifyByte(b byte) DataType {
	switch {
	case b == TagIdle:
		return Idle
	case b == TagBusyOn:
		return BusyOn
	case b == TagBusyOff:
		return BusyOff
	case b == TagComma:
		return Comma
	case b&0xF0 == TagChipHeader:
		return ChipHeader
	case b&0xF0 == TagChipTrailer:
		return ChipTrailer
	case b&0xF0 == TagChipEmpty:
		return ChipEmptyFrame
	case b&0xE0 == TagRegionHeader:
		return RegionHeader
	case b&0xC0 == TagDataShort:
		return DataShort
	case b&0xC0 == TagDataLong:
		return DataLong
	default:
		return Unknown
	}
}

// Encoder returns the priority encoder field of a DATA_SHORT or DATA_LONG
// word.
func (w DataWord) Encoder() int {
	return int(w.Bytes[0]>>2) & 0x0F
}

// Address returns the pixel address field of a DATA_SHORT or DATA_LONG word.
func (w DataWord) Address() int {
	return int(w.Bytes[0]&0x03)<<8 | int(w.Bytes[1])
}

// Hitmap returns the hitmap of a DATA_LONG word.
func (w DataWord) Hitmap() byte {
	if w.Type != DataLong {
		return 0
	}

	return w.Bytes[2] & 0x7F
}

// Pixels decodes the pixels carried by a DATA_SHORT or DATA_LONG word of the
// given region.
func (w DataWord) Pixels(region int) []PixelHit {
	if w.Type != DataShort && w.Type != DataLong {
		return nil
	}

	encoder, addr := w.Encoder(), w.Address()
	pixels := []PixelHit{DecodePixel(region, encoder, addr)}

	hitmap := w.Hitmap()
	for i := 0; i < DataLongPixmapSize; i++ {
		if hitmap&(1<<uint(i)) != 0 {
			pixels = append(pixels, DecodePixel(region, encoder, addr+i+1))
		}
	}

	return pixels
}

// Region returns the region field of a REGION_HEADER word.
func (w DataWord) Region() int {
	return int(w.Bytes[0] & 0x1F)
}

// Flags returns the readout flags of a CHIP_TRAILER word.
func (w DataWord) Flags() byte {
	return w.Bytes[0] & 0x0F
}

// ParseWord rebuilds a word from its bytes. b must hold at least
// WordSize(b[0]) bytes.
func ParseWord(b []byte) DataWord {
	t := ClassifyByte(b[0])
	size := WordSize(b[0])

	return makeWord(t, size, b[:size]...)
}
