package alpide

// Geometry of the pixel matrix.
const (
	NRegions            = 32
	NCols               = 1024
	NRows               = 512
	NDoubleCols         = NCols / 2
	DoubleColsPerRegion = NDoubleCols / NRegions
	ColsPerRegion       = NCols / NRegions
	PixelsPerDoubleCol  = 2 * NRows
)

// Buffer sizes and watermarks of the readout logic.
const (
	// DefaultRegionFIFOSize is the depth of the FIFO behind every region
	// readout unit.
	DefaultRegionFIFOSize = 128

	// TRUFrameFIFOSize is the depth of the frame start and frame end FIFOs
	// between the framing logic and the top readout unit.
	TRUFrameFIFOSize = 64

	// TRUFrameFIFOAlmostFull1 is the watermark at which new triggers are
	// rejected.
	TRUFrameFIFOAlmostFull1 = 48

	// TRUFrameFIFOAlmostFull2 is the watermark at which the chip enters data
	// overrun (readout abort) mode.
	TRUFrameFIFOAlmostFull2 = 56

	BusyFIFOSize = 4
	DMUFIFOSize  = 4

	// MEBCount is the number of multi event buffer slices.
	MEBCount = 3

	// DataLongPixmapSize is the number of pixels after the base pixel that a
	// DATA_LONG word can encode.
	DataLongPixmapSize = 7

	// LHCOrbitBunchCount is the number of clock cycles after which the bunch
	// counter wraps.
	LHCOrbitBunchCount = 3564
)

// Control opcodes.
const (
	OpcodeTrigger uint8 = 0x55
	OpcodeRORST   uint8 = 0x63
)
