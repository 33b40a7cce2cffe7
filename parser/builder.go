package parser

import (
	"io"
	"log/slog"

	"github.com/sarchlab/alpidesim/sim"
)

// DefaultDataRateInterval is the width of a data rate bucket, 10 µs.
const DefaultDataRateInterval sim.VTimeInNs = 10000

// Builder builds parsers.
type Builder struct {
	logger           *slog.Logger
	dataRateInterval sim.VTimeInNs
	saveFrames       bool
	includeHits      bool
}

// MakeBuilder returns a Builder with the default settings. By default the
// parser keeps only the frame being received and ignores pixel hits.
func MakeBuilder() Builder {
	return Builder{
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		dataRateInterval: DefaultDataRateInterval,
	}
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithDataRateInterval sets the width of the data rate buckets.
func (b Builder) WithDataRateInterval(t sim.VTimeInNs) Builder {
	b.dataRateInterval = t
	return b
}

// WithSaveFrames keeps every frame until it is popped.
func (b Builder) WithSaveFrames(save bool) Builder {
	b.saveFrames = save
	return b
}

// WithHits records the pixels of the frames.
func (b Builder) WithHits(include bool) Builder {
	b.includeHits = include
	return b
}

// Build creates a parser.
func (b Builder) Build(name string) *Parser {
	if b.dataRateInterval == 0 {
		panic("parser: data rate interval must be positive")
	}

	return &Parser{
		HookableBase:       sim.NewHookableBase(),
		name:               name,
		logger:             b.logger.With("module", "parser", "link", name),
		dataRateInterval:   b.dataRateInterval,
		saveFrames:         b.saveFrames,
		includeHits:        b.includeHits,
		dataRate:           make(map[uint64]uint64),
		busyViolations:     make(map[int][]uint64),
		flushedIncompletes: make(map[int][]uint64),
		readoutAborts:      make(map[int][]uint64),
		fatals:             make(map[int][]uint64),
	}
}
