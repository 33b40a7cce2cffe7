package sim

import (
	"log/slog"
	"math/rand/v2"
)

// DefaultFreq is the system clock of the readout chain.
const DefaultFreq = 40 * MHz

// Context is handed to every component at construction. It replaces global
// state: the clock, the random source, and the logger all live here.
type Context struct {
	Engine Engine
	Freq   Freq
	Rand   *rand.Rand
	Logger *slog.Logger
}

// NewContext creates a Context with a seeded random source.
func NewContext(engine Engine, freq Freq, seed uint64, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}

	return &Context{
		Engine: engine,
		Freq:   freq,
		Rand:   rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		Logger: logger,
	}
}

// Now returns the current time of the engine.
func (c *Context) Now() VTimeInNs {
	return c.Engine.CurrentTime()
}
