package analysis

import (
	"sort"

	"github.com/sarchlab/alpidesim/sim"
)

// LevelHistogram accumulates how long a quantity stays at each level. The
// time spent at the previous level is added every time the level changes.
type LevelHistogram struct {
	lastTime      sim.VTimeInNs
	lastLevel     int
	levelDuration map[int]sim.VTimeInNs
}

// NewLevelHistogram creates a histogram that starts at level 0 at time 0.
func NewLevelHistogram() *LevelHistogram {
	return &LevelHistogram{
		levelDuration: make(map[int]sim.VTimeInNs),
	}
}

// StartLevelHistogram creates a histogram that starts at the given level and
// time.
func StartLevelHistogram(now sim.VTimeInNs, level int) *LevelHistogram {
	return &LevelHistogram{
		lastTime:      now,
		lastLevel:     level,
		levelDuration: make(map[int]sim.VTimeInNs),
	}
}

// Update records that the level changes to level at time now.
func (h *LevelHistogram) Update(now sim.VTimeInNs, level int) {
	if now > h.lastTime {
		h.levelDuration[h.lastLevel] += now - h.lastTime
		h.lastTime = now
	}

	h.lastLevel = level
}

// Level returns the current level.
func (h *LevelHistogram) Level() int {
	return h.lastLevel
}

// Finalize accounts the time from the last change until now to the current
// level.
func (h *LevelHistogram) Finalize(now sim.VTimeInNs) {
	h.Update(now, h.lastLevel)
}

// Duration returns the time spent at a level.
func (h *LevelHistogram) Duration(level int) sim.VTimeInNs {
	return h.levelDuration[level]
}

// Levels returns all the levels seen, in increasing order.
func (h *LevelHistogram) Levels() []int {
	levels := make([]int, 0, len(h.levelDuration))
	for l := range h.levelDuration {
		levels = append(levels, l)
	}

	sort.Ints(levels)

	return levels
}

// MaxLevel returns the highest level that has a recorded duration.
func (h *LevelHistogram) MaxLevel() int {
	max := 0
	for l := range h.levelDuration {
		if l > max {
			max = l
		}
	}

	return max
}

// Average returns the time-weighted average level.
func (h *LevelHistogram) Average() float64 {
	sumLevel := 0.0
	sumDuration := 0.0

	for level, duration := range h.levelDuration {
		sumLevel += float64(level) * float64(duration)
		sumDuration += float64(duration)
	}

	if sumDuration == 0 {
		return 0
	}

	return sumLevel / sumDuration
}
