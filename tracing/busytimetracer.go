package tracing

import (
	"container/list"

	"github.com/sarchlab/alpidesim/sim"
)

type intervalStartEnd struct {
	start, end sim.VTimeInNs
	completed  bool
}

// BusyTimeTracer sums the time that the traced domains spend busy. If
// intervals overlap, the overlapped time is only counted once.
type BusyTimeTracer struct {
	filter        IntervalFilter
	inflight      map[string]*list.Element
	intervalTimes *list.List
	busyTime      sim.VTimeInNs
}

// NewBusyTimeTracer creates a new BusyTimeTracer. A nil filter accepts all
// intervals.
func NewBusyTimeTracer(filter IntervalFilter) *BusyTimeTracer {
	t := &BusyTimeTracer{
		filter:        filter,
		inflight:      make(map[string]*list.Element),
		intervalTimes: list.New(),
	}

	return t
}

// BusyTime returns the busy time of the intervals that have been collapsed.
func (t *BusyTimeTracer) BusyTime() sim.VTimeInNs {
	return t.busyTime
}

// Terminate marks all the intervals as completed.
func (t *BusyTimeTracer) Terminate(now sim.VTimeInNs) {
	for e := t.intervalTimes.Front(); e != nil; e = e.Next() {
		i := e.Value.(*intervalStartEnd)
		if !i.completed {
			i.completed = true
			i.end = now
		}
	}

	t.inflight = make(map[string]*list.Element)

	t.collapse(now)
}

// StartInterval records the start of an interval.
func (t *BusyTimeTracer) StartInterval(i Interval) {
	if t.filter != nil && !t.filter(i) {
		return
	}

	elem := t.intervalTimes.PushBack(&intervalStartEnd{start: i.Start})
	t.inflight[i.ID] = elem
}

// EndInterval records the end of an interval.
func (t *BusyTimeTracer) EndInterval(i Interval) {
	elem, ok := t.inflight[i.ID]
	if !ok {
		return
	}

	time := elem.Value.(*intervalStartEnd)
	time.end = i.End
	time.completed = true
	delete(t.inflight, i.ID)

	t.collapse(i.End)
}

func (t *BusyTimeTracer) collapse(now sim.VTimeInNs) {
	start, found := t.startTimeOfFirstIncompleteInterval()
	if found && start < now {
		return
	}

	finished := make([]*intervalStartEnd, 0)

	var next *list.Element
	for e := t.intervalTimes.Front(); e != nil; e = next {
		next = e.Next()

		i := e.Value.(*intervalStartEnd)
		if !i.completed {
			break
		}

		if i.end <= now {
			finished = append(finished, i)
			t.intervalTimes.Remove(e)
		}
	}

	t.busyTime += mergedLength(finished)
}

func (t *BusyTimeTracer) startTimeOfFirstIncompleteInterval() (
	sim.VTimeInNs, bool,
) {
	for e := t.intervalTimes.Front(); e != nil; e = e.Next() {
		i := e.Value.(*intervalStartEnd)
		if !i.completed {
			return i.start, true
		}
	}

	return 0, false
}

// mergedLength requires the intervals to be ordered by start time.
func mergedLength(intervals []*intervalStartEnd) sim.VTimeInNs {
	if len(intervals) == 0 {
		return 0
	}

	busyTime := sim.VTimeInNs(0)
	cur := *intervals[0]

	for _, i := range intervals[1:] {
		if i.start <= cur.end {
			if i.end > cur.end {
				cur.end = i.end
			}

			continue
		}

		busyTime += cur.end - cur.start
		cur = *i
	}

	return busyTime + cur.end - cur.start
}
