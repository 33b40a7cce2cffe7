package tracing

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/sim"
	"github.com/tebeka/atexit"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// CSVTraceWriter is a tracer that stores the busy intervals in a CSV file.
type CSVTraceWriter struct {
	path string
	file *os.File

	open       map[string]Interval
	done       []Interval
	bufferSize int
	written    int
}

// NewCSVTraceWriter creates a new CSVTraceWriter.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		open:       make(map[string]Interval),
		bufferSize: 1000,
	}
}

// Init creates the trace file. If the file already exists, it will be
// overwritten.
func (t *CSVTraceWriter) Init() error {
	file, err := os.Create(t.path)
	if err != nil {
		return errors.Wrap(err, "creating trace file")
	}

	t.file = file

	fmt.Fprintf(file, "ID;Kind;Where;Start;End;Open\n")

	atexit.Register(func() {
		_ = t.Close()
	})

	return nil
}

// StartInterval keeps the interval until it ends.
func (t *CSVTraceWriter) StartInterval(i Interval) {
	t.open[i.ID] = i
}

// EndInterval queues the interval for writing.
func (t *CSVTraceWriter) EndInterval(i Interval) {
	if _, ok := t.open[i.ID]; !ok {
		return
	}

	delete(t.open, i.ID)
	t.write(i)
}

// Terminate writes the intervals that are still open, ending at now.
func (t *CSVTraceWriter) Terminate(now sim.VTimeInNs) {
	ids := maps.Keys(t.open)
	slices.SortFunc(ids, func(a, b string) int {
		ia, ib := t.open[a], t.open[b]
		if ia.Start != ib.Start {
			if ia.Start < ib.Start {
				return -1
			}

			return 1
		}

		if ia.Where < ib.Where {
			return -1
		}

		if ia.Where > ib.Where {
			return 1
		}

		return 0
	})

	for _, id := range ids {
		i := t.open[id]
		i.End = now
		i.Open = true
		t.write(i)
	}

	t.open = make(map[string]Interval)
	t.Flush()
}

func (t *CSVTraceWriter) write(i Interval) {
	t.done = append(t.done, i)
	if len(t.done) >= t.bufferSize {
		t.Flush()
	}
}

// Written returns the number of intervals written to the file.
func (t *CSVTraceWriter) Written() int {
	return t.written
}

// Flush writes the queued intervals to the file.
func (t *CSVTraceWriter) Flush() {
	if t.file == nil {
		return
	}

	for _, i := range t.done {
		open := 0
		if i.Open {
			open = 1
		}

		fmt.Fprintf(t.file, "%s;%s;%s;%d;%d;%d\n",
			i.ID, i.Kind, i.Where, i.Start, i.End, open)
	}

	t.written += len(t.done)
	t.done = nil
}

// Close flushes and closes the file. It can be called more than once.
func (t *CSVTraceWriter) Close() error {
	if t.file == nil {
		return nil
	}

	t.Flush()

	err := t.file.Close()
	t.file = nil

	return errors.Wrap(err, "closing trace file")
}
