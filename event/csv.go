package event

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/sim"
)

var csvRequiredFields = []string{"event", "layer", "stave", "chip", "col", "row"}

// CSVReader reads events from a CSV file. Each row is a pixel hit, and
// consecutive rows with the same event number form an event.
type CSVReader struct {
	events [][]Hit
	next   int
	cycle  bool
}

// NewCSVReader loads all the events of a CSV file. The header names the
// columns; the delimiter is a semicolon or a comma.
func NewCSVReader(
	filename string,
	mapper ChipMapper,
	cycle bool,
) (*CSVReader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, sim.NewInputError("event.csv",
			errors.Wrapf(err, "reading event file %q", filename))
	}

	events, err := parseCSVEvents(filename, data, mapper)
	if err != nil {
		return nil, sim.NewInputError("event.csv", err)
	}

	return &CSVReader{events: events, cycle: cycle}, nil
}

// NumEvents returns the number of events in the file.
func (r *CSVReader) NumEvents() int {
	return len(r.events)
}

// NextHits returns the hits of the next event.
func (r *CSVReader) NextHits() ([]Hit, error) {
	if r.next >= len(r.events) {
		if !r.cycle || len(r.events) == 0 {
			return nil, io.EOF
		}

		r.next = 0
	}

	hits := r.events[r.next]
	r.next++

	return hits, nil
}

func detectDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}

	if bytes.ContainsRune(header, ';') {
		return ';'
	}

	return ','
}

func parseCSVEvents(
	filename string,
	data []byte,
	mapper ChipMapper,
) ([][]Hit, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}

	if err != nil {
		return nil, errors.WithStack(&ErrBadRecord{Filename: filename, Line: 1, Err: err})
	}

	columns, err := csvColumns(filename, header)
	if err != nil {
		return nil, err
	}

	var (
		events    [][]Hit
		current   []Hit
		lastEvent string
		line      = 1
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		line++

		if err != nil {
			return nil, errors.WithStack(
				&ErrBadRecord{Filename: filename, Line: line, Err: err})
		}

		eventID := record[columns["event"]]
		if current != nil && eventID != lastEvent {
			events = append(events, current)
			current = nil
		}

		if current == nil {
			current = []Hit{}
		}

		lastEvent = eventID

		hit, simulated, err := csvHit(record, columns, mapper)
		if err != nil {
			return nil, errors.WithStack(
				&ErrBadRecord{Filename: filename, Line: line, Err: err})
		}

		if simulated {
			current = append(current, hit)
		}
	}

	if current != nil {
		events = append(events, current)
	}

	return events, nil
}

func csvColumns(filename string, header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, f := range csvRequiredFields {
		if _, ok := columns[f]; !ok {
			return nil, errors.WithStack(&ErrBadRecord{
				Filename: filename,
				Line:     1,
				Err:      errors.Errorf("missing column %q", f),
			})
		}
	}

	return columns, nil
}

func csvHit(
	record []string,
	columns map[string]int,
	mapper ChipMapper,
) (Hit, bool, error) {
	field := func(name string) (int, error) {
		i, ok := columns[name]
		if !ok {
			return 0, nil
		}

		v, err := strconv.Atoi(strings.TrimSpace(record[i]))
		if err != nil {
			return 0, errors.Wrapf(err, "column %q", name)
		}

		return v, nil
	}

	var (
		values [7]int
		err    error
	)

	names := [7]string{"layer", "stave", "sub_stave", "module", "chip", "col", "row"}
	for i, name := range names {
		values[i], err = field(name)
		if err != nil {
			return Hit{}, false, err
		}
	}

	col, row := values[5], values[6]
	if col < 0 || col >= alpide.NCols || row < 0 || row >= alpide.NRows {
		return Hit{}, false, errors.Errorf("pixel (%d, %d) is outside the matrix", col, row)
	}

	pos := detector.Position{
		Layer:      values[0],
		Stave:      values[1],
		SubStave:   values[2],
		Module:     values[3],
		ModuleChip: values[4],
	}

	id, ok := mapper.GlobalChipID(pos)

	return Hit{ChipID: id, Col: col, Row: row}, ok, nil
}
