package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// PerfAnalyzerBackend is the interface that provides the service that can
// record performance data entries.
type PerfAnalyzerBackend interface {
	PerfLogger
	Flush() error
}

// CSVBackend is a PerfAnalyzerBackend that writes data entries to
// a CSV file.
type CSVBackend struct {
	file      io.Closer
	csvWriter *csv.Writer
	err       error
}

// NewCSVPerfAnalyzerBackend creates the file `<filename>.csv` and writes the
// header row.
func NewCSVPerfAnalyzerBackend(filename string) (*CSVBackend, error) {
	f, err := os.Create(filename + ".csv")
	if err != nil {
		return nil, errors.Wrap(err, "create perf analyzer file")
	}

	p := NewCSVPerfAnalyzerWriter(f)
	p.file = f

	return p, p.err
}

// NewCSVPerfAnalyzerWriter creates a backend on an existing writer.
func NewCSVPerfAnalyzerWriter(w io.Writer) *CSVBackend {
	p := &CSVBackend{csvWriter: csv.NewWriter(w)}

	header := []string{
		"Start", "End", "Where", "What", "EntryType", "Value", "Unit",
	}
	p.err = p.csvWriter.Write(header)

	return p
}

// AddDataEntry adds a data entry to the CSV file. The first write error is
// kept and returned by Flush.
func (p *CSVBackend) AddDataEntry(entry PerfAnalyzerEntry) {
	if p.err != nil {
		return
	}

	p.err = p.csvWriter.Write([]string{
		fmt.Sprintf("%d", entry.Start),
		fmt.Sprintf("%d", entry.End),
		entry.Where,
		entry.What,
		entry.EntryType,
		fmt.Sprintf("%.6f", entry.Value),
		entry.Unit,
	})
}

// Flush flushes the CSV writer.
func (p *CSVBackend) Flush() error {
	p.csvWriter.Flush()
	if p.err != nil {
		return p.err
	}

	return p.csvWriter.Error()
}

// Close flushes and closes the file.
func (p *CSVBackend) Close() error {
	err := p.Flush()
	if p.file != nil {
		if cerr := p.file.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
