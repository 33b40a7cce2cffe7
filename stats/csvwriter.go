package stats

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// csvWriter writes semicolon separated rows and keeps the first error.
type csvWriter struct {
	w   *bufio.Writer
	err error
}

func newCSVWriter(w io.Writer) *csvWriter {
	return &csvWriter{w: bufio.NewWriter(w)}
}

func (c *csvWriter) row(fields ...any) {
	if c.err != nil {
		return
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprint(f)
	}

	_, c.err = c.w.WriteString(strings.Join(parts, ";") + "\n")
}

func (c *csvWriter) flush() error {
	if c.err != nil {
		return c.err
	}

	return c.w.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
