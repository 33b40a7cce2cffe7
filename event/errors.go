package event

import "fmt"

// ErrUnexpectedTag is returned when an event file holds a tag that is not
// allowed at its position.
type ErrUnexpectedTag struct {
	Filename string
	Offset   int64
	Tag      byte
	Expected string
}

func (e *ErrUnexpectedTag) Error() string {
	return fmt.Sprintf("%s: unexpected tag 0x%02X at offset %d, expected %s",
		e.Filename, e.Tag, e.Offset, e.Expected)
}

// ErrTruncated is returned when an event file ends inside an event.
type ErrTruncated struct {
	Filename string
	Offset   int64
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("%s: truncated event at offset %d", e.Filename, e.Offset)
}

// ErrNoEventFiles is returned when an event directory holds no files.
type ErrNoEventFiles struct {
	Path string
}

func (e *ErrNoEventFiles) Error() string {
	return fmt.Sprintf("no event files found in %q", e.Path)
}

// ErrBadRecord is returned for a CSV row or distribution line that cannot be
// parsed.
type ErrBadRecord struct {
	Filename string
	Line     int
	Err      error
}

func (e *ErrBadRecord) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Filename, e.Line, e.Err)
}

func (e *ErrBadRecord) Unwrap() error {
	return e.Err
}

// ErrPixelOutOfRange is returned for a digit outside of the pixel matrix.
type ErrPixelOutOfRange struct {
	Filename string
	Offset   int64
	Col      int
	Row      int
}

func (e *ErrPixelOutOfRange) Error() string {
	return fmt.Sprintf("%s: pixel (%d, %d) at offset %d is outside the matrix",
		e.Filename, e.Col, e.Row, e.Offset)
}
