package event

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/sim"
)

// Tags of the binary event format.
const (
	TagDetectorStart byte = 0x20
	TagDetectorEnd   byte = 0x40
	TagLayerStart    byte = 0x01
	TagLayerEnd      byte = 0x11
	TagStaveStart    byte = 0x02
	TagStaveEnd      byte = 0x12
	TagModuleStart   byte = 0x03
	TagModuleEnd     byte = 0x13
	TagChipStart     byte = 0x05
	TagChipEnd       byte = 0x15
	TagDigit         byte = 0x06
)

// BinaryReader reads Monte Carlo events from binary event files. A file
// holds one or more events. Hits on chips that the mapper does not know are
// skipped.
type BinaryReader struct {
	files  []string
	cycle  bool
	mapper ChipMapper

	fileIdx  int
	filename string
	buf      []byte
	pos      int
}

// NewBinaryReader creates a reader for a file, or for all the regular files
// of a directory in name order. With cycle set, the reader starts over from
// the first file after the last one.
func NewBinaryReader(
	path string,
	mapper ChipMapper,
	cycle bool,
) (*BinaryReader, error) {
	files, err := listEventFiles(path)
	if err != nil {
		return nil, sim.NewInputError("event.binary", err)
	}

	return &BinaryReader{
		files:   files,
		cycle:   cycle,
		mapper:  mapper,
		fileIdx: -1,
	}, nil
}

func listEventFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening event path %q", path)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "listing event directory %q", path)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}

	if len(files) == 0 {
		return nil, errors.WithStack(&ErrNoEventFiles{Path: path})
	}

	return files, nil
}

// NumFiles returns the number of files the reader reads from.
func (r *BinaryReader) NumFiles() int {
	return len(r.files)
}

// NextHits returns the hits of the next event.
func (r *BinaryReader) NextHits() ([]Hit, error) {
	if err := r.skipToEvent(); err != nil {
		return nil, err
	}

	hits, err := r.readDetector()
	if err != nil {
		return nil, sim.NewInputError("event.binary", err)
	}

	return hits, nil
}

func (r *BinaryReader) skipToEvent() error {
	for r.buf == nil || r.pos >= len(r.buf) {
		if err := r.openNextFile(); err != nil {
			return err
		}
	}

	return nil
}

func (r *BinaryReader) openNextFile() error {
	r.fileIdx++
	if r.fileIdx >= len(r.files) {
		if !r.cycle {
			return io.EOF
		}

		r.fileIdx = 0
	}

	r.filename = r.files[r.fileIdx]

	buf, err := os.ReadFile(r.filename)
	if err != nil {
		return sim.NewInputError("event.binary",
			errors.Wrapf(err, "reading event file %q", r.filename))
	}

	r.buf = buf
	r.pos = 0

	if len(buf) == 0 && r.allEmpty() {
		return sim.NewInputError("event.binary",
			errors.WithStack(&ErrNoEventFiles{Path: r.filename}))
	}

	return nil
}

func (r *BinaryReader) allEmpty() bool {
	for _, f := range r.files {
		info, err := os.Stat(f)
		if err != nil || info.Size() > 0 {
			return false
		}
	}

	return true
}

func (r *BinaryReader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errors.WithStack(
			&ErrTruncated{Filename: r.filename, Offset: int64(r.pos)})
	}

	b := r.buf[r.pos]
	r.pos++

	return b, nil
}

func (r *BinaryReader) readUint16() (int, error) {
	if r.pos+2 > len(r.buf) {
		return 0, errors.WithStack(
			&ErrTruncated{Filename: r.filename, Offset: int64(r.pos)})
	}

	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2

	return int(v), nil
}

func (r *BinaryReader) unexpected(tag byte, expected string) error {
	return errors.WithStack(&ErrUnexpectedTag{
		Filename: r.filename,
		Offset:   int64(r.pos - 1),
		Tag:      tag,
		Expected: expected,
	})
}

func (r *BinaryReader) readDetector() ([]Hit, error) {
	tag, err := r.readByte()
	if err != nil {
		return nil, err
	}

	if tag != TagDetectorStart {
		return nil, r.unexpected(tag, "DETECTOR_START")
	}

	hits := []Hit{}

	for {
		tag, err = r.readByte()
		if err != nil {
			return nil, err
		}

		switch tag {
		case TagLayerStart:
			hits, err = r.readLayer(hits)
			if err != nil {
				return nil, err
			}
		case TagDetectorEnd:
			return hits, nil
		default:
			return nil, r.unexpected(tag, "LAYER_START or DETECTOR_END")
		}
	}
}

func (r *BinaryReader) readLayer(hits []Hit) ([]Hit, error) {
	layer, err := r.readByte()
	if err != nil {
		return nil, err
	}

	for {
		tag, err := r.readByte()
		if err != nil {
			return nil, err
		}

		switch tag {
		case TagStaveStart:
			hits, err = r.readStave(hits, int(layer))
			if err != nil {
				return nil, err
			}
		case TagLayerEnd:
			return hits, nil
		default:
			return nil, r.unexpected(tag, "STAVE_START or LAYER_END")
		}
	}
}

func (r *BinaryReader) readStave(hits []Hit, layer int) ([]Hit, error) {
	id, err := r.readByte()
	if err != nil {
		return nil, err
	}

	pos := detector.Position{
		Layer:    layer,
		Stave:    int(id & 0x7F),
		SubStave: int(id >> 7),
	}

	for {
		tag, err := r.readByte()
		if err != nil {
			return nil, err
		}

		switch tag {
		case TagModuleStart:
			hits, err = r.readModule(hits, pos)
			if err != nil {
				return nil, err
			}
		case TagStaveEnd:
			return hits, nil
		default:
			return nil, r.unexpected(tag, "MODULE_START or STAVE_END")
		}
	}
}

func (r *BinaryReader) readModule(
	hits []Hit,
	pos detector.Position,
) ([]Hit, error) {
	module, err := r.readByte()
	if err != nil {
		return nil, err
	}

	pos.Module = int(module)

	for {
		tag, err := r.readByte()
		if err != nil {
			return nil, err
		}

		switch tag {
		case TagChipStart:
			hits, err = r.readChip(hits, pos)
			if err != nil {
				return nil, err
			}
		case TagModuleEnd:
			return hits, nil
		default:
			return nil, r.unexpected(tag, "CHIP_START or MODULE_END")
		}
	}
}

func (r *BinaryReader) readChip(
	hits []Hit,
	pos detector.Position,
) ([]Hit, error) {
	chip, err := r.readByte()
	if err != nil {
		return nil, err
	}

	pos.ModuleChip = int(chip)
	globalID, simulated := r.mapper.GlobalChipID(pos)

	for {
		tag, err := r.readByte()
		if err != nil {
			return nil, err
		}

		switch tag {
		case TagDigit:
			hit, err := r.readDigit()
			if err != nil {
				return nil, err
			}

			if simulated {
				hit.ChipID = globalID
				hits = append(hits, hit)
			}
		case TagChipEnd:
			return hits, nil
		default:
			return nil, r.unexpected(tag, "DIGIT or CHIP_END")
		}
	}
}

func (r *BinaryReader) readDigit() (Hit, error) {
	offset := int64(r.pos)

	col, err := r.readUint16()
	if err != nil {
		return Hit{}, err
	}

	row, err := r.readUint16()
	if err != nil {
		return Hit{}, err
	}

	if col >= alpide.NCols || row >= alpide.NRows {
		return Hit{}, errors.WithStack(&ErrPixelOutOfRange{
			Filename: r.filename,
			Offset:   offset,
			Col:      col,
			Row:      row,
		})
	}

	return Hit{Col: col, Row: row}, nil
}
