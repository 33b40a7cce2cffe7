package event

import (
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/sim"
)

type eventBytes []byte

func (b eventBytes) tag(tags ...byte) eventBytes {
	return append(b, tags...)
}

func (b eventBytes) digit(col, row int) eventBytes {
	return append(b, TagDigit,
		byte(col), byte(col>>8), byte(row), byte(row>>8))
}

func oneHitEvent(layer, staveByte, module, chip byte, col, row int) eventBytes {
	return eventBytes{}.
		tag(TagDetectorStart, TagLayerStart, layer, TagStaveStart, staveByte).
		tag(TagModuleStart, module, TagChipStart, chip).
		digit(col, row).
		tag(TagChipEnd, TagModuleEnd, TagStaveEnd, TagLayerEnd, TagDetectorEnd)
}

func writeEventFile(dir, name string, data []byte) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, data, 0o644)).To(Succeed())

	return path
}

var _ = Describe("BinaryReader", func() {
	var (
		dir    string
		mapper *LayoutMapper
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		l, err := detector.NewITSLayout([detector.ITSNumLayers]int{2})
		Expect(err).NotTo(HaveOccurred())
		mapper = NewLayoutMapper(l)
	})

	It("should read the hits of active staves only", func() {
		data := eventBytes{}.
			tag(TagDetectorStart, TagLayerStart, 0).
			tag(TagStaveStart, 1, TagModuleStart, 0, TagChipStart, 3).
			digit(1000, 500).
			tag(TagChipEnd, TagModuleEnd, TagStaveEnd).
			tag(TagStaveStart, 5, TagModuleStart, 0, TagChipStart, 0).
			digit(1, 1).
			tag(TagChipEnd, TagModuleEnd, TagStaveEnd).
			tag(TagLayerEnd).
			tag(TagLayerStart, 3, TagLayerEnd).
			tag(TagDetectorEnd).
			tag(TagDetectorStart, TagDetectorEnd)
		path := writeEventFile(dir, "events.dat", data)

		r, err := NewBinaryReader(path, mapper, false)
		Expect(err).NotTo(HaveOccurred())

		hits, err := r.NextHits()
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(Equal([]Hit{{ChipID: 12, Col: 1000, Row: 500}}))

		hits, err = r.NextHits()
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(BeEmpty())

		_, err = r.NextHits()
		Expect(err).To(Equal(io.EOF))
	})

	It("should read the sub-stave from the top bit of the stave byte", func() {
		l, _ := detector.NewITSLayout([detector.ITSNumLayers]int{0, 0, 0, 1})
		path := writeEventFile(dir, "mb.dat", oneHitEvent(3, 0x80, 2, 4, 7, 8))

		r, err := NewBinaryReader(path, NewLayoutMapper(l), false)
		Expect(err).NotTo(HaveOccurred())

		hits, err := r.NextHits()
		Expect(err).NotTo(HaveOccurred())

		want := l.GlobalChipID(detector.Position{
			Layer: 3, SubStave: 1, Module: 2, ModuleChip: 4,
		})
		Expect(hits).To(Equal([]Hit{{ChipID: want, Col: 7, Row: 8}}))
	})

	It("should read a directory in name order and cycle", func() {
		writeEventFile(dir, "b.dat", oneHitEvent(0, 0, 0, 2, 20, 20))
		writeEventFile(dir, "a.dat", oneHitEvent(0, 0, 0, 1, 10, 10))

		r, err := NewBinaryReader(dir, mapper, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.NumFiles()).To(Equal(2))

		var chips []int
		for i := 0; i < 3; i++ {
			hits, err := r.NextHits()
			Expect(err).NotTo(HaveOccurred())
			chips = append(chips, hits[0].ChipID)
		}

		Expect(chips).To(Equal([]int{1, 2, 1}))
	})

	It("should fail on an empty directory", func() {
		_, err := NewBinaryReader(dir, mapper, true)

		var noFiles *ErrNoEventFiles
		Expect(errors.As(err, &noFiles)).To(BeTrue())
		kind, _ := sim.KindOf(err)
		Expect(kind).To(Equal(sim.InputError))
	})

	It("should report an unexpected tag", func() {
		path := writeEventFile(dir, "bad.dat", []byte{TagDetectorStart, 0x07})
		r, _ := NewBinaryReader(path, mapper, false)

		_, err := r.NextHits()

		var unexpected *ErrUnexpectedTag
		Expect(errors.As(err, &unexpected)).To(BeTrue())
		Expect(unexpected.Tag).To(Equal(byte(0x07)))
		Expect(unexpected.Offset).To(Equal(int64(1)))

		kind, ok := sim.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(sim.InputError))
	})

	It("should report a truncated event", func() {
		data := []byte{TagDetectorStart, TagLayerStart, 0, TagStaveStart}
		path := writeEventFile(dir, "short.dat", data)
		r, _ := NewBinaryReader(path, mapper, false)

		_, err := r.NextHits()

		var truncated *ErrTruncated
		Expect(errors.As(err, &truncated)).To(BeTrue())
		Expect(truncated.Offset).To(Equal(int64(4)))
	})

	It("should reject a pixel outside the matrix", func() {
		path := writeEventFile(dir, "range.dat", oneHitEvent(0, 0, 0, 0, 1024, 0))
		r, _ := NewBinaryReader(path, mapper, false)

		_, err := r.NextHits()

		var outOfRange *ErrPixelOutOfRange
		Expect(errors.As(err, &outOfRange)).To(BeTrue())
		Expect(outOfRange.Col).To(Equal(1024))
	})
})
