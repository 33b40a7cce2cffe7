package alpide

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/sim"
)

var _ = Describe("PixelMatrix", func() {
	var m *PixelMatrix

	BeforeEach(func() {
		m = NewPixelMatrix()
	})

	It("should fail without an open slice", func() {
		err := m.SetPixel(0, 0)
		Expect(errors.Is(err, ErrNoOpenFrame)).To(BeTrue())
	})

	It("should fail on bad coordinates", func() {
		_, err := m.OpenSlice(0, 0)
		Expect(err).NotTo(HaveOccurred())

		Expect(errors.Is(m.SetPixel(NCols, 0), ErrBadCoordinate)).To(BeTrue())
		Expect(errors.Is(m.SetPixel(0, NRows), ErrBadCoordinate)).To(BeTrue())
		Expect(errors.Is(m.SetPixel(-1, 0), ErrBadCoordinate)).To(BeTrue())
	})

	It("should accept the corner pixels", func() {
		_, err := m.OpenSlice(0, 0)
		Expect(err).NotTo(HaveOccurred())

		Expect(m.SetPixel(0, 0)).To(Succeed())
		Expect(m.SetPixel(NCols-1, 0)).To(Succeed())
		Expect(m.SetPixel(0, NRows-1)).To(Succeed())
		Expect(m.SetPixel(NCols-1, NRows-1)).To(Succeed())
		Expect(m.HitsRemainingInOldest()).To(Equal(4))
	})

	It("should not open more than K slices", func() {
		for i := 0; i < MEBCount; i++ {
			_, err := m.OpenSlice(uint64(i), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.CloseSlice(10)).To(Succeed())
		}

		_, err := m.OpenSlice(3, 0)
		Expect(err).To(MatchError(ErrAllSlicesInUse))
		Expect(m.NumSlices()).To(Equal(MEBCount))
	})

	It("should count duplicates once", func() {
		m.OpenSlice(0, 0)
		Expect(m.SetPixel(3, 4)).To(Succeed())
		Expect(m.SetPixel(3, 4)).To(Succeed())

		Expect(m.LatchedHits()).To(Equal(uint64(1)))
		Expect(m.DuplicateHits()).To(Equal(uint64(1)))
		Expect(m.HitsRemainingInOldest()).To(Equal(1))
	})

	It("should read slices in FIFO order", func() {
		m.OpenSlice(1, 0)
		m.SetPixel(40, 2)
		m.CloseSlice(10)
		m.OpenSlice(2, 20)
		m.SetPixel(0, 0)
		m.CloseSlice(30)

		Expect(m.Oldest().TriggerID).To(Equal(uint64(1)))

		p, ok := m.ReadPixelFromOldest()
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(PixelHit{Col: 40, Row: 2}))

		_, ok = m.ReadPixelFromOldest()
		Expect(ok).To(BeFalse())

		m.DeleteOldest(40)
		Expect(m.Oldest().TriggerID).To(Equal(uint64(2)))
		p, _ = m.ReadPixelFromOldest()
		Expect(p).To(Equal(PixelHit{Col: 0, Row: 0}))
	})

	It("should read a region in double column order", func() {
		m.OpenSlice(0, 0)
		m.SetPixel(3, 7)
		m.SetPixel(0, 9)
		m.SetPixel(1, 0)

		Expect(m.RegionEmpty(0)).To(BeFalse())
		Expect(m.RegionEmpty(1)).To(BeTrue())

		var got []PixelHit
		for {
			p, ok := m.ReadPixelRegion(0)
			if !ok {
				break
			}

			got = append(got, p)
		}

		Expect(got).To(Equal([]PixelHit{
			{Col: 1, Row: 0}, {Col: 0, Row: 9}, {Col: 3, Row: 7},
		}))
		Expect(m.RegionEmpty(0)).To(BeTrue())
	})

	It("should flush the oldest slice but keep it in use", func() {
		m.OpenSlice(0, 0)
		m.SetPixel(5, 5)
		m.FlushOldest()

		Expect(m.NumSlices()).To(Equal(1))
		Expect(m.HitsRemainingInOldest()).To(Equal(0))
	})

	It("should accumulate the occupancy histogram", func() {
		m.OpenSlice(0, 100)
		m.OpenSlice(1, 150)
		m.DeleteOldest(250)
		m.DeleteOldest(300)
		m.Occupancy().Finalize(400)

		h := m.Occupancy()
		Expect(h.Duration(0)).To(Equal(sim.VTimeInNs(200)))
		Expect(h.Duration(1)).To(Equal(sim.VTimeInNs(100)))
		Expect(h.Duration(2)).To(Equal(sim.VTimeInNs(100)))
	})
})
