package alpide

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PixelFrontEnd", func() {
	var (
		fe *PixelFrontEnd
		m  *PixelMatrix
	)

	BeforeEach(func() {
		fe = NewPixelFrontEnd(200, 1000)
		m = NewPixelMatrix()
		m.OpenSlice(0, 0)
	})

	It("should latch hits active during the strobe", func() {
		Expect(fe.Inject(10, 10, 0)).To(Succeed())

		Expect(fe.Latch(1100, 1200, m)).To(Succeed())
		Expect(m.HitsRemainingInOldest()).To(Equal(1))
	})

	It("should not latch hits still in their dead time", func() {
		Expect(fe.Inject(10, 10, 0)).To(Succeed())

		Expect(fe.Latch(0, 200, m)).To(Succeed())
		Expect(m.HitsRemainingInOldest()).To(Equal(0))
		Expect(fe.NumPending()).To(Equal(1))
	})

	It("should purge expired hits", func() {
		Expect(fe.Inject(10, 10, 0)).To(Succeed())

		Expect(fe.Latch(1200, 1300, m)).To(Succeed())
		Expect(m.HitsRemainingInOldest()).To(Equal(0))
		Expect(fe.NumPending()).To(Equal(0))
	})

	It("should suppress duplicates within a slice", func() {
		fe.Inject(10, 10, 0)
		fe.Inject(10, 10, 50)

		Expect(fe.Latch(300, 400, m)).To(Succeed())
		Expect(m.LatchedHits()).To(Equal(uint64(1)))
		Expect(m.DuplicateHits()).To(Equal(uint64(1)))
	})

	It("should reject bad coordinates", func() {
		Expect(fe.Inject(NCols, 0, 0)).NotTo(Succeed())
	})
})
