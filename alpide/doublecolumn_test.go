package alpide

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DoubleColumn", func() {
	var dc *DoubleColumn

	BeforeEach(func() {
		dc = &DoubleColumn{}
	})

	It("should ignore duplicates", func() {
		Expect(dc.SetPixel(0, 10)).To(BeTrue())
		Expect(dc.SetPixel(0, 10)).To(BeFalse())
		Expect(dc.Size()).To(Equal(1))
	})

	It("should read out in priority encoder order", func() {
		pixels := [][2]int{
			{0, 508}, {0, 509}, {0, 510}, {0, 511},
			{0, 0}, {0, 1}, {0, 2}, {0, 3},
			{1, 508}, {1, 509}, {1, 510}, {1, 511},
			{1, 0}, {1, 1}, {1, 2}, {1, 3},
		}
		for _, p := range pixels {
			dc.SetPixel(p[0], p[1])
		}

		var order [][2]int
		for {
			col, row, ok := dc.ReadPixel()
			if !ok {
				break
			}

			order = append(order, [2]int{col, row})
		}

		Expect(order).To(Equal([][2]int{
			{0, 0}, {1, 0}, {1, 1}, {0, 1},
			{0, 2}, {1, 2}, {1, 3}, {0, 3},
			{0, 508}, {1, 508}, {1, 509}, {0, 509},
			{0, 510}, {1, 510}, {1, 511}, {0, 511},
		}))
		Expect(dc.Empty()).To(BeTrue())
	})

	It("should clear", func() {
		dc.SetPixel(1, 511)
		dc.Clear()

		_, _, ok := dc.ReadPixel()
		Expect(ok).To(BeFalse())
		Expect(dc.Size()).To(Equal(0))
	})
})
