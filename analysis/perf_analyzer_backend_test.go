package analysis

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CSVBackend", func() {
	It("should write entries after the header", func() {
		var out bytes.Buffer
		backend := NewCSVPerfAnalyzerWriter(&out)

		backend.AddDataEntry(PerfAnalyzerEntry{
			Start: 0, End: 100, Where: "Chip_0.DMU", What: "Level",
			EntryType: "Buffer", Value: 1.5,
		})

		Expect(backend.Flush()).To(Succeed())
		Expect(out.String()).To(Equal(
			"Start,End,Where,What,EntryType,Value,Unit\n" +
				"0,100,Chip_0.DMU,Level,Buffer,1.500000,\n"))
	})
})
