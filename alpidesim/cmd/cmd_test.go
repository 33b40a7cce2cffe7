package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/sarchlab/alpidesim/config"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/event"
	"github.com/sarchlab/alpidesim/sim"
)

type hitList struct {
	events [][]event.Hit
}

func (l *hitList) NextHits() ([]event.Hit, error) {
	if len(l.events) == 0 {
		return nil, io.EOF
	}

	hits := l.events[0]
	l.events = l.events[1:]

	return hits, nil
}

var _ = Describe("Run flags", func() {
	var (
		c   *cobra.Command
		cfg config.Configuration
	)

	BeforeEach(func() {
		c = &cobra.Command{Use: "run"}
		addRunFlags(c)
		cfg = config.DefaultConfiguration()
	})

	It("should keep the settings without flags", func() {
		Expect(c.Flags().Parse(nil)).To(Succeed())

		Expect(applyRunFlags(c, &cfg)).To(Succeed())
		Expect(cfg).To(Equal(config.DefaultConfiguration()))
	})

	It("should override the settings", func() {
		Expect(c.Flags().Parse([]string{
			"--output", "out",
			"--events", "5",
			"--seed", "42",
			"--monitor-port", "8080",
			"--open-browser",
		})).To(Succeed())

		Expect(applyRunFlags(c, &cfg)).To(Succeed())
		Expect(cfg.DataOutput.OutputDirPrefix).To(Equal("out"))
		Expect(cfg.Simulation.NEvents).To(Equal(uint64(5)))
		Expect(cfg.Simulation.RandomSeed).To(Equal(uint64(42)))
		Expect(cfg.Monitor.Port).To(Equal(8080))
		Expect(cfg.Monitor.OpenBrowser).To(BeTrue())
		Expect(cfg.Monitor.Enable).To(BeTrue())
	})

	It("should validate the result", func() {
		Expect(c.Flags().Parse([]string{"--monitor-port", "70000"})).
			To(Succeed())

		err := applyRunFlags(c, &cfg)
		kind, ok := sim.KindOf(err)
		Expect(ok).To(BeTrue())
		Expect(kind).To(Equal(sim.ConfigError))
	})
})

var _ = Describe("Settings", func() {
	var c *cobra.Command

	BeforeEach(func() {
		c = &cobra.Command{Use: "test"}
		c.Flags().String("settings", "settings.json", "")
		wd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(GinkgoT().TempDir())).To(Succeed())
		DeferCleanup(os.Chdir, wd)
	})

	It("should use the defaults without a settings file", func() {
		cfg, err := loadSettings(c)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.DefaultConfiguration()))
	})

	It("should fail on a missing settings file that was asked for", func() {
		Expect(c.Flags().Parse([]string{"--settings", "other.json"})).
			To(Succeed())

		_, err := loadSettings(c)
		Expect(err).To(HaveOccurred())
	})

	It("should read the settings file and the dotenv file", func() {
		Expect(os.WriteFile("settings.json",
			[]byte(`{"simulation": {"n_events": 7}}`), 0o644)).To(Succeed())
		Expect(os.WriteFile(".env",
			[]byte("ALPIDESIM_RANDOM_SEED=3\n"), 0o644)).To(Succeed())

		cfg, err := loadSettings(c)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Simulation.NEvents).To(Equal(uint64(7)))
		Expect(cfg.Simulation.RandomSeed).To(Equal(uint64(3)))
	})
})

var _ = Describe("Event summary", func() {
	It("should count hits per layer", func() {
		layout, err := detector.NewITSLayout([7]int{1, 1})
		Expect(err).NotTo(HaveOccurred())

		layer1 := layout.GlobalChipID(detector.Position{Layer: 1})
		src := &hitList{events: [][]event.Hit{
			{{ChipID: 0}, {ChipID: 1}, {ChipID: layer1}},
			{},
			{{ChipID: 2}},
		}}

		s, err := summarizeEvents(src, layout, 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Events).To(Equal(uint64(3)))
		Expect(s.EmptyEvents).To(Equal(uint64(1)))
		Expect(s.Hits).To(Equal(uint64(4)))
		Expect(s.MaxHits).To(Equal(3))
		Expect(s.LayerHits).To(Equal(map[int]uint64{0: 3, 1: 1}))

		var out bytes.Buffer
		Expect(s.write(&out)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Mean hits per event: 1.33\n"))
		Expect(out.String()).To(HaveSuffix("Layer 0 hits: 3\nLayer 1 hits: 1\n"))
	})

	It("should stop at the limit", func() {
		src := &hitList{events: [][]event.Hit{{}, {}, {}}}

		s, err := summarizeEvents(src, nil, 2)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Events).To(Equal(uint64(2)))
	})

	It("should summarize a CSV file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "events.csv")
		Expect(os.WriteFile(path, []byte(
			"event;layer;stave;chip;col;row\n"+
				"0;0;0;0;1;1\n"+
				"0;0;0;0;2;1\n"+
				"1;0;0;0;3;3\n"), 0o644)).To(Succeed())

		cfg := config.DefaultConfiguration()
		src, layout, err := openEvents(cfg, path, "csv")
		Expect(err).NotTo(HaveOccurred())
		Expect(layout).To(BeNil())

		s, err := summarizeEvents(src, layout, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Events).To(Equal(uint64(2)))
		Expect(s.Hits).To(Equal(uint64(3)))
	})

	It("should reject an unknown file type", func() {
		_, _, err := openEvents(config.DefaultConfiguration(), "x", "hdf5")
		Expect(err).To(MatchError(ContainSubstring("unknown event file type")))
	})
})
