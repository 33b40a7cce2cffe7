package cmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/config"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/event"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var eventsCmd = &cobra.Command{
	Use:   "events [event file or directory]",
	Short: "Summarize an event input.",
	Long: "`events` reads the Monte Carlo events of the settings file, or " +
		"the given path, and counts the pixel hits that land on the " +
		"simulated staves.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		path := cfg.Event.MonteCarloPath
		if len(args) == 1 {
			path = args[0]
		}

		fileType := cfg.Event.MonteCarloFileType
		if cmd.Flags().Changed("type") {
			fileType, _ = cmd.Flags().GetString("type")
		}

		limit, _ := cmd.Flags().GetUint64("limit")

		src, layout, err := openEvents(cfg, path, fileType)
		if err != nil {
			return err
		}

		summary, err := summarizeEvents(src, layout, limit)
		if err != nil {
			return err
		}

		return summary.write(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().String("type", "binary", "Event file type, binary or csv")
	eventsCmd.Flags().Uint64("limit", 0, "Stop after this many events")
}

func openEvents(
	cfg config.Configuration,
	path, fileType string,
) (event.HitSource, detector.Layout, error) {
	if path == "" {
		return nil, nil, errors.New("no event path given")
	}

	var (
		layout detector.Layout
		mapper event.ChipMapper = event.SingleChipMapper{}
	)

	if !cfg.Simulation.SingleChip {
		l, err := cfg.Layout()
		if err != nil {
			return nil, nil, err
		}

		layout = l
		mapper = event.NewLayoutMapper(l)
	}

	switch fileType {
	case "csv":
		r, err := event.NewCSVReader(path, mapper, false)
		if err != nil {
			return nil, nil, err
		}

		return r, layout, nil
	case "binary":
		r, err := event.NewBinaryReader(path, mapper, false)
		if err != nil {
			return nil, nil, err
		}

		return r, layout, nil
	default:
		return nil, nil, errors.Errorf("unknown event file type %q", fileType)
	}
}

type eventSummary struct {
	Events      uint64
	Hits        uint64
	MaxHits     int
	EmptyEvents uint64
	LayerHits   map[int]uint64
}

// summarizeEvents reads events until the source runs out or the limit is
// reached. A zero limit reads everything.
func summarizeEvents(
	src event.HitSource,
	layout detector.Layout,
	limit uint64,
) (eventSummary, error) {
	s := eventSummary{LayerHits: make(map[int]uint64)}

	for limit == 0 || s.Events < limit {
		hits, err := src.NextHits()
		if err == io.EOF {
			break
		}

		if err != nil {
			return s, err
		}

		s.Events++
		s.Hits += uint64(len(hits))
		s.MaxHits = max(s.MaxHits, len(hits))

		if len(hits) == 0 {
			s.EmptyEvents++
		}

		for _, h := range hits {
			layer := 0
			if layout != nil {
				layer = layout.PositionOf(h.ChipID).Layer
			}

			s.LayerHits[layer]++
		}
	}

	return s, nil
}

func (s eventSummary) mean() float64 {
	if s.Events == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Events)
}

func (s eventSummary) write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Events: %d\nEmpty events: %d\nPixel hits: %d\n"+
			"Mean hits per event: %.2f\nMax hits per event: %d\n",
		s.Events, s.EmptyEvents, s.Hits, s.mean(), s.MaxHits)
	if err != nil {
		return err
	}

	layers := maps.Keys(s.LayerHits)
	slices.Sort(layers)

	for _, l := range layers {
		_, err := fmt.Fprintf(w, "Layer %d hits: %d\n", l, s.LayerHits[l])
		if err != nil {
			return err
		}
	}

	return nil
}
