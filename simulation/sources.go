package simulation

import (
	"github.com/sarchlab/alpidesim/config"
	"github.com/sarchlab/alpidesim/detector"
	"github.com/sarchlab/alpidesim/event"
	"github.com/sarchlab/alpidesim/sim"
	"golang.org/x/exp/slices"
)

func chipMapper(det *detector.Detector) event.ChipMapper {
	if det.SingleChip() {
		return event.SingleChipMapper{}
	}

	return event.NewLayoutMapper(det.Layout())
}

func chipIDs(det *detector.Detector) []int {
	ids := make([]int, 0, det.NumChips())
	for _, c := range det.Chips() {
		ids = append(ids, c.GlobalID())
	}

	slices.Sort(ids)

	return ids
}

func multiplicity(ev config.EventSettings) (event.Multiplicity, error) {
	if ev.HitMultiplicityDistributionFile != "" {
		d, err := event.ReadDiscreteMultiplicity(ev.HitMultiplicityDistributionFile)
		if err != nil {
			return nil, err
		}

		return d, nil
	}

	return event.GaussianMultiplicity{
		Average: ev.HitMultiplicityMean,
		StdDev:  ev.HitMultiplicityStdDev,
	}, nil
}

// eventHits opens the hit source of the physics events. Event files are
// read over and over when a number of events is requested.
func eventHits(
	cfg config.Configuration,
	det *detector.Detector,
	ctx *sim.Context,
) (event.HitSource, error) {
	ev := cfg.Event
	cycle := cfg.Simulation.NEvents > 0

	if ev.RandomHitGeneration {
		m, err := multiplicity(ev)
		if err != nil {
			return nil, err
		}

		g := event.NewRandomGenerator(ctx.Rand, chipIDs(det), m)
		if ev.RandomClusterGeneration {
			g.WithClusters(ev.RandomClusterSizeMean, ev.RandomClusterSizeStdDev)
		}

		return g, nil
	}

	if ev.MonteCarloFileType == "csv" {
		r, err := event.NewCSVReader(ev.MonteCarloPath, chipMapper(det), cycle)
		if err != nil {
			return nil, err
		}

		return r, nil
	}

	r, err := event.NewBinaryReader(ev.MonteCarloPath, chipMapper(det), cycle)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func physicsSource(
	cfg config.Configuration,
	det *detector.Detector,
	ctx *sim.Context,
) (event.Source, error) {
	hits, err := eventHits(cfg, det, ctx)
	if err != nil {
		return nil, err
	}

	timing := event.ExponentialTiming{
		Mean: sim.VTimeInNs(cfg.Event.AverageEventRateNs),
	}

	return event.NewGenerator(hits, timing, ctx.Rand, true), nil
}

// qedSource opens the untriggered background events. They are spaced evenly
// and repeat until the physics events run out.
func qedSource(
	cfg config.Configuration,
	det *detector.Detector,
	ctx *sim.Context,
) (event.Source, error) {
	ev := cfg.Event
	if !ev.QEDNoiseInput {
		return nil, nil
	}

	hits, err := event.NewBinaryReader(ev.QEDNoisePath, chipMapper(det), true)
	if err != nil {
		return nil, err
	}

	period := event.QEDFeedPeriod(
		sim.VTimeInNs(ev.QEDNoiseFeedRateNs),
		sim.VTimeInNs(ev.QEDNoiseEventRateNs),
		sim.VTimeInNs(ev.AverageEventRateNs))

	return event.NewGenerator(hits, event.FixedTiming{Period: period},
		ctx.Rand, false), nil
}
