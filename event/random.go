package event

import (
	"bufio"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/alpidesim/alpide"
	"github.com/sarchlab/alpidesim/sim"
)

// A Multiplicity draws the number of hits of a chip in one event.
type Multiplicity interface {
	Sample(r *rand.Rand) int
	Mean() float64
}

// GaussianMultiplicity draws the multiplicity from a normal distribution,
// rounded and clipped at zero.
type GaussianMultiplicity struct {
	Average float64
	StdDev  float64
}

// Sample draws a multiplicity.
func (g GaussianMultiplicity) Sample(r *rand.Rand) int {
	v := math.Round(r.NormFloat64()*g.StdDev + g.Average)
	if v < 0 {
		return 0
	}

	return int(v)
}

// Mean returns the mean of the distribution.
func (g GaussianMultiplicity) Mean() float64 {
	return g.Average
}

// DiscreteMultiplicity draws the multiplicity from a table of probabilities,
// where entry i is the probability of i hits.
type DiscreteMultiplicity struct {
	cdf  []float64
	mean float64
}

// NewDiscreteMultiplicity normalizes a table of weights.
func NewDiscreteMultiplicity(weights []float64) (*DiscreteMultiplicity, error) {
	sum := 0.0
	for i, w := range weights {
		if w < 0 {
			return nil, errors.Errorf("negative probability for %d hits", i)
		}

		sum += w
	}

	if sum == 0 {
		return nil, errors.New("discrete distribution is empty")
	}

	d := &DiscreteMultiplicity{cdf: make([]float64, len(weights))}
	acc := 0.0
	for i, w := range weights {
		acc += w / sum
		d.cdf[i] = acc
		d.mean += float64(i) * w / sum
	}

	return d, nil
}

// Sample draws a multiplicity.
func (d *DiscreteMultiplicity) Sample(r *rand.Rand) int {
	u := r.Float64()
	i := sort.SearchFloat64s(d.cdf, u)
	if i >= len(d.cdf) {
		i = len(d.cdf) - 1
	}

	return i
}

// Mean returns the mean of the normalized distribution.
func (d *DiscreteMultiplicity) Mean() float64 {
	return d.mean
}

// ReadDiscreteMultiplicity reads a distribution file. Each line holds a hit
// count and its probability. Missing hit counts have zero probability. Empty
// lines and lines starting with # are ignored.
func ReadDiscreteMultiplicity(filename string) (*DiscreteMultiplicity, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, sim.NewInputError("event.multiplicity",
			errors.Wrapf(err, "opening distribution file %q", filename))
	}
	defer f.Close()

	var weights []float64

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		x, y, err := parseDistributionLine(text)
		if err != nil {
			return nil, sim.NewInputError("event.multiplicity",
				errors.WithStack(&ErrBadRecord{Filename: filename, Line: line, Err: err}))
		}

		for len(weights) < x {
			weights = append(weights, 0)
		}

		if x < len(weights) {
			return nil, sim.NewInputError("event.multiplicity",
				errors.WithStack(&ErrBadRecord{
					Filename: filename,
					Line:     line,
					Err:      errors.Errorf("hit count %d is not increasing", x),
				}))
		}

		weights = append(weights, y)
	}

	if err := scanner.Err(); err != nil {
		return nil, sim.NewInputError("event.multiplicity",
			errors.Wrapf(err, "reading distribution file %q", filename))
	}

	d, err := NewDiscreteMultiplicity(weights)
	if err != nil {
		return nil, sim.NewInputError("event.multiplicity",
			errors.Wrapf(err, "distribution file %q", filename))
	}

	return d, nil
}

func parseDistributionLine(text string) (int, float64, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, 0, errors.Errorf("expected 2 fields, got %d", len(fields))
	}

	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, errors.Wrap(err, "hit count")
	}

	if x < 0 {
		return 0, 0, errors.Errorf("negative hit count %d", x)
	}

	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "probability")
	}

	if y < 0 {
		return 0, 0, errors.Errorf("negative probability %g", y)
	}

	return x, y, nil
}

// RandomGenerator creates events with uniformly placed random hits.
type RandomGenerator struct {
	rand         *rand.Rand
	chips        []int
	multiplicity Multiplicity

	clusters      bool
	clusterMean   float64
	clusterStdDev float64
}

// NewRandomGenerator creates a generator that places hits on the given
// chips.
func NewRandomGenerator(
	r *rand.Rand,
	chips []int,
	multiplicity Multiplicity,
) *RandomGenerator {
	return &RandomGenerator{
		rand:         r,
		chips:        chips,
		multiplicity: multiplicity,
	}
}

// WithClusters makes every hit grow into a cluster whose size follows a
// normal distribution.
func (g *RandomGenerator) WithClusters(mean, stdDev float64) *RandomGenerator {
	g.clusters = true
	g.clusterMean = mean
	g.clusterStdDev = stdDev

	return g
}

// NextHits returns the hits of a new random event. It never runs out.
func (g *RandomGenerator) NextHits() ([]Hit, error) {
	hits := []Hit{}

	for _, chip := range g.chips {
		n := g.multiplicity.Sample(g.rand)
		for i := 0; i < n; i++ {
			seed := alpide.PixelHit{
				Col: g.rand.IntN(alpide.NCols),
				Row: g.rand.IntN(alpide.NRows),
			}

			for _, p := range g.cluster(seed) {
				hits = append(hits, Hit{ChipID: chip, Col: p.Col, Row: p.Row})
			}
		}
	}

	return hits, nil
}

func (g *RandomGenerator) clusterSize() int {
	if !g.clusters {
		return 1
	}

	size := int(math.Round(g.rand.NormFloat64()*g.clusterStdDev + g.clusterMean))
	if size < 1 {
		return 1
	}

	return size
}

var clusterSteps = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

func (g *RandomGenerator) cluster(seed alpide.PixelHit) []alpide.PixelHit {
	size := g.clusterSize()
	pixels := []alpide.PixelHit{seed}
	seen := map[alpide.PixelHit]bool{seed: true}

	for attempts := 0; len(pixels) < size && attempts < 16*size; attempts++ {
		from := pixels[g.rand.IntN(len(pixels))]
		step := clusterSteps[g.rand.IntN(len(clusterSteps))]
		p := alpide.PixelHit{Col: from.Col + step[0], Row: from.Row + step[1]}

		if p.Col < 0 || p.Col >= alpide.NCols || p.Row < 0 || p.Row >= alpide.NRows {
			continue
		}

		if seen[p] {
			continue
		}

		seen[p] = true
		pixels = append(pixels, p)
	}

	return pixels
}
