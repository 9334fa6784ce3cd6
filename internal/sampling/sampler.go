// Package sampling draws confidence-stratified detection samples to support
// manual validation of classifier output.
package sampling

import (
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/errors"
)

// binEpsilon inflates the upper bound of the last bin so the pooled maximum
// confidence falls inside it rather than on its open edge.
const binEpsilon = 1e-9

// Plan partitions the pooled confidence range into equal-width bins. It is
// computed once on the global data and reused identically for every species,
// keeping bin semantics comparable across species.
type Plan struct {
	Min  float64
	Max  float64
	Bins int

	width float64
}

// NewPlan computes the global sampling plan from the pooled detections.
func NewPlan(records []detection.Record, bins int) (Plan, error) {
	if bins < 1 {
		return Plan{}, errors.ConfigurationError("bin count must be at least 1")
	}

	found := false
	var lo, hi float64
	for i := range records {
		if !records[i].HasConfidence() {
			continue
		}
		c := records[i].Confidence
		if !found {
			lo, hi = c, c
			found = true
			continue
		}
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	if !found {
		return Plan{}, errors.DataError("no detections with confidence scores to sample from")
	}

	width := (hi + binEpsilon - lo) / float64(bins)
	if width <= 0 {
		width = binEpsilon
	}
	return Plan{Min: lo, Max: hi, Bins: bins, width: width}, nil
}

// BinOf returns the half-open bin index for a confidence value, or -1 when
// the value falls outside the plan's range.
func (p Plan) BinOf(confidence float64) int {
	if confidence < p.Min || confidence > p.Max {
		return -1
	}
	bin := int((confidence - p.Min) / p.width)
	if bin >= p.Bins {
		bin = p.Bins - 1
	}
	return bin
}

// Options configures a Sample call.
type Options struct {
	Samples  int   // target sample count per species
	Bins     int   // number of equal-width confidence bins
	Resample bool  // redistribute per-bin shortfall across remaining bins
	Seed     int64 // identical seed and inputs produce an identical sample
	Logger   *slog.Logger
}

// Sampled is one drawn detection, tagged with the confidence bin it fell
// into for downstream auditing.
type Sampled struct {
	detection.Record
	Bin int
}

// Sample draws an approximately confidence-even subset per species. Each
// populated bin contributes up to floor(samples/bins) rows without
// replacement; with Resample the shortfall from under-populated bins is
// redistributed proportionally across bins that still have unused rows. A
// species with fewer rows than the target returns all of them with a
// warning.
func Sample(records []detection.Record, opts Options) ([]Sampled, error) {
	if opts.Samples < 1 {
		return nil, errors.ConfigurationError("sample count must be at least 1")
	}

	plan, err := NewPlan(records, opts.Bins)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if opts.Seed != 0 {
		rng = rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)>>1|1))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	bySpecies := make(map[string][]detection.Record)
	for _, rec := range records {
		if !rec.HasConfidence() {
			continue
		}
		bySpecies[rec.Species] = append(bySpecies[rec.Species], rec)
	}

	species := make([]string, 0, len(bySpecies))
	for sp := range bySpecies {
		species = append(species, sp)
	}
	sort.Strings(species)

	var out []Sampled
	for _, sp := range species {
		out = append(out, sampleSpecies(sp, bySpecies[sp], plan, opts, rng)...)
	}
	return out, nil
}

func sampleSpecies(species string, rows []detection.Record, plan Plan, opts Options, rng *rand.Rand) []Sampled {
	if len(rows) <= opts.Samples {
		if opts.Logger != nil {
			opts.Logger.Warn("species has fewer detections than requested, returning all",
				"species", species, "available", len(rows), "requested", opts.Samples)
		}
		all := make([]Sampled, 0, len(rows))
		for _, r := range rows {
			all = append(all, Sampled{Record: r, Bin: plan.BinOf(r.Confidence)})
		}
		return all
	}

	binned := make([][]detection.Record, plan.Bins)
	for _, r := range rows {
		bin := plan.BinOf(r.Confidence)
		if bin < 0 {
			continue
		}
		binned[bin] = append(binned[bin], r)
	}

	// Shuffle each bin once; drawing is then a matter of advancing a cursor,
	// which guarantees no row is ever reused.
	cursors := make([]int, plan.Bins)
	for bin := range binned {
		rng.Shuffle(len(binned[bin]), func(i, j int) {
			binned[bin][i], binned[bin][j] = binned[bin][j], binned[bin][i]
		})
	}

	quota := opts.Samples / plan.Bins
	var out []Sampled
	take := func(bin, n int) int {
		avail := len(binned[bin]) - cursors[bin]
		if n > avail {
			n = avail
		}
		for k := 0; k < n; k++ {
			out = append(out, Sampled{Record: binned[bin][cursors[bin]+k], Bin: bin})
		}
		cursors[bin] += n
		return n
	}

	taken := 0
	for bin := range binned {
		taken += take(bin, quota)
	}

	if !opts.Resample || taken >= opts.Samples {
		return out
	}

	// Redistribute the shortfall proportionally to what each bin still has.
	shortfall := opts.Samples - taken
	for shortfall > 0 {
		totalRemaining := 0
		for bin := range binned {
			totalRemaining += len(binned[bin]) - cursors[bin]
		}
		if totalRemaining == 0 {
			break
		}

		progressed := false
		for bin := range binned {
			remaining := len(binned[bin]) - cursors[bin]
			if remaining == 0 || shortfall == 0 {
				continue
			}
			share := shortfall * remaining / totalRemaining
			if share < 1 {
				share = 1
			}
			got := take(bin, min(share, shortfall))
			shortfall -= got
			if got > 0 {
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	return out
}
