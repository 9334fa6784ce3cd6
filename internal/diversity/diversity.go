// Package diversity computes per-site community diversity summaries
// (richness, Shannon, Simpson and Hill numbers) from site-by-species
// matrices.
package diversity

import (
	"math"

	"github.com/tphakala/birdmetrics/internal/activity"
	"github.com/tphakala/birdmetrics/internal/community"
	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/errors"
)

// Row is the diversity summary for one site, derived purely from one
// community matrix row.
type Row struct {
	Site         string
	AbundanceSum float64 // total aggregated abundance for the site
	Richness     int     // species with aggregated abundance > 0
	Shannon      float64 // -sum(p*ln p), zero abundances contribute 0
	Simpson      float64 // 1 - sum(p^2), in [0,1)
	Q1           float64 // exp(shannon), Hill number of order 1
	Q2           float64 // 1/(1-simpson), inverse Simpson, Hill order 2
}

// Options configures FromDetections.
type Options struct {
	Statistic string           // per-cell aggregation, defaults to sum
	Activity  activity.Options // passed through when abundance is derived
}

// Summarize computes one diversity row per site of the matrix. Q2 diverges
// to +Inf as simpson approaches 1 (a community dominated by one species);
// that boundary is returned as-is rather than treated as an error.
func Summarize(m *community.Matrix) []Row {
	rows := make([]Row, 0, len(m.Sites))
	for _, site := range m.Sites {
		abundances := m.Row(site)

		total := 0.0
		richness := 0
		for _, a := range abundances {
			if a > 0 {
				total += a
				richness++
			}
		}

		var shannon, sumP2 float64
		if total > 0 {
			for _, a := range abundances {
				if a <= 0 {
					continue
				}
				p := a / total
				shannon -= p * math.Log(p)
				sumP2 += p * p
			}
		}
		simpson := 1 - sumP2
		if total == 0 {
			simpson = 0
		}

		rows = append(rows, Row{
			Site:         site,
			AbundanceSum: total,
			Richness:     richness,
			Shannon:      shannon,
			Simpson:      simpson,
			Q1:           math.Exp(shannon),
			Q2:           1 / (1 - simpson),
		})
	}
	return rows
}

// FromDetections computes diversity summaries straight from a detection
// table. When an abundance column is bound the bound values feed the matrix
// directly; otherwise the activity rate engine manufactures a per-group
// abundance first. Both paths build matrix rows and columns in identical
// sorted order, so cross-run comparisons are stable.
func FromDetections(records []detection.Record, opts Options) ([]Row, error) {
	if len(records) == 0 {
		return nil, errors.DataError("no detections to compute diversity from")
	}
	if opts.Statistic == "" {
		opts.Statistic = conf.StatSum
	}

	var obs []community.Observation
	if hasAbundance(records) {
		obs = make([]community.Observation, 0, len(records))
		for _, rec := range records {
			obs = append(obs, community.Observation{
				Site:    rec.Site,
				Species: rec.Species,
				Value:   rec.AbundanceOrPresence(),
			})
		}
	} else {
		opts.Activity.BySite = true
		rates, err := activity.Compute(records, opts.Activity)
		if err != nil {
			return nil, err
		}
		obs = make([]community.Observation, 0, len(rates))
		for _, r := range rates {
			obs = append(obs, community.Observation{
				Site:    r.Site,
				Species: r.Species,
				Value:   r.Rate,
			})
		}
	}

	m, err := community.BuildStat(obs, opts.Statistic)
	if err != nil {
		return nil, err
	}
	return Summarize(m), nil
}

// hasAbundance reports whether any record carries a bound abundance value.
func hasAbundance(records []detection.Record) bool {
	for i := range records {
		if records[i].HasAbundance() {
			return true
		}
	}
	return false
}
