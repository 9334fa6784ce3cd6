// Package community pivots long-form detection or abundance records into
// dense site-by-species matrices.
package community

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/errors"
)

// Observation is one long-form input row: a site, a species and a numeric
// abundance value.
type Observation struct {
	Site    string
	Species string
	Value   float64
}

// Matrix is a dense site-by-species community matrix. Rows are unique sites
// and columns unique species, both in sorted order so repeated builds over
// the same inputs are directly comparable. Cells for unobserved pairs are
// exactly zero.
type Matrix struct {
	Sites   []string
	Species []string
	Data    *mat.Dense

	siteIdx map[string]int
	spIdx   map[string]int
}

// At returns the cell for (site, species), or 0 when either key is unknown.
func (m *Matrix) At(site, species string) float64 {
	i, ok := m.siteIdx[site]
	if !ok {
		return 0
	}
	j, ok := m.spIdx[species]
	if !ok {
		return 0
	}
	return m.Data.At(i, j)
}

// Row returns the abundance row for a site in species column order.
func (m *Matrix) Row(site string) []float64 {
	i, ok := m.siteIdx[site]
	if !ok {
		return nil
	}
	return mat.Row(nil, i, m.Data)
}

// Build constructs the matrix from long-form rows. In abundance mode,
// duplicate (site, species) observations are summed; in presence mode each
// observation contributes presence(value) = 1 if value > 0 else 0, combined
// by max so a single positive observation marks the pair present.
func Build(rows []Observation, presenceAbsence bool) (*Matrix, error) {
	m, err := newMatrix(rows)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		i := m.siteIdx[row.Site]
		j := m.spIdx[row.Species]
		if presenceAbsence {
			p := 0.0
			if row.Value > 0 {
				p = 1
			}
			if p > m.Data.At(i, j) {
				m.Data.Set(i, j, p)
			}
		} else {
			m.Data.Set(i, j, m.Data.At(i, j)+row.Value)
		}
	}

	return m, nil
}

// BuildStat constructs the matrix with a per-cell summary statistic instead
// of the sum/presence duality: each (site, species) group of values is
// reduced with stat (sum, mean, median, max or min). This is the aggregation
// path the diversity engine uses.
func BuildStat(rows []Observation, stat string) (*Matrix, error) {
	switch stat {
	case conf.StatSum, conf.StatMean, conf.StatMedian, conf.StatMax, conf.StatMin:
	default:
		return nil, errors.ConfigurationError("unknown aggregation statistic", stat)
	}

	m, err := newMatrix(rows)
	if err != nil {
		return nil, err
	}

	type cell struct{ i, j int }
	values := make(map[cell][]float64)
	for _, row := range rows {
		c := cell{m.siteIdx[row.Site], m.spIdx[row.Species]}
		values[c] = append(values[c], row.Value)
	}

	for c, vs := range values {
		m.Data.Set(c.i, c.j, reduce(vs, stat))
	}

	return m, nil
}

// newMatrix runs the sizing pass: collect sorted unique keys, build the
// key-to-index mappings and allocate the zeroed dense matrix.
func newMatrix(rows []Observation) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, errors.DataError("no observations to build community matrix from")
	}

	siteSet := make(map[string]bool)
	spSet := make(map[string]bool)
	for _, row := range rows {
		siteSet[row.Site] = true
		spSet[row.Species] = true
	}

	m := &Matrix{
		Sites:   sortedKeys(siteSet),
		Species: sortedKeys(spSet),
		siteIdx: make(map[string]int, len(siteSet)),
		spIdx:   make(map[string]int, len(spSet)),
	}
	for i, s := range m.Sites {
		m.siteIdx[s] = i
	}
	for j, s := range m.Species {
		m.spIdx[s] = j
	}
	m.Data = mat.NewDense(len(m.Sites), len(m.Species), nil)
	return m, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func reduce(vs []float64, stat string) float64 {
	switch stat {
	case conf.StatSum:
		sum := 0.0
		for _, v := range vs {
			sum += v
		}
		return sum
	case conf.StatMean:
		sum := 0.0
		for _, v := range vs {
			sum += v
		}
		return sum / float64(len(vs))
	case conf.StatMedian:
		sorted := make([]float64, len(vs))
		copy(sorted, vs)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	case conf.StatMax:
		max := vs[0]
		for _, v := range vs[1:] {
			if v > max {
				max = v
			}
		}
		return max
	default: // conf.StatMin
		min := vs[0]
		for _, v := range vs[1:] {
			if v < min {
				min = v
			}
		}
		return min
	}
}
