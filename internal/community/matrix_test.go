// matrix_test.go: Tests for the site-by-species community matrix builder
package community

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/errors"
)

func TestBuildSumsDuplicates(t *testing.T) {
	// Duplicate (site, species) observations are combined by summation,
	// never overwritten
	m, err := Build([]Observation{
		{Site: "A", Species: "sp1", Value: 5},
		{Site: "A", Species: "sp1", Value: 3},
	}, false)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, m.At("A", "sp1"), 1e-12)
}

func TestBuildPresenceMax(t *testing.T) {
	// A zero observation never hides a later positive one
	m, err := Build([]Observation{
		{Site: "A", Species: "sp1", Value: 0},
		{Site: "A", Species: "sp1", Value: 5},
	}, true)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.At("A", "sp1"), 1e-12)
}

func TestBuildCompleteness(t *testing.T) {
	m, err := Build([]Observation{
		{Site: "A", Species: "sp1", Value: 2},
		{Site: "B", Species: "sp2", Value: 4},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, m.Sites)
	assert.Equal(t, []string{"sp1", "sp2"}, m.Species)

	// Every pair has exactly one cell; unobserved pairs are exactly zero
	assert.InDelta(t, 2.0, m.At("A", "sp1"), 1e-12)
	assert.InDelta(t, 0.0, m.At("A", "sp2"), 1e-12)
	assert.InDelta(t, 0.0, m.At("B", "sp1"), 1e-12)
	assert.InDelta(t, 4.0, m.At("B", "sp2"), 1e-12)
}

func TestBuildSummationIdempotence(t *testing.T) {
	raw := []Observation{
		{Site: "A", Species: "sp1", Value: 5},
		{Site: "A", Species: "sp1", Value: 3},
		{Site: "A", Species: "sp2", Value: 1},
		{Site: "B", Species: "sp1", Value: 2},
	}
	deduped := []Observation{
		{Site: "A", Species: "sp1", Value: 8},
		{Site: "A", Species: "sp2", Value: 1},
		{Site: "B", Species: "sp1", Value: 2},
	}

	fromRaw, err := Build(raw, false)
	require.NoError(t, err)
	fromDeduped, err := Build(deduped, false)
	require.NoError(t, err)

	require.Equal(t, fromRaw.Sites, fromDeduped.Sites)
	require.Equal(t, fromRaw.Species, fromDeduped.Species)
	for _, site := range fromRaw.Sites {
		for _, sp := range fromRaw.Species {
			assert.InDelta(t, fromRaw.At(site, sp), fromDeduped.At(site, sp), 1e-12)
		}
	}
}

func TestBuildPresenceBoundedness(t *testing.T) {
	obs := []Observation{
		{Site: "A", Species: "sp1", Value: 17},
		{Site: "A", Species: "sp2", Value: 0},
		{Site: "B", Species: "sp1", Value: 0.3},
	}
	m, err := Build(obs, true)
	require.NoError(t, err)

	for _, site := range m.Sites {
		for _, sp := range m.Species {
			v := m.At(site, sp)
			assert.True(t, v == 0 || v == 1, "presence cell (%s,%s)=%v", site, sp, v)
		}
	}
}

func TestBuildStat(t *testing.T) {
	obs := []Observation{
		{Site: "A", Species: "sp1", Value: 2},
		{Site: "A", Species: "sp1", Value: 4},
		{Site: "A", Species: "sp1", Value: 9},
	}

	tests := []struct {
		stat string
		want float64
	}{
		{conf.StatSum, 15},
		{conf.StatMean, 5},
		{conf.StatMedian, 4},
		{conf.StatMax, 9},
		{conf.StatMin, 2},
	}
	for _, tt := range tests {
		t.Run(tt.stat, func(t *testing.T) {
			m, err := BuildStat(obs, tt.stat)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, m.At("A", "sp1"), 1e-12)
		})
	}
}

func TestBuildStatEvenMedian(t *testing.T) {
	obs := []Observation{
		{Site: "A", Species: "sp1", Value: 2},
		{Site: "A", Species: "sp1", Value: 4},
	}
	m, err := BuildStat(obs, conf.StatMedian)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, m.At("A", "sp1"), 1e-12)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(nil, false)
	require.Error(t, err)
	assert.True(t, errors.IsData(err))

	_, err = BuildStat([]Observation{{Site: "A", Species: "sp1", Value: 1}}, "variance")
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}
