// threshold_test.go: Tests for logistic threshold calibration
package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/errors"
)

// TestLogisticExactRecovery feeds the fitter fractional responses that lie
// exactly on a known logistic curve; the MLE score equations are then solved
// by the true parameters, so IRLS must recover them to numerical tolerance.
func TestLogisticExactRecovery(t *testing.T) {
	const a, b = -4.0, 10.0

	var x, y []float64
	for c := 0.05; c < 0.96; c += 0.05 {
		x = append(x, c)
		y = append(y, sigmoid(a+b*c))
	}

	fit, err := fitLogistic(x, y)
	require.NoError(t, err)
	assert.InDelta(t, a, fit.intercept, 1e-6)
	assert.InDelta(t, b, fit.slope, 1e-6)

	// The derived threshold hits the target precision on the true curve
	const p = 0.95
	xStar := (logit(p) - fit.intercept) / fit.slope
	assert.InDelta(t, p, sigmoid(a+b*xStar), 1e-6)
}

// saturatedObservations builds a two-design-point training set whose MLE
// reproduces the empirical proportions exactly: 2/10 correct at confidence
// 0.2 and 9/10 correct at confidence 0.8.
func saturatedObservations() []Observation {
	var obs []Observation
	for i := 0; i < 10; i++ {
		obs = append(obs, Observation{Confidence: 0.2, Correct: i < 2})
		obs = append(obs, Observation{Confidence: 0.8, Correct: i < 9})
	}
	return obs
}

func TestFitSpeciesThresholdRoundTrip(t *testing.T) {
	obs := saturatedObservations()

	model, err := FitSpecies("Turdus merula", obs, Options{TargetPrecision: 0.95})
	require.NoError(t, err)

	// With two design points the fit is saturated, so the fitted curve
	// passes exactly through the empirical proportions.
	assert.InDelta(t, 0.2, sigmoid(model.Intercept+model.Slope*0.2), 1e-6)
	assert.InDelta(t, 0.9, sigmoid(model.Intercept+model.Slope*0.8), 1e-6)

	// Threshold round-trip: predicted correctness at the threshold is the
	// target precision, and the threshold lies on the confidence scale.
	assert.InDelta(t, 0.95, sigmoid(model.Intercept+model.Slope*model.Threshold), 1e-6)
	assert.Greater(t, model.Threshold, 0.0)
	assert.Less(t, model.Threshold, 1.0)
	assert.False(t, model.LowConfidence)
	assert.Equal(t, 20, model.N)
}

func TestFitSpeciesLogitTransformRoundTrip(t *testing.T) {
	obs := saturatedObservations()

	const sensitivity = 1.5
	opts := Options{
		TargetPrecision: 0.95,
		Transform:       TransformLogit,
		Sensitivity:     sensitivity,
	}
	model, err := FitSpecies("Turdus merula", obs, opts)
	require.NoError(t, err)

	// Back-transforming the threshold and re-applying the model scale must
	// land on the model-scale solution, which predicts the target exactly.
	xStar := logit(model.Threshold) / sensitivity
	assert.InDelta(t, model.LogitThreshold, xStar, 1e-9)
	assert.InDelta(t, 0.95, sigmoid(model.Intercept+model.Slope*xStar), 1e-6)
	assert.Greater(t, model.Threshold, 0.0)
	assert.Less(t, model.Threshold, 1.0)
}

func TestFitSpeciesNoLabelVariance(t *testing.T) {
	obs := []Observation{
		{Confidence: 0.3, Correct: true},
		{Confidence: 0.6, Correct: true},
		{Confidence: 0.9, Correct: true},
	}

	_, err := FitSpecies("Corvus corax", obs, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsData(err))
	assert.Contains(t, err.Error(), "no variation")
}

func TestFitSpeciesLowObservationCount(t *testing.T) {
	// Overlapping labels so the five-point fit stays non-separable
	obs := []Observation{
		{Confidence: 0.3, Correct: false},
		{Confidence: 0.4, Correct: true},
		{Confidence: 0.5, Correct: false},
		{Confidence: 0.6, Correct: true},
		{Confidence: 0.7, Correct: true},
	}

	model, err := FitSpecies("Parus major", obs, Options{})
	require.NoError(t, err)
	assert.True(t, model.LowConfidence)
	assert.Equal(t, 5, model.N)
}

func TestFitSpeciesStrictDegenerateConfidence(t *testing.T) {
	obs := append(saturatedObservations(), Observation{Confidence: 1.0, Correct: true})

	opts := Options{Transform: TransformLogit, Strict: true}
	_, err := FitSpecies("Sitta europaea", obs, opts)
	require.Error(t, err)
	assert.True(t, errors.IsData(err))

	// Without strict mode the degenerate row is filtered and the fit proceeds
	opts.Strict = false
	model, err := FitSpecies("Sitta europaea", obs, opts)
	require.NoError(t, err)
	assert.Equal(t, 20, model.N)
}

func TestFitSpeciesPredictionCurve(t *testing.T) {
	model, err := FitSpecies("Turdus merula", saturatedObservations(), Options{FullOutput: true})
	require.NoError(t, err)
	require.Len(t, model.Curve, CurvePoints)

	for _, pt := range model.Curve {
		assert.GreaterOrEqual(t, pt.Confidence, 0.2-1e-9)
		assert.LessOrEqual(t, pt.Confidence, 0.8+1e-9)
		assert.GreaterOrEqual(t, pt.Probability, pt.Lower)
		assert.LessOrEqual(t, pt.Probability, pt.Upper)
		assert.GreaterOrEqual(t, pt.Lower, 0.0)
		assert.LessOrEqual(t, pt.Upper, 1.0)
	}

	// The band tightens around the data and the curve is increasing for a
	// positive slope
	assert.Greater(t, model.Curve[CurvePoints-1].Probability, model.Curve[0].Probability)
}

func TestFitAll(t *testing.T) {
	var records []detection.Record
	add := func(species string, confidence float64, verified int) {
		records = append(records, detection.Record{
			Species:    species,
			Confidence: confidence,
			Abundance:  math.NaN(),
			Verified:   verified,
		})
	}

	// A fit-able species
	for i := 0; i < 10; i++ {
		v := detection.VerifiedFalse
		if i < 2 {
			v = detection.VerifiedTrue
		}
		add("good species", 0.2, v)
		v = detection.VerifiedTrue
		if i >= 9 {
			v = detection.VerifiedFalse
		}
		add("good species", 0.8, v)
	}
	// A species with constant labels, skipped with a warning
	add("bad species", 0.5, detection.VerifiedTrue)
	add("bad species", 0.7, detection.VerifiedTrue)
	// Unlabeled rows never enter training data
	add("good species", 0.5, detection.VerifiedUnknown)

	models, err := FitAll(records, Options{})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "good species", models[0].Species)
	assert.Equal(t, 20, models[0].N)
}

func TestFitAllEscalatesWhenEverySpeciesFails(t *testing.T) {
	records := []detection.Record{
		{Species: "sp", Confidence: 0.5, Verified: detection.VerifiedTrue},
		{Species: "sp", Confidence: 0.7, Verified: detection.VerifiedTrue},
	}

	_, err := FitAll(records, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsData(err))
}

func TestFitAllNoLabeledData(t *testing.T) {
	records := []detection.Record{
		{Species: "sp", Confidence: 0.5, Verified: detection.VerifiedUnknown},
	}

	_, err := FitAll(records, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsData(err))
}
