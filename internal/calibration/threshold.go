// Package calibration fits per-species logistic models relating classifier
// confidence to human-validated correctness and derives the confidence
// threshold that achieves a target precision.
package calibration

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/errors"
)

// Transform selects the scale the logistic model is fitted on.
type Transform string

const (
	// TransformNone fits on the raw confidence score.
	TransformNone Transform = "none"
	// TransformLogit fits on logit(confidence)/sensitivity. The sensitivity
	// scalar rescales the logit before fitting, modeling detector-specific
	// calibration sharpness.
	TransformLogit Transform = "logit"
)

// CurvePoints is the size of the prediction grid in a full model.
const CurvePoints = 100

// Options configures threshold fitting.
type Options struct {
	TargetPrecision float64   // target P(correct), defaults to 0.95
	Transform       Transform // defaults to TransformNone
	Sensitivity     float64   // logit rescaling factor, defaults to 1.0
	MinObservations int       // below this the model is flagged low confidence, defaults to 10
	Strict          bool      // fail on confidence values of exactly 0 or 1 instead of filtering
	FullOutput      bool      // include the prediction curve
	Logger          *slog.Logger
}

// Observation is one labeled training row for a species.
type Observation struct {
	Confidence float64 // classifier confidence in (0,1)
	Correct    bool    // human validation outcome
}

// CurvePoint is one point of the prediction grid: a confidence value, the
// predicted probability of correctness and its 95% confidence band.
type CurvePoint struct {
	Confidence  float64
	Probability float64
	Lower       float64
	Upper       float64
}

// Model is the calibration result for one species.
type Model struct {
	Species        string
	Intercept      float64
	Slope          float64
	Threshold      float64 // on the original confidence scale
	LogitThreshold float64 // on the model (link) scale
	N              int
	LowConfidence  bool // fewer observations than Options.MinObservations
	Curve          []CurvePoint
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.TargetPrecision == 0 {
		opts.TargetPrecision = 0.95
	}
	if opts.Transform == "" {
		opts.Transform = TransformNone
	}
	if opts.Sensitivity == 0 {
		opts.Sensitivity = 1.0
	}
	if opts.MinObservations == 0 {
		opts.MinObservations = 10
	}
	return opts
}

// FitSpecies fits the calibration model for one species from its labeled
// observations. It returns a data error when the labels have no variance or
// when, after transform filtering, no observations remain; those conditions
// are skip-with-warning cases in batch use.
func FitSpecies(species string, obs []Observation, options Options) (*Model, error) {
	opts := options.withDefaults()
	if opts.TargetPrecision <= 0 || opts.TargetPrecision >= 1 {
		return nil, errors.ConfigurationError("target precision must be in (0,1)")
	}

	obs, err := filterDegenerate(species, obs, opts)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, errors.DataError("species %q has no usable observations after transform filtering", species)
	}
	if !hasLabelVariance(obs) {
		return nil, errors.DataError("species %q has no variation in validation labels", species)
	}

	low := len(obs) < opts.MinObservations
	if low && opts.Logger != nil {
		opts.Logger.Warn("few observations for threshold fit, result is low confidence",
			"species", species, "n", len(obs), "min", opts.MinObservations)
	}

	x := make([]float64, len(obs))
	y := make([]float64, len(obs))
	for i, o := range obs {
		x[i] = opts.modelScale(o.Confidence)
		if o.Correct {
			y[i] = 1
		}
	}

	fit, err := fitLogistic(x, y)
	if err != nil {
		return nil, errors.New(err).SpeciesContext(species).Category(errors.CategoryModelFit).Build()
	}

	// Model-scale solution of sigmoid(b0 + b1*x) = p.
	xStar := (logit(opts.TargetPrecision) - fit.intercept) / fit.slope

	model := &Model{
		Species:        species,
		Intercept:      fit.intercept,
		Slope:          fit.slope,
		LogitThreshold: xStar,
		Threshold:      opts.confidenceScale(xStar),
		N:              len(obs),
		LowConfidence:  low,
	}

	if opts.FullOutput {
		model.Curve = predictionCurve(fit, obs, opts)
	}

	return model, nil
}

// FitAll groups labeled detection records by species and fits each
// independently. Per-species failures (no label variance, degenerate data,
// non-convergence) are warned and skipped; when every species is skipped the
// batch escalates to a data error.
func FitAll(records []detection.Record, options Options) ([]*Model, error) {
	opts := options.withDefaults()

	bySpecies := make(map[string][]Observation)
	for _, rec := range records {
		if rec.Verified == detection.VerifiedUnknown || !rec.HasConfidence() {
			continue
		}
		bySpecies[rec.Species] = append(bySpecies[rec.Species], Observation{
			Confidence: rec.Confidence,
			Correct:    rec.Verified == detection.VerifiedTrue,
		})
	}
	if len(bySpecies) == 0 {
		return nil, errors.DataError("no validated detections with confidence scores found")
	}

	species := make([]string, 0, len(bySpecies))
	for sp := range bySpecies {
		species = append(species, sp)
	}
	sort.Strings(species)

	models := make([]*Model, 0, len(species))
	for _, sp := range species {
		model, err := FitSpecies(sp, bySpecies[sp], opts)
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Warn("skipping species in threshold calibration",
					"species", sp, "reason", err.Error())
			}
			continue
		}
		models = append(models, model)
	}

	if len(models) == 0 {
		return nil, errors.DataError("threshold calibration failed for every species")
	}
	return models, nil
}

// modelScale maps a confidence value onto the fitting scale.
func (o *Options) modelScale(confidence float64) float64 {
	if o.Transform == TransformLogit {
		return logit(confidence) / o.Sensitivity
	}
	return confidence
}

// confidenceScale maps a model-scale value back onto the original
// confidence scale.
func (o *Options) confidenceScale(x float64) float64 {
	if o.Transform == TransformLogit {
		return sigmoid(x * o.Sensitivity)
	}
	return x
}

// filterDegenerate drops observations whose confidence produces an infinite
// logit under the transform. In strict mode their presence fails the call
// instead.
func filterDegenerate(species string, obs []Observation, opts Options) ([]Observation, error) {
	if opts.Transform != TransformLogit {
		return obs, nil
	}

	kept := make([]Observation, 0, len(obs))
	dropped := 0
	for _, o := range obs {
		if o.Confidence <= 0 || o.Confidence >= 1 {
			if opts.Strict {
				return nil, errors.DataError(
					"species %q has confidence %v outside (0,1), invalid under the logit transform",
					species, o.Confidence)
			}
			dropped++
			continue
		}
		kept = append(kept, o)
	}
	if dropped > 0 && opts.Logger != nil {
		opts.Logger.Warn("dropped observations with degenerate confidence for logit transform",
			"species", species, "dropped", dropped)
	}
	return kept, nil
}

func hasLabelVariance(obs []Observation) bool {
	first := obs[0].Correct
	for _, o := range obs[1:] {
		if o.Correct != first {
			return true
		}
	}
	return false
}

// predictionCurve evaluates the fitted model over a 100-point confidence
// grid spanning the observed range, with a 95% normal-approximation band
// propagated through the link function.
func predictionCurve(fit *logisticFit, obs []Observation, opts Options) []CurvePoint {
	lo, hi := obs[0].Confidence, obs[0].Confidence
	for _, o := range obs[1:] {
		if o.Confidence < lo {
			lo = o.Confidence
		}
		if o.Confidence > hi {
			hi = o.Confidence
		}
	}

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.975)

	curve := make([]CurvePoint, CurvePoints)
	for i := range curve {
		conf := lo + (hi-lo)*float64(i)/float64(CurvePoints-1)
		x := opts.modelScale(conf)
		eta := fit.intercept + fit.slope*x
		se := fit.seLinear(x)

		curve[i] = CurvePoint{
			Confidence:  conf,
			Probability: sigmoid(eta),
			Lower:       sigmoid(eta - z*se),
			Upper:       sigmoid(eta + z*se),
		}
	}
	return curve
}
