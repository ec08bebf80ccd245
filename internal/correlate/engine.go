package correlate

import (
	"math"

	"gopkg.in/guregu/null.v3"
)

// Options controls a batch run.
type Options struct {
	MinSamples int
	Alpha      float64
	Correction Correction
	// Trend adds an OLS fit of marker on score to each sufficient result.
	Trend bool
}

// DefaultOptions matches the published analysis: n >= 10, alpha 0.05, Bonferroni.
func DefaultOptions() Options {
	return Options{MinSamples: 10, Alpha: 0.05, Correction: Bonferroni}
}

// Marker is a named variable aligned with the score vector.
type Marker struct {
	Name   string
	Values []float64
}

// Result is one (stratum, marker) test. It is not modified after Run returns.
type Result struct {
	Stratum              string     `json:"stratum"`
	Marker               string     `json:"marker"`
	Rho                  null.Float `json:"rho"`
	PRaw                 float64    `json:"p_raw"`
	PCorrected           float64    `json:"p_corrected"`
	N                    int        `json:"n"`
	SignificantRaw       bool       `json:"significant_raw"`
	SignificantCorrected bool       `json:"significant_corrected"`
	Insufficient         bool       `json:"insufficient"`
	Trend                *Fit       `json:"trend,omitempty"`
}

// Run correlates score with every marker inside each stratum. labels assigns each
// sample (by index) to a stratum; samples whose label is not listed in strata are
// ignored. Only pairs with both values present count. Correction is applied per
// stratum across all markers. Results are ordered by strata then markers as given.
func Run(score []float64, labels []string, strata []string, markers []Marker, opt Options) []Result {
	if opt.MinSamples <= 0 {
		opt.MinSamples = DefaultOptions().MinSamples
	}
	if opt.Alpha <= 0 {
		opt.Alpha = DefaultOptions().Alpha
	}
	var out []Result
	for _, s := range strata {
		family := make([]Result, 0, len(markers))
		for _, m := range markers {
			var xs, ys []float64
			for i := range score {
				if i >= len(labels) || labels[i] != s || i >= len(m.Values) {
					continue
				}
				if math.IsNaN(score[i]) || math.IsNaN(m.Values[i]) {
					continue
				}
				xs = append(xs, score[i])
				ys = append(ys, m.Values[i])
			}
			family = append(family, test(s, m.Name, xs, ys, opt))
		}
		raw := make([]float64, len(family))
		for i := range family {
			raw[i] = family[i].PRaw
		}
		adj := Adjust(raw, opt.Correction)
		for i := range family {
			family[i].PCorrected = adj[i]
			family[i].SignificantCorrected = !family[i].Insufficient && adj[i] < opt.Alpha
		}
		out = append(out, family...)
	}
	return out
}

func test(stratum, marker string, xs, ys []float64, opt Options) Result {
	r := Result{Stratum: stratum, Marker: marker, N: len(xs), PRaw: 1}
	if len(xs) < opt.MinSamples {
		r.Insufficient = true
		return r
	}
	rho, p, ok := Spearman(xs, ys)
	if !ok {
		return r
	}
	r.Rho = null.FloatFrom(rho)
	r.PRaw = p
	r.SignificantRaw = p < opt.Alpha
	if opt.Trend {
		if fit, ok := Trend(xs, ys); ok {
			r.Trend = &fit
		}
	}
	return r
}
