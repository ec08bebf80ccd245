// Package report turns correlation results and scored samples into the tidy
// result table, the run summary, cohort group summaries and their renderings.
package report

import (
	"math"
	"sort"

	"github.com/KaramelBytes/tgjs-cli/internal/correlate"
	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/strata"
	"github.com/montanaflynn/stats"
	"gopkg.in/guregu/null.v3"
)

// StratumSummary describes the scored samples of one stratum.
type StratumSummary struct {
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	N           int        `json:"n"`
	ScoreMean   null.Float `json:"score_mean"`
	ScoreSD     null.Float `json:"score_sd"`
}

// Finding is a (stratum, marker) pair meeting the corrected significance threshold.
type Finding struct {
	Stratum    string  `json:"stratum"`
	Marker     string  `json:"marker"`
	Rho        float64 `json:"rho"`
	PCorrected float64 `json:"p_corrected"`
	N          int     `json:"n"`
}

// Summary is the compact record of one run.
type Summary struct {
	TotalSamples  int              `json:"total_samples"`
	ScoredSamples int              `json:"scored_samples"`
	Unknown       int              `json:"unknown_stratum"`
	ScoreMean     null.Float       `json:"score_mean"`
	ScoreSD       null.Float       `json:"score_sd"`
	Strata        []StratumSummary `json:"strata"`
	Significant   []Finding        `json:"significant"`
	Insufficient  int              `json:"insufficient_results"`
}

// Sorted returns a copy of results ordered by stratum then marker.
func Sorted(results []correlate.Result) []correlate.Result {
	out := append([]correlate.Result(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stratum != out[j].Stratum {
			return out[i].Stratum < out[j].Stratum
		}
		return out[i].Marker < out[j].Marker
	})
	return out
}

// Summarize builds the run summary. samples are the aligned records with Score and
// Stratum set; labels gives stratum order (unknown is counted separately).
func Summarize(samples []*dataset.SampleRecord, labels []string, describe func(string) string, results []correlate.Result) Summary {
	s := Summary{TotalSamples: len(samples), Strata: []StratumSummary{}, Significant: []Finding{}}
	var all []float64
	by := map[string][]float64{}
	for _, r := range samples {
		if r.Stratum == strata.Unknown {
			s.Unknown++
		}
		if !r.Score.Valid {
			continue
		}
		all = append(all, r.Score.Float64)
		by[r.Stratum] = append(by[r.Stratum], r.Score.Float64)
	}
	s.ScoredSamples = len(all)
	s.ScoreMean, s.ScoreSD = meanSD(all)
	for _, l := range labels {
		ss := StratumSummary{Label: l, N: len(by[l])}
		if describe != nil {
			ss.Description = describe(l)
		}
		ss.ScoreMean, ss.ScoreSD = meanSD(by[l])
		s.Strata = append(s.Strata, ss)
	}
	for _, r := range Sorted(results) {
		if r.Insufficient {
			s.Insufficient++
		}
		if r.SignificantCorrected {
			s.Significant = append(s.Significant, Finding{
				Stratum: r.Stratum, Marker: r.Marker, Rho: r.Rho.Float64, PCorrected: r.PCorrected, N: r.N,
			})
		}
	}
	return s
}

// meanSD returns the mean and sample standard deviation; SD needs two values.
func meanSD(v []float64) (null.Float, null.Float) {
	if len(v) == 0 {
		return null.Float{}, null.Float{}
	}
	data := stats.Float64Data(v)
	m, err := data.Mean()
	if err != nil {
		return null.Float{}, null.Float{}
	}
	if len(v) < 2 {
		return null.FloatFrom(m), null.Float{}
	}
	sd, err := data.StandardDeviationSample()
	if err != nil || math.IsNaN(sd) {
		return null.FloatFrom(m), null.Float{}
	}
	return null.FloatFrom(m), null.FloatFrom(sd)
}

func median(v []float64) null.Float {
	if len(v) == 0 {
		return null.Float{}
	}
	m, err := stats.Float64Data(v).Median()
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(m)
}
