package response

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/correlate"
	"github.com/montanaflynn/stats"
	"gopkg.in/guregu/null.v3"
)

// Sample is the per-sample input to Analyze. Score is NaN when undefined.
type Sample struct {
	ID       string
	Patient  string
	Visit    string
	Response string
	Score    float64
}

var patientRe = regexp.MustCompile(`Pt\d+`)

// PatientFromTitle extracts a patient id such as "Pt12" from a sample title.
func PatientFromTitle(title string) string {
	return patientRe.FindString(title)
}

// Tertile is the response rate within one score tertile of pre-treatment samples.
type Tertile struct {
	Label      string     `json:"label"`
	N          int        `json:"n"`
	Responders int        `json:"responders"`
	Rate       null.Float `json:"response_rate"`
}

// PairedShift compares pre and on-treatment scores of patients sampled at both visits.
type PairedShift struct {
	Group   string     `json:"group"`
	Pairs   int        `json:"pairs"`
	PreMean null.Float `json:"pre_mean"`
	OnMean  null.Float `json:"on_mean"`
}

// Report holds the response analysis of pre-treatment samples.
type Report struct {
	NPre           int            `json:"n_pre"`
	ResponseCounts map[string]int `json:"response_counts"`

	Responders        int        `json:"responders"`
	NonResponders     int        `json:"non_responders"`
	MeanResponders    null.Float `json:"mean_responders"`
	MeanNonResponders null.Float `json:"mean_non_responders"`

	MannWhitneyU null.Float `json:"mann_whitney_u"`
	MannWhitneyP null.Float `json:"mann_whitney_p"`

	LogisticOR null.Float `json:"logistic_or"`

	SpearmanRECIST  null.Float `json:"spearman_recist_rho"`
	SpearmanRECISTP null.Float `json:"spearman_recist_p"`
	SpearmanN       int        `json:"spearman_recist_n"`

	TertileCuts    [2]float64 `json:"tertile_cuts"`
	Tertiles       []Tertile  `json:"tertiles"`
	KruskalTertile null.Float `json:"kruskal_tertile_p"`

	MedianSplit [2][2]int  `json:"median_split"` // [high, low] x [responder, non-responder]
	FisherP     null.Float `json:"fisher_p"`

	Paired []PairedShift `json:"paired,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

func isVisit(v, want string) bool {
	return strings.EqualFold(strings.TrimSpace(v), want)
}

func mean(v []float64) null.Float {
	if len(v) == 0 {
		return null.Float{}
	}
	m, err := stats.Mean(stats.Float64Data(v))
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(m)
}

func nullable(v float64, ok bool) null.Float {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// Analyze runs the response tests. Tertile cut points and the median split are taken
// over every scored sample; the tests themselves use pre-treatment samples with a
// known binary response.
func Analyze(samples []Sample) *Report {
	rep := &Report{ResponseCounts: map[string]int{}}

	var scored []float64
	for _, s := range samples {
		if !math.IsNaN(s.Score) {
			scored = append(scored, s.Score)
		}
	}
	if len(scored) == 0 {
		rep.Warnings = append(rep.Warnings, "no scored samples")
		return rep
	}
	sort.Float64s(scored)
	c1, c2 := quantile(scored, 1.0/3), quantile(scored, 2.0/3)
	med := quantile(scored, 0.5)
	rep.TertileCuts = [2]float64{c1, c2}
	tertileOf := func(v float64) int {
		switch {
		case v <= c1:
			return 0
		case v <= c2:
			return 1
		}
		return 2
	}

	var resp, non, ordX, ordY, allX, allY []float64
	tert := make([][]float64, 3)
	rep.Tertiles = []Tertile{{Label: "Low"}, {Label: "Mid"}, {Label: "High"}}
	for _, s := range samples {
		if !isVisit(s.Visit, "Pre") || math.IsNaN(s.Score) {
			continue
		}
		b, ok := Binary(s.Response)
		if !ok {
			continue
		}
		rep.NPre++
		rep.ResponseCounts[strings.ToUpper(strings.TrimSpace(s.Response))]++
		allX = append(allX, s.Score)
		allY = append(allY, b)
		high := 1
		if s.Score > med {
			high = 0
		}
		col := 1
		if b == 1 {
			resp = append(resp, s.Score)
			col = 0
		} else {
			non = append(non, s.Score)
		}
		rep.MedianSplit[high][col]++
		k := tertileOf(s.Score)
		tert[k] = append(tert[k], s.Score)
		rep.Tertiles[k].N++
		if b == 1 {
			rep.Tertiles[k].Responders++
		}
		if o, ok := Ordinal(s.Response); ok {
			ordX = append(ordX, s.Score)
			ordY = append(ordY, o)
		}
	}
	rep.Responders, rep.NonResponders = len(resp), len(non)
	rep.MeanResponders, rep.MeanNonResponders = mean(resp), mean(non)
	for i := range rep.Tertiles {
		if rep.Tertiles[i].N > 0 {
			rep.Tertiles[i].Rate = null.FloatFrom(float64(rep.Tertiles[i].Responders) / float64(rep.Tertiles[i].N))
		}
	}
	if rep.NPre == 0 {
		rep.Warnings = append(rep.Warnings, "no pre-treatment samples with a CR/PR/SD/PD response")
		return rep
	}

	if u, p, ok := MannWhitney(resp, non); ok {
		rep.MannWhitneyU, rep.MannWhitneyP = null.FloatFrom(u), null.FloatFrom(p)
	} else {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("Mann-Whitney skipped (%d responders, %d non-responders)", len(resp), len(non)))
	}
	if _, _, or, ok := Logistic(allX, allY); ok {
		rep.LogisticOR = nullable(or, ok)
	}
	rho, p, ok := correlate.Spearman(ordX, ordY)
	rep.SpearmanN = len(ordX)
	rep.SpearmanRECIST, rep.SpearmanRECISTP = nullable(rho, ok), nullable(p, ok)
	if _, kp, ok := KruskalWallis(tert...); ok {
		rep.KruskalTertile = null.FloatFrom(kp)
	}
	ms := rep.MedianSplit
	rep.FisherP = null.FloatFrom(FisherExact(ms[0][0], ms[0][1], ms[1][0], ms[1][1]))

	rep.Paired = pairedShift(samples)
	return rep
}

// pairedShift averages pre and on scores per response group over patients sampled at both visits.
func pairedShift(samples []Sample) []PairedShift {
	type visits struct{ pre, on bool }
	byPatient := map[string]*visits{}
	for _, s := range samples {
		if s.Patient == "" || math.IsNaN(s.Score) {
			continue
		}
		if _, ok := Binary(s.Response); !ok {
			continue
		}
		v := byPatient[s.Patient]
		if v == nil {
			v = &visits{}
			byPatient[s.Patient] = v
		}
		v.pre = v.pre || isVisit(s.Visit, "Pre")
		v.on = v.on || isVisit(s.Visit, "On")
	}
	var out []PairedShift
	for _, g := range []struct {
		name string
		val  float64
	}{{"Responders (CR/PR)", 1}, {"Non-responders (SD/PD)", 0}} {
		var pre, on []float64
		for _, s := range samples {
			v := byPatient[s.Patient]
			if v == nil || !v.pre || !v.on || math.IsNaN(s.Score) {
				continue
			}
			if b, ok := Binary(s.Response); !ok || b != g.val {
				continue
			}
			switch {
			case isVisit(s.Visit, "Pre"):
				pre = append(pre, s.Score)
			case isVisit(s.Visit, "On"):
				on = append(on, s.Score)
			}
		}
		if len(pre) == 0 || len(on) == 0 {
			continue
		}
		out = append(out, PairedShift{Group: g.name, Pairs: len(pre), PreMean: mean(pre), OnMean: mean(on)})
	}
	return out
}
