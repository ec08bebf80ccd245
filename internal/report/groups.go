package report

import (
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/correlate"
	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"gopkg.in/guregu/null.v3"
)

// iciResponseRates are approximate objective response rates to immune checkpoint
// inhibitors by TCGA cancer type code.
var iciResponseRates = map[string]float64{
	"SKCM": 0.40,
	"LUAD": 0.20,
	"LUSC": 0.20,
	"BLCA": 0.21,
	"HNSC": 0.16,
	"KIRC": 0.25,
	"STAD": 0.15,
	"LIHC": 0.17,
	"COAD": 0.05,
	"READ": 0.05,
	"PAAD": 0.03,
	"GBM":  0.08,
	"LGG":  0.05,
	"BRCA": 0.12,
	"OV":   0.08,
	"PRAD": 0.05,
	"UCEC": 0.15,
	"LAML": 0.10,
}

// ICIRate returns the checkpoint inhibitor response rate for a cancer type code.
// A "TCGA-" prefix is ignored.
func ICIRate(code string) (float64, bool) {
	c := strings.ToUpper(strings.TrimSpace(code))
	c = strings.TrimPrefix(c, "TCGA-")
	r, ok := iciResponseRates[c]
	return r, ok
}

// GroupSummary describes the composite score within one covariate value.
type GroupSummary struct {
	Group     string                `json:"group"`
	N         int                   `json:"n"`
	Mean      null.Float            `json:"mean"`
	Median    null.Float            `json:"median"`
	SD        null.Float            `json:"sd"`
	GeneMeans map[string]null.Float `json:"gene_means,omitempty"`
	ICIRate   null.Float            `json:"ici_response_rate"`
}

// GroupSummaries groups scored samples by the named covariate. geneValues holds the raw
// expression of each score gene aligned with samples. Groups are sorted by mean score,
// highest first; samples with a missing covariate or score are skipped.
func GroupSummaries(samples []*dataset.SampleRecord, by string, geneValues map[string][]float64, genes []string) []GroupSummary {
	type acc struct {
		scores []float64
		genes  map[string][]float64
	}
	groups := map[string]*acc{}
	var order []string
	for i, r := range samples {
		key := strings.TrimSpace(r.Covariate(by))
		if key == "" || !r.Score.Valid {
			continue
		}
		a := groups[key]
		if a == nil {
			a = &acc{genes: map[string][]float64{}}
			groups[key] = a
			order = append(order, key)
		}
		a.scores = append(a.scores, r.Score.Float64)
		for _, g := range genes {
			vals := geneValues[g]
			if i < len(vals) && !math.IsNaN(vals[i]) {
				a.genes[g] = append(a.genes[g], vals[i])
			}
		}
	}
	out := make([]GroupSummary, 0, len(order))
	for _, key := range order {
		a := groups[key]
		gs := GroupSummary{Group: key, N: len(a.scores), Median: median(a.scores)}
		gs.Mean, gs.SD = meanSD(a.scores)
		if len(genes) > 0 {
			gs.GeneMeans = map[string]null.Float{}
			for _, g := range genes {
				m, _ := meanSD(a.genes[g])
				gs.GeneMeans[g] = m
			}
		}
		if rate, ok := ICIRate(key); ok {
			gs.ICIRate = null.FloatFrom(rate)
		}
		out = append(out, gs)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mean.Float64 > out[j].Mean.Float64 })
	return out
}

// MinICIGroups is the number of groups with a known response rate needed for the ICI check.
const MinICIGroups = 5

// ICICheck tests whether higher group mean scores go with lower checkpoint response rates.
type ICICheck struct {
	Groups  int        `json:"groups"`
	Rho     null.Float `json:"rho"`
	P       float64    `json:"p"`
	Verdict string     `json:"verdict"`
}

// Verdicts reported by ICICheck.
const (
	Confirmed    = "CONFIRMED"
	NotConfirmed = "NOT CONFIRMED"
)

// CheckICI correlates group mean score with ICI response rate. It returns nil when
// fewer than MinICIGroups groups carry a rate.
func CheckICI(groups []GroupSummary) *ICICheck {
	var means, rates []float64
	for _, g := range groups {
		if !g.ICIRate.Valid || !g.Mean.Valid {
			continue
		}
		means = append(means, g.Mean.Float64)
		rates = append(rates, g.ICIRate.Float64)
	}
	if len(means) < MinICIGroups {
		return nil
	}
	c := &ICICheck{Groups: len(means), Verdict: NotConfirmed}
	rho, p, ok := correlate.Spearman(means, rates)
	if !ok {
		c.P = 1
		return c
	}
	c.Rho, c.P = null.FloatFrom(rho), p
	if rho < -0.3 && p < 0.05 {
		c.Verdict = Confirmed
	}
	return c
}
