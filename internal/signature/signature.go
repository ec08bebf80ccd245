// Package signature derives mean z-score expression signatures that can be
// correlated against the composite score like any other marker.
package signature

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MinObserved is the number of non-missing values a gene needs, exclusive, to contribute.
const MinObserved = 5

// Set is a gene set averaged into one signature.
type Set struct {
	Name     string
	Genes    []string
	MinGenes int  // available genes required; 0 means 1
	Hidden   bool // computed for differences only, not emitted
}

// Difference emits Plus minus Minus when both signatures exist.
type Difference struct {
	Name        string
	Plus, Minus string
}

// DefaultSets are the immune and STING signatures.
var DefaultSets = []Set{
	{Name: "immune_proxy", Genes: []string{"CD8A", "IFNG", "CXCL10", "GZMB", "PRF1"}},
	{Name: "exhaustion_score", Genes: []string{"HAVCR2", "LAG3", "PDCD1", "TIGIT"}},
	{Name: "effector", Genes: []string{"GZMB", "PRF1", "IFNG"}, Hidden: true},
	{Name: "acute_sting", Genes: []string{"IFNB1", "CXCL10", "CCL5"}, MinGenes: 2},
	{Name: "chronic_sting", Genes: []string{"IDO1", "TGFB1", "IL6", "ARG1", "NOS2"}, MinGenes: 2},
}

// DefaultDifferences pair effector with exhaustion and acute with chronic STING.
var DefaultDifferences = []Difference{
	{Name: "ee_ratio", Plus: "effector", Minus: "exhaustion_score"},
	{Name: "sting_ratio", Plus: "acute_sting", Minus: "chronic_sting"},
}

// Genes returns the distinct genes referenced by sets, in first-seen order.
func Genes(sets []Set) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range sets {
		for _, g := range s.Genes {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

// Result holds computed signatures keyed by name, with emission order.
type Result struct {
	Names  []string
	Values map[string][]float64
	// Used lists the genes that contributed to each signature.
	Used map[string][]string
}

// Compute evaluates sets and differences over gene vectors of equal length n.
// Genes absent from the map, or with too few observations or no spread, are skipped.
// Per sample, a signature is the mean of the available gene z-scores (NaN if none).
func Compute(n int, genes map[string][]float64, sets []Set, diffs []Difference) Result {
	res := Result{Values: map[string][]float64{}, Used: map[string][]string{}}
	z := map[string][]float64{}
	all := map[string][]float64{}
	for _, s := range sets {
		var cols [][]float64
		var used []string
		for _, g := range s.Genes {
			zv, ok := z[g]
			if !ok {
				zv = zscore(genes[g], n)
				z[g] = zv
			}
			if zv != nil {
				cols = append(cols, zv)
				used = append(used, g)
			}
		}
		need := s.MinGenes
		if need < 1 {
			need = 1
		}
		if len(cols) < need {
			continue
		}
		v := rowMeans(cols, n)
		all[s.Name] = v
		if !s.Hidden {
			res.Names = append(res.Names, s.Name)
			res.Values[s.Name] = v
			res.Used[s.Name] = used
		}
	}
	for _, d := range diffs {
		p, ok1 := all[d.Plus]
		m, ok2 := all[d.Minus]
		if !ok1 || !ok2 {
			continue
		}
		v := make([]float64, n)
		for i := range v {
			v[i] = p[i] - m[i]
		}
		res.Names = append(res.Names, d.Name)
		res.Values[d.Name] = v
	}
	return res
}

func zscore(x []float64, n int) []float64 {
	if len(x) != n {
		return nil
	}
	var vals []float64
	for _, v := range x {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) <= MinObserved {
		return nil
	}
	mean, sd := stat.MeanStdDev(vals, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}
	out := make([]float64, n)
	for i, v := range x {
		out[i] = (v - mean) / sd
	}
	return out
}

func rowMeans(cols [][]float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		var k int
		for _, c := range cols {
			if !math.IsNaN(c[i]) {
				sum += c[i]
				k++
			}
		}
		if k == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(k)
	}
	return out
}
