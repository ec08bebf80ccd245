// Package normalize converts per-gene expression vectors to comparable scales and
// blends them into a weighted composite score. NaN marks a missing value throughout.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mode selects the normalization applied to each gene vector.
type Mode string

const (
	ZScore Mode = "zscore"
	MinMax Mode = "minmax"
	Rank   Mode = "rank"
)

// ParseMode accepts the configuration spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "zscore", "z":
		return ZScore, nil
	case "minmax":
		return MinMax, nil
	case "rank":
		return Rank, nil
	}
	return "", fmt.Errorf("unknown normalization %q (want zscore, minmax or rank)", s)
}

// Degenerate reports a gene whose input had zero variance or zero range.
type Degenerate struct {
	Gene string `json:"gene"`
	Mode Mode   `json:"mode"`
}

func (d Degenerate) String() string {
	switch d.Mode {
	case MinMax:
		return fmt.Sprintf("%s: zero range, min-max output left missing", d.Gene)
	default:
		return fmt.Sprintf("%s: zero variance, z-score output set to 0", d.Gene)
	}
}

// Normalize returns a vector of the same length and order as x. Missing inputs stay
// missing. degenerate is true when the input has no spread (z-score: all zeros;
// min-max: all missing).
func Normalize(x []float64, mode Mode) (out []float64, degenerate bool) {
	switch mode {
	case ZScore:
		return zscore(x)
	case MinMax:
		return minmax(x)
	case Rank:
		return rankScaled(x), false
	}
	panic(fmt.Sprintf("normalize: unknown mode %q", mode))
}

func present(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func nanLike(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func zscore(x []float64) ([]float64, bool) {
	vals := present(x)
	out := nanLike(x)
	var mean, sd float64
	if len(vals) >= 2 {
		mean, sd = stat.MeanStdDev(vals, nil)
	}
	if sd == 0 || math.IsNaN(sd) {
		for i, v := range x {
			if !math.IsNaN(v) {
				out[i] = 0
			}
		}
		return out, true
	}
	for i, v := range x {
		if !math.IsNaN(v) {
			out[i] = (v - mean) / sd
		}
	}
	return out, false
}

func minmax(x []float64) ([]float64, bool) {
	vals := present(x)
	out := nanLike(x)
	if len(vals) == 0 {
		return out, true
	}
	lo, hi := floats.Min(vals), floats.Max(vals)
	if hi == lo {
		return out, true
	}
	for i, v := range x {
		if !math.IsNaN(v) {
			out[i] = (v - lo) / (hi - lo)
		}
	}
	return out, false
}

// rankScaled divides average ranks by the number of non-missing values, giving (0, 1].
func rankScaled(x []float64) []float64 {
	r := AverageRanks(x)
	n := float64(len(present(x)))
	for i := range r {
		if !math.IsNaN(r[i]) {
			r[i] /= n
		}
	}
	return r
}

// AverageRanks assigns 1-based ranks to non-missing values; ties share the mean of
// their positions. Missing values get NaN. The result is deterministic.
func AverageRanks(x []float64) []float64 {
	idx := make([]int, 0, len(x))
	for i, v := range x {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	out := nanLike(x)
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && x[idx[j]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			out[idx[k]] = avg
		}
		i = j
	}
	return out
}

// Composite returns Σ w_i·v_i per sample. A sample missing any component is missing.
func Composite(vectors [][]float64, weights []float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("composite: no component vectors")
	}
	if len(vectors) != len(weights) {
		return nil, fmt.Errorf("composite: %d vectors but %d weights", len(vectors), len(weights))
	}
	n := len(vectors[0])
	for k, v := range vectors {
		if len(v) != n {
			return nil, fmt.Errorf("composite: vector %d has length %d, want %d", k, len(v), n)
		}
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for k, v := range vectors {
			if math.IsNaN(v[i]) {
				sum = math.NaN()
				break
			}
			sum += weights[k] * v[i]
		}
		out[i] = sum
	}
	return out, nil
}
