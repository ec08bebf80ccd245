package correlate

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Correction is a multiple-comparison adjustment applied within one family of tests.
type Correction string

const (
	Bonferroni Correction = "bonferroni"
	BH         Correction = "bh"
	None       Correction = "none"
)

// ParseCorrection accepts the configuration spelling of a correction method.
func ParseCorrection(s string) (Correction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bonferroni", "bonf", "":
		return Bonferroni, nil
	case "bh", "fdr", "benjamini-hochberg":
		return BH, nil
	case "none":
		return None, nil
	}
	return "", fmt.Errorf("unknown correction %q (want bonferroni, bh or none)", s)
}

// Adjust returns corrected p-values for one family. Every method keeps
// p <= adjusted <= 1.
func Adjust(p []float64, method Correction) []float64 {
	m := float64(len(p))
	out := make([]float64, len(p))
	switch method {
	case Bonferroni:
		for i, v := range p {
			out[i] = math.Min(v*m, 1)
		}
	case BH:
		idx := make([]int, len(p))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })
		running := 1.0
		for k := len(idx) - 1; k >= 0; k-- {
			i := idx[k]
			v := p[i] * m / float64(k+1)
			if v < running {
				running = v
			}
			out[i] = math.Min(running, 1)
		}
	default:
		copy(out, p)
	}
	for i := range out {
		if out[i] < p[i] {
			out[i] = p[i]
		}
	}
	return out
}
