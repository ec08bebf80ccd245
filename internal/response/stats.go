package response

import (
	"math"
	"sort"

	"github.com/KaramelBytes/tgjs-cli/internal/normalize"
	fet "github.com/glycerine/golang-fisher-exact"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// MannWhitney is a two-sided Mann-Whitney U test using the normal approximation
// with tie and continuity correction. U is reported for sample a.
func MannWhitney(a, b []float64) (u, p float64, ok bool) {
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 == 0 || n2 == 0 {
		return math.NaN(), 1, false
	}
	all := append(append([]float64(nil), a...), b...)
	ranks := normalize.AverageRanks(all)
	var r1 float64
	for i := range a {
		r1 += ranks[i]
	}
	u = r1 - n1*(n1+1)/2
	n := n1 + n2
	mu := n1 * n2 / 2
	sigma := math.Sqrt(n1 * n2 / 12 * ((n + 1) - tieTerm(all)/(n*(n-1))))
	if sigma == 0 || math.IsNaN(sigma) {
		return u, 1, false
	}
	z := (math.Abs(u-mu) - 0.5) / sigma
	if z < 0 {
		z = 0
	}
	p = 2 * distuv.UnitNormal.Survival(z)
	return u, math.Min(p, 1), true
}

// KruskalWallis tests whether groups share a distribution, with tie correction and
// a chi-squared reference on k-1 degrees of freedom. Empty groups are ignored.
func KruskalWallis(groups ...[]float64) (h, p float64, ok bool) {
	var all []float64
	var sizes []int
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		all = append(all, g...)
		sizes = append(sizes, len(g))
	}
	if len(sizes) < 2 {
		return math.NaN(), 1, false
	}
	ranks := normalize.AverageRanks(all)
	n := float64(len(all))
	off := 0
	var sum float64
	for _, s := range sizes {
		var r float64
		for _, v := range ranks[off : off+s] {
			r += v
		}
		sum += r * r / float64(s)
		off += s
	}
	h = 12/(n*(n+1))*sum - 3*(n+1)
	corr := 1 - tieTerm(all)/(n*n*n-n)
	if corr <= 0 {
		return math.NaN(), 1, false
	}
	h /= corr
	chi := distuv.ChiSquared{K: float64(len(sizes) - 1)}
	return h, chi.Survival(h), true
}

// tieTerm is Σ(t³ - t) over groups of tied values.
func tieTerm(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	var total float64
	for i := 0; i < len(s); {
		j := i + 1
		for j < len(s) && s[j] == s[i] {
			j++
		}
		t := float64(j - i)
		total += t*t*t - t
		i = j
	}
	return total
}

// Logistic fits P(y=1) = 1/(1+exp(-(b0+b1*x))) by maximum likelihood with Nelder-Mead
// from (0, 0). The odds ratio per unit x is exp(b1).
func Logistic(x, y []float64) (b0, b1, oddsRatio float64, ok bool) {
	if len(x) != len(y) || len(x) < 3 {
		return math.NaN(), math.NaN(), math.NaN(), false
	}
	nll := func(params []float64) float64 {
		var s float64
		for i := range x {
			pr := 1 / (1 + math.Exp(-(params[0] + params[1]*x[i])))
			pr = math.Min(math.Max(pr, 1e-10), 1-1e-10)
			s += y[i]*math.Log(pr) + (1-y[i])*math.Log(1-pr)
		}
		return -s
	}
	res, err := optimize.Minimize(optimize.Problem{Func: nll}, []float64{0, 0}, nil, &optimize.NelderMead{})
	if err != nil || res == nil {
		return math.NaN(), math.NaN(), math.NaN(), false
	}
	b0, b1 = res.X[0], res.X[1]
	return b0, b1, math.Exp(b1), true
}

// FisherExact returns the two-sided p-value of a 2x2 table [[a b] [c d]].
func FisherExact(a, b, c, d int) float64 {
	_, _, _, twop := fet.FisherExactTest(a, b, c, d)
	return twop
}

// quantile interpolates linearly between order statistics of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
