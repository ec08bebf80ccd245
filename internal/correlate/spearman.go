// Package correlate runs batches of Spearman rank correlations between the
// composite score and marker variables, per stratum, with multiple-comparison
// correction.
package correlate

import (
	"math"

	"github.com/KaramelBytes/tgjs-cli/internal/normalize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Spearman returns the rank correlation of paired complete observations and its
// two-sided p-value from the t approximation with n-2 degrees of freedom.
// ok is false when either variable has constant ranks or n < 3; rho is then NaN and p is 1.
func Spearman(x, y []float64) (rho, p float64, ok bool) {
	n := len(x)
	if n != len(y) || n < 3 {
		return math.NaN(), 1, false
	}
	rx := normalize.AverageRanks(x)
	ry := normalize.AverageRanks(y)
	if constant(rx) || constant(ry) {
		return math.NaN(), 1, false
	}
	rho = stat.Correlation(rx, ry, nil)
	if math.IsNaN(rho) {
		return math.NaN(), 1, false
	}
	// rounding can leave a perfect monotone relation just short of ±1
	if rho > 1-1e-12 {
		rho = 1
	} else if rho < -1+1e-12 {
		rho = -1
	}
	return rho, spearmanP(rho, n), true
}

func spearmanP(rho float64, n int) float64 {
	if math.Abs(rho) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := rho * math.Sqrt(df/(1-rho*rho))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}
	return p
}

func constant(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] != v[0] {
			return false
		}
	}
	return true
}

// Complete returns the pairs where both x and y are present.
func Complete(x, y []float64) (xs, ys []float64) {
	for i := range x {
		if i >= len(y) || math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// Fit is an ordinary least squares line y = Intercept + Slope*x.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
}

// Trend fits y on x over complete pairs. ok is false with fewer than 3 pairs or constant x.
func Trend(x, y []float64) (Fit, bool) {
	xs, ys := Complete(x, y)
	if len(xs) < 3 || constant(xs) {
		return Fit{}, false
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(r2) {
		r2 = 0
	}
	return Fit{Slope: beta, Intercept: alpha, R2: r2}, true
}
