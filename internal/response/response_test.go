package response

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRECISTMaps(t *testing.T) {
	for in, want := range map[string]float64{"CR": 1, "pr": 1, "PRCR": 1, "SD": 0, " PD ": 0} {
		got, ok := Binary(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := Binary("NE")
	assert.False(t, ok)

	o, ok := Ordinal("PRCR")
	require.True(t, ok)
	assert.Equal(t, 3.5, o)
	_, ok = Ordinal("")
	assert.False(t, ok)
}

func TestMannWhitney(t *testing.T) {
	u, p, ok := MannWhitney([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.True(t, ok)
	assert.Equal(t, 0.0, u)
	assert.InDelta(t, 0.0809, p, 1e-3)

	_, p, ok = MannWhitney([]float64{2, 2}, []float64{2, 2})
	assert.False(t, ok)
	assert.Equal(t, 1.0, p)

	_, _, ok = MannWhitney(nil, []float64{1})
	assert.False(t, ok)
}

func TestKruskalWallis(t *testing.T) {
	h, p, ok := KruskalWallis([]float64{1, 2, 3}, []float64{4, 5, 6}, []float64{7, 8, 9}, nil)
	require.True(t, ok)
	assert.InDelta(t, 7.2, h, 1e-9)
	assert.InDelta(t, math.Exp(-3.6), p, 1e-9)

	_, _, ok = KruskalWallis([]float64{1, 2})
	assert.False(t, ok)
}

func TestLogistic(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	y := []float64{0, 0, 1, 0, 1, 0, 1, 1}
	_, b1, or, ok := Logistic(x, y)
	require.True(t, ok)
	assert.Greater(t, b1, 0.0)
	assert.InDelta(t, math.Exp(b1), or, 1e-12)

	_, _, _, ok = Logistic([]float64{1}, []float64{1})
	assert.False(t, ok)
}

func TestFisherExact(t *testing.T) {
	assert.InDelta(t, 0.1, FisherExact(3, 0, 0, 3), 1e-9)
	assert.InDelta(t, 1.0, FisherExact(2, 2, 2, 2), 1e-9)
}

func TestQuantile(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, quantile(s, 0))
	assert.Equal(t, 2.5, quantile(s, 0.5))
	assert.Equal(t, 4.0, quantile(s, 1))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}

func TestPatientFromTitle(t *testing.T) {
	assert.Equal(t, "Pt12", PatientFromTitle("Pt12_On_AD174047-6"))
	assert.Equal(t, "", PatientFromTitle("sample 12"))
}

func cohort() []Sample {
	resp := []string{"PD", "SD", "PD", "SD", "PR", "SD", "PR", "SD", "PR", "CR", "PRCR", "CR"}
	var out []Sample
	for i, r := range resp {
		out = append(out, Sample{ID: fmt.Sprintf("pre%d", i+1), Patient: fmt.Sprintf("Pt%d", i+1), Visit: "Pre", Response: r, Score: float64(i + 1)})
	}
	out = append(out,
		Sample{ID: "on1", Patient: "Pt1", Visit: "On", Response: "PD", Score: 2.5},
		Sample{ID: "on12", Patient: "Pt12", Visit: "On", Response: "CR", Score: 20},
		Sample{ID: "ne", Patient: "Pt13", Visit: "Pre", Response: "NE", Score: 13},
		Sample{ID: "noscore", Patient: "Pt14", Visit: "Pre", Response: "CR", Score: math.NaN()},
	)
	return out
}

func TestAnalyze(t *testing.T) {
	rep := Analyze(cohort())
	assert.Equal(t, 12, rep.NPre)
	assert.Equal(t, map[string]int{"PD": 2, "SD": 4, "PR": 3, "CR": 2, "PRCR": 1}, rep.ResponseCounts)
	assert.Equal(t, 6, rep.Responders)
	assert.Equal(t, 6, rep.NonResponders)
	assert.InDelta(t, 9.0, rep.MeanResponders.Float64, 1e-12)
	assert.InDelta(t, 4.0, rep.MeanNonResponders.Float64, 1e-12)

	assert.InDelta(t, 14.0/3.0, rep.TertileCuts[0], 1e-9)
	assert.InDelta(t, 28.0/3.0, rep.TertileCuts[1], 1e-9)
	assert.Equal(t, 4, rep.Tertiles[0].N)
	assert.Equal(t, 5, rep.Tertiles[1].N)
	assert.Equal(t, 3, rep.Tertiles[2].N)
	assert.Equal(t, 1.0, rep.Tertiles[2].Rate.Float64)
	assert.Equal(t, 0.0, rep.Tertiles[0].Rate.Float64)
	assert.True(t, rep.KruskalTertile.Valid)

	assert.Equal(t, [2][2]int{{4, 1}, {2, 5}}, rep.MedianSplit)
	assert.InDelta(t, 192.0/792.0, rep.FisherP.Float64, 1e-6)

	assert.Equal(t, 33.0, rep.MannWhitneyU.Float64)
	assert.Less(t, rep.MannWhitneyP.Float64, 0.05)
	assert.Greater(t, rep.LogisticOR.Float64, 1.0)
	assert.Greater(t, rep.SpearmanRECIST.Float64, 0.5)
	assert.Equal(t, 12, rep.SpearmanN)

	require.Len(t, rep.Paired, 2)
	assert.Equal(t, "Responders (CR/PR)", rep.Paired[0].Group)
	assert.Equal(t, 1, rep.Paired[0].Pairs)
	assert.Equal(t, 12.0, rep.Paired[0].PreMean.Float64)
	assert.Equal(t, 20.0, rep.Paired[0].OnMean.Float64)
	assert.Equal(t, 2.5, rep.Paired[1].OnMean.Float64)
}

func TestAnalyzeWithoutPreSamples(t *testing.T) {
	rep := Analyze([]Sample{{ID: "a", Visit: "On", Response: "CR", Score: 1}})
	assert.Equal(t, 0, rep.NPre)
	require.NotEmpty(t, rep.Warnings)
	assert.False(t, rep.MannWhitneyP.Valid)

	rep = Analyze(nil)
	assert.Contains(t, rep.Warnings, "no scored samples")
}
