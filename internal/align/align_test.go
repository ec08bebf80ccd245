package align

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func riazCandidates() []Candidate {
	return []Candidate{
		{ID: "GSM2698295", Aliases: []string{"Pt1_Pre_AD101148-6"}},
		{ID: "GSM2698296", Aliases: []string{"Pt1_On_AD174047-6"}},
		{ID: "GSM2698297", Aliases: []string{"Pt2_Pre_AD101148-7"}},
		{ID: "GSM2698298", Aliases: []string{"Pt2_On_AD174047-7"}},
	}
}

func TestExactByTitle(t *testing.T) {
	labels := []string{"Pt2_Pre_AD101148-7", "Pt1_Pre_AD101148-6", "Pt9_Pre_X"}
	m, err := Exact(labels, riazCandidates())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Matched)
	assert.InDelta(t, 2.0/3.0, m.Coverage(), 1e-12)
	assert.Equal(t, "GSM2698297", m.Mapping["Pt2_Pre_AD101148-7"])
}

func TestExactAmbiguousAlias(t *testing.T) {
	cands := []Candidate{{ID: "A", Aliases: []string{"shared"}}, {ID: "B", Aliases: []string{"shared"}}}
	_, err := Exact([]string{"shared"}, cands)
	var ae *AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, ReasonAmbiguous, ae.Reason)
}

func TestExactNonInjective(t *testing.T) {
	cands := []Candidate{{ID: "A", Aliases: []string{"title-a"}}}
	_, err := Exact([]string{"A", "title-a"}, cands)
	var ae *AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, ReasonAmbiguous, ae.Reason)
	assert.Contains(t, ae.Detail, `map to sample "A"`)
}

func TestSubstringLongestWins(t *testing.T) {
	cands := []Candidate{{ID: "TCGA-A6-2671"}, {ID: "TCGA-A6-2671-01"}, {ID: "TCGA-AA-3489"}}
	labels := []string{"TCGA-A6-2671-01A-01R-1410-07", "TCGA-AA-3489-01A-11R-1410-07", "unknown"}
	m, err := Substring(labels, cands, nil)
	require.NoError(t, err)
	assert.Equal(t, "TCGA-A6-2671-01", m.Mapping[labels[0]])
	assert.Equal(t, "TCGA-AA-3489", m.Mapping[labels[1]])
	assert.Equal(t, 2, m.Matched)
}

func TestSubstringAccumulatesOnPrior(t *testing.T) {
	cands := []Candidate{{ID: "S1"}, {ID: "S2"}}
	m, err := Substring([]string{"x", "batch_S2"}, cands, map[string]string{"x": "S1"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Matched)
}

func TestSubstringTieIsAmbiguous(t *testing.T) {
	cands := []Candidate{{ID: "S1"}, {ID: "S2"}}
	_, err := Substring([]string{"S1_S2"}, cands, nil)
	var ae *AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, ReasonAmbiguous, ae.Reason)
}

func TestResolveExact(t *testing.T) {
	im, res, err := Resolve([]string{"GSM2698295", "GSM2698296", "GSM2698297"}, riazCandidates(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, res.Strategy)
	assert.Equal(t, 3, im.Len())
	assert.Equal(t, 1.0, res.Coverage)
	assert.Len(t, res.Attempts, 1)
	id, ok := im.Lookup("GSM2698296")
	require.True(t, ok)
	assert.Equal(t, "GSM2698296", id)
}

func TestResolveFallsBackToSubstring(t *testing.T) {
	labels := []string{"FPKM_GSM2698295", "FPKM_GSM2698296", "FPKM_GSM2698297", "FPKM_other"}
	im, res, err := Resolve(labels, riazCandidates(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StrategySubstring, res.Strategy)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, []string{"FPKM_GSM2698295", "FPKM_GSM2698296", "FPKM_GSM2698297"}, im.Labels())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "1 of 4 source labels unmatched")
}

// Columns share nothing textual with the sample table but counts agree.
func TestResolvePositionalFallback(t *testing.T) {
	labels := []string{"V1", "V2", "V3", "V4"}
	im, res, err := Resolve(labels, riazCandidates(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StrategyPositional, res.Strategy)
	assert.Equal(t, 4, im.Len())
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "positional fallback used")
	id, _ := im.Lookup("V3")
	assert.Equal(t, "GSM2698297", id)
	assert.Len(t, res.Attempts, 3)
}

func TestResolvePositionalContradictsNameMatch(t *testing.T) {
	cands := []Candidate{{ID: "S1"}, {ID: "S2"}, {ID: "S3"}, {ID: "S4"}, {ID: "S5"}}
	// S2 matches exactly but sits where S1 would be positionally
	im, _, err := Resolve([]string{"S2", "x_a", "x_b", "x_c", "x_d"}, cands, Options{})
	assert.Nil(t, im)
	var ae *AlignmentError
	require.True(t, errors.As(err, &ae), "got %v", err)
	assert.Equal(t, ReasonAmbiguous, ae.Reason)
	assert.Equal(t, StrategyPositional, ae.Strategy)
	assert.Equal(t, 1, ae.Matched)
	assert.Contains(t, ae.Detail, `"S2"`)
}

func TestResolvePositionalAgreesWithNameMatch(t *testing.T) {
	cands := []Candidate{{ID: "S1"}, {ID: "S2"}, {ID: "S3"}, {ID: "S4"}, {ID: "S5"}}
	im, res, err := Resolve([]string{"S1", "x_b", "x_c", "x_d", "x_e"}, cands, Options{})
	require.NoError(t, err)
	assert.Equal(t, StrategyPositional, res.Strategy)
	id, ok := im.Lookup("S1")
	require.True(t, ok)
	assert.Equal(t, "S1", id)
	id, _ = im.Lookup("x_c")
	assert.Equal(t, "S3", id)
}

func TestResolvePositionalCountMismatch(t *testing.T) {
	for _, labels := range [][]string{{"V1", "V2", "V3"}, {"V1", "V2", "V3", "V4", "V5"}} {
		_, _, err := Resolve(labels, riazCandidates(), Options{})
		var ae *AlignmentError
		require.True(t, errors.As(err, &ae), "labels %v", labels)
		assert.Equal(t, ReasonCountMismatch, ae.Reason)
		assert.Equal(t, StrategyPositional, ae.Strategy)
	}
}

func TestResolveEmptyInputs(t *testing.T) {
	_, _, err := Resolve(nil, riazCandidates(), Options{})
	var ae *AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, ReasonNoCoverage, ae.Reason)
}

func TestResolveDuplicateLabels(t *testing.T) {
	_, _, err := Resolve([]string{"GSM2698295", "GSM2698295"}, riazCandidates(), Options{})
	var ae *AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, ReasonAmbiguous, ae.Reason)
}

func TestResolveCustomThreshold(t *testing.T) {
	// one exact match out of four is enough when the threshold is 0.25
	labels := []string{"GSM2698295", "a", "b", "c"}
	_, res, err := Resolve(labels, riazCandidates(), Options{Threshold: 0.25})
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, res.Strategy)
	assert.Equal(t, 1, res.Matched)
}
