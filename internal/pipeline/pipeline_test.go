package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/tgjs-cli/internal/align"
	"github.com/KaramelBytes/tgjs-cli/internal/config"
	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/genes"
	"github.com/KaramelBytes/tgjs-cli/internal/normalize"
	"github.com/KaramelBytes/tgjs-cli/internal/strata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clinical(t *testing.T, csv string) *dataset.ClinicalTable {
	t.Helper()
	tbl, err := dataset.ParseDelimited("clinical.csv", strings.NewReader(csv), ',')
	require.NoError(t, err)
	ct, err := dataset.ClinicalFromTable(tbl, dataset.DefaultColumnMap())
	require.NoError(t, err)
	return ct
}

func expression(t *testing.T, tsv string) *dataset.ExpressionMatrix {
	t.Helper()
	tbl, err := dataset.ParseDelimited("expr.tsv", strings.NewReader(tsv), '\t')
	require.NoError(t, err)
	m, err := dataset.ExpressionFromTable(tbl)
	require.NoError(t, err)
	return m
}

func scenarioA(t *testing.T) Input {
	return Input{
		Name: "scenario-a",
		Clinical: clinical(t, "sample_id,title,msi_status,tp53_status\n"+
			"S1,tumour one,MSS,wildtype\n"+
			"S2,tumour two,MSS,wildtype\n"+
			"S3,tumour three,MSI-H,mutant\n"+
			"S4,tumour four,MSI-H,mutant\n"),
		Expression: expression(t, "gene\tS1\tS2\tS3\tS4\n"+
			"HK2\t1\t2\t3\t4\n"+
			"BCL2L1\t4\t3\t2\t1\n"+
			"TSPO\t2\t2\t2\t2\n"),
	}
}

func TestRunScenarioA(t *testing.T) {
	in := scenarioA(t)
	s := config.Default()
	s.Markers = []string{"CD8A"}
	res, err := Run(in, s, nil)
	require.NoError(t, err)

	assert.Equal(t, align.StrategyExact, res.Alignment.Strategy)
	assert.Equal(t, []normalize.Degenerate{{Gene: "TSPO", Mode: normalize.ZScore}}, res.Degenerate)

	sd := math.Sqrt(5.0 / 3.0)
	require.Len(t, res.Samples, 4)
	for i, r := range res.Samples {
		z := (float64(i+1) - 2.5) / sd
		require.True(t, r.Score.Valid)
		assert.InDelta(t, 0.4*z+0.3*(-z), r.Score.Float64, 1e-12, r.SampleID)
		if i > 0 {
			assert.Greater(t, r.Score.Float64, res.Samples[i-1].Score.Float64)
		}
	}

	assert.Equal(t, []string{"MSS_TP53wt", "MSIH_TP53mut"}, res.Strata)
	require.Len(t, res.Summary.Strata, 2)
	assert.Equal(t, 2, res.Summary.Strata[0].N)
	assert.Equal(t, 2, res.Summary.Strata[1].N)
	assert.Equal(t, 0, res.Summary.Unknown)

	require.Len(t, res.Results, 2)
	for _, r := range res.Results {
		assert.True(t, r.Insufficient)
		assert.False(t, r.Rho.Valid)
		assert.False(t, r.SignificantCorrected)
	}
	assert.Equal(t, []MarkerSource{{Marker: "CD8A", Source: SourceMissing}}, res.Markers)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "TSPO: zero variance")

	orig, _ := in.Clinical.Lookup("S1")
	assert.False(t, orig.Score.Valid, "input records stay untouched")
	assert.Empty(t, orig.Stratum)
	assert.Equal(t, []string{"HK2", "BCL2L1", "TSPO"}, res.ValueColumns)
	v, ok := res.Samples[3].Value("HK2")
	require.True(t, ok)
	assert.Equal(t, 4.0, v)
}

func TestRunRejectsBadWeightsBeforeReading(t *testing.T) {
	s := config.Default()
	s.ScoreGenes[2].Weight = 0.2
	_, err := Run(Input{Clinical: &dataset.ClinicalTable{}, Expression: &dataset.ExpressionMatrix{}}, s, nil)
	var ve *config.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "score_genes", ve.Field)
}

func TestRunUsesSuppliedStrata(t *testing.T) {
	in := scenarioA(t)
	table, err := strata.Preset("none")
	require.NoError(t, err)
	in.Strata = table
	s := config.Default()
	s.Strata = "msi_tp53"
	res, err := Run(in, s, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALL"}, res.Strata)
}

func TestRunCustomStrataMustBeLoaded(t *testing.T) {
	s := config.Default()
	s.CustomStrata = "strata.yaml"
	_, err := Run(scenarioA(t), s, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Input.Strata")
	var ve *config.ValidationError
	assert.False(t, errors.As(err, &ve), "the file must not be read")
}

func TestRunGeneResolutionFails(t *testing.T) {
	s := config.Default()
	s.ScoreGenes = []config.ScoreGene{{Symbol: "HK2", Weight: 0.5}, {Symbol: "NOTAGENE", Weight: 0.5}}
	_, err := Run(scenarioA(t), s, nil)
	var ge *genes.ResolutionError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, []string{"NOTAGENE"}, ge.Unresolved)
	assert.Equal(t, "HK2", ge.Resolved["HK2"])
}

func TestRunPositionalFallback(t *testing.T) {
	in := scenarioA(t)
	in.Expression = expression(t, "gene\tX_a\tX_b\tX_c\tX_d\n"+
		"HK2\t1\t2\t3\t4\nBCL2L1\t4\t3\t2\t1\nTSPO\t2\t2\t2\t2\n")
	s := config.Default()
	s.Markers = nil
	res, err := Run(in, s, nil)
	require.NoError(t, err)
	assert.Equal(t, align.StrategyPositional, res.Alignment.Strategy)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "positional fallback used")
	assert.Equal(t, "S1", res.Samples[0].SampleID)

	in.Expression = expression(t, "gene\tX_a\tX_b\tX_c\tX_d\tX_e\n"+
		"HK2\t1\t2\t3\t4\t5\nBCL2L1\t4\t3\t2\t1\t0\nTSPO\t2\t2\t2\t2\t2\n")
	_, err = Run(in, s, nil)
	var ae *align.AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, align.ReasonCountMismatch, ae.Reason)
}

// cohort builds 24 stratified samples plus one with unknown MSI status. Every score
// gene is an increasing function of HK2, so the composite ranks with HK2.
func cohort(t *testing.T) Input {
	var clin, expr strings.Builder
	clin.WriteString("sample_id,msi_status,tp53_status,cancer_type,purity,visit,response\n")
	var ids []string
	rows := map[string][]string{}
	for i := 1; i <= 25; i++ {
		id := fmt.Sprintf("S%02d", i)
		ids = append(ids, id)
		msi, cancer, resp := "MSS", "COAD", "PD"
		if i > 12 {
			msi, cancer, resp = "MSI-H", "SKCM", "CR"
		}
		if i == 25 {
			msi, resp = "", ""
		}
		clin.WriteString(fmt.Sprintf("%s,%s,wt,%s,0.5,Pre,%s\n", id, msi, cancer, resp))
		h := float64(i)
		rows["HK2"] = append(rows["HK2"], fmt.Sprint(h))
		rows["BCL2L1"] = append(rows["BCL2L1"], fmt.Sprint(2*h))
		rows["TSPO"] = append(rows["TSPO"], fmt.Sprint(h+5))
		rows["CD8A"] = append(rows["CD8A"], fmt.Sprint(h*h))
	}
	// expression columns in reverse order
	expr.WriteString("gene")
	for i := len(ids) - 1; i >= 0; i-- {
		expr.WriteString("\t" + ids[i])
	}
	expr.WriteString("\n")
	for _, g := range []string{"HK2", "BCL2L1", "TSPO", "CD8A"} {
		expr.WriteString(g)
		for i := len(ids) - 1; i >= 0; i-- {
			expr.WriteString("\t" + rows[g][i])
		}
		expr.WriteString("\n")
	}
	return Input{Name: "cohort", Clinical: clinical(t, clin.String()), Expression: expression(t, expr.String())}
}

func TestRunCohort(t *testing.T) {
	s := config.Default()
	s.Markers = []string{"CD8A", "immune_proxy", "purity", "NOPE", "CD8A"}
	s.GroupBy = "cancer_type"
	s.ResponseAnalysis = true
	res, err := Run(cohort(t), s, nil)
	require.NoError(t, err)

	require.Len(t, res.Samples, 25)
	assert.Equal(t, "S25", res.Samples[0].SampleID)
	assert.Equal(t, "unknown", res.Samples[0].Stratum)
	assert.Equal(t, 1, res.Summary.Unknown)
	assert.Equal(t, []string{"MSS_TP53wt", "MSIH_TP53wt"}, res.Strata)

	assert.Equal(t, []MarkerSource{
		{Marker: "CD8A", Source: SourceExpression, Key: "CD8A"},
		{Marker: "immune_proxy", Source: SourceSignature, Key: "CD8A"},
		{Marker: "purity", Source: SourceClinical, Key: "purity"},
		{Marker: "NOPE", Source: SourceMissing},
	}, res.Markers)

	require.Len(t, res.Results, 8)
	for _, r := range res.Results {
		switch r.Marker {
		case "CD8A", "immune_proxy":
			assert.Equal(t, 12, r.N)
			assert.Equal(t, 1.0, r.Rho.Float64)
			assert.True(t, r.SignificantCorrected)
		case "purity":
			assert.Equal(t, 12, r.N)
			assert.False(t, r.Rho.Valid)
			assert.Equal(t, 1.0, r.PCorrected)
		case "NOPE":
			assert.Equal(t, 0, r.N)
			assert.True(t, r.Insufficient)
		}
		assert.GreaterOrEqual(t, r.PCorrected, r.PRaw)
	}
	assert.Len(t, res.Summary.Significant, 4)

	require.Len(t, res.Cohort, 4)
	assert.Equal(t, CohortStratum, res.Cohort[0].Stratum)
	assert.Equal(t, 25, res.Cohort[0].N)
	require.NotNil(t, res.Cohort[0].Trend)
	assert.Greater(t, res.Cohort[0].Trend.Slope, 0.0)

	require.Len(t, res.Groups, 2)
	assert.Equal(t, "SKCM", res.Groups[0].Group)
	assert.Equal(t, 13, res.Groups[0].N)
	assert.Nil(t, res.ICI)

	require.NotNil(t, res.Response)
	assert.Equal(t, 24, res.Response.NPre)
	assert.Equal(t, 12, res.Response.Responders)

	assert.Contains(t, res.ValueColumns, "immune_proxy")
	assert.Len(t, res.GeneValues("HK2"), 25)

	md := res.Document(s).Markdown()
	assert.Contains(t, md, "Score: 0.40*HK2 + 0.30*BCL2L1 + 0.30*TSPO (zscore)")
	assert.Contains(t, md, "[RESPONSE]")
}

func TestScoreCohortNormalizesCompleteCases(t *testing.T) {
	nan := math.NaN()
	raw := [][]float64{{1, 2, 3, nan}, {10, 20, 30, 40}}
	score, deg := scoreCohort(raw, []string{"A", "B"}, []float64{0.5, 0.5}, normalize.Rank)
	assert.Empty(t, deg)
	assert.True(t, math.IsNaN(score[3]))
	// ranks over the three complete samples: 1/3, 2/3, 1
	assert.InDelta(t, 1.0/3, score[0], 1e-12)
	assert.InDelta(t, 1.0, score[2], 1e-12)
}
