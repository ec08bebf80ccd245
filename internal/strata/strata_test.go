package strata

import (
	"math"
	"testing"

	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func covs(m map[string]string) func(string) string {
	return func(name string) string { return m[name] }
}

func TestMSITP53Preset(t *testing.T) {
	d, err := Preset("msi_tp53")
	require.NoError(t, err)
	cases := []struct {
		msi, tp53, want string
	}{
		{"MSS", "wildtype", "MSS_TP53wt"},
		{"msi-l", "mutant", "MSS_TP53mut"},
		{"MSI-H", "WT", "MSIH_TP53wt"},
		{" MSI-H ", "mutated", "MSIH_TP53mut"},
		{"UNKNOWN", "mutant", Unknown},
		{"", "wildtype", Unknown},
		{"MSS", "", Unknown},
		{"MSS", "somewhat", Unknown},
	}
	for _, c := range cases {
		got := d.Classify(covs(map[string]string{"msi_status": c.msi, "tp53_status": c.tp53}))
		assert.Equal(t, c.want, got, "%q/%q", c.msi, c.tp53)
	}
	assert.Equal(t, []string{"MSS_TP53wt", "MSS_TP53mut", "MSIH_TP53wt", "MSIH_TP53mut"}, d.Labels())
	assert.Equal(t, "MSI-H + TP53-mut", d.Describe("MSIH_TP53mut"))
	assert.Equal(t, Unknown, d.Describe(Unknown))
}

// Every combination of recognised, unrecognised and empty values yields exactly one label.
func TestClassifyIsTotal(t *testing.T) {
	values := []string{"", "MSS", "MSI-H", "mutant", "wildtype", "Pre", "On", "CR", "PD", "garbage", "NA", "\x00"}
	for _, name := range Presets() {
		d, err := Preset(name)
		require.NoError(t, err)
		allowed := map[string]bool{Unknown: true}
		for _, l := range d.Labels() {
			allowed[l] = true
		}
		for _, a := range values {
			for _, b := range values {
				got := d.Classify(func(n string) string {
					if n == d.Covariates()[0] {
						return a
					}
					return b
				})
				assert.True(t, allowed[got], "%s: %q/%q -> %q", name, a, b, got)
			}
		}
	}
}

func TestClassifyIsPure(t *testing.T) {
	d, err := Preset("visit_response")
	require.NoError(t, err)
	in := map[string]string{"visit": "On", "response": "PRCR"}
	first := d.Classify(covs(in))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, d.Classify(covs(in)))
	}
	assert.Equal(t, "On_Responder", first)
}

func TestNonePresetPutsEverythingInAll(t *testing.T) {
	d, err := Preset("none")
	require.NoError(t, err)
	assert.Equal(t, "ALL", d.Classify(covs(nil)))
}

func TestClassifyRecord(t *testing.T) {
	d, err := Preset("visit")
	require.NoError(t, err)
	assert.Equal(t, "Pre", d.ClassifyRecord(&dataset.SampleRecord{Visit: "pre"}))
	assert.Equal(t, Unknown, d.ClassifyRecord(&dataset.SampleRecord{}))
}

func TestUnknownPreset(t *testing.T) {
	_, err := Preset("tissue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "msi_tp53")
}

func TestParseCustomTable(t *testing.T) {
	d, err := Parse([]byte(`
name: subtype
axes:
  - covariate: cms
    categories:
      immune: [CMS1]
      other: [CMS2, CMS3, CMS4]
strata:
  - label: CMS1
    when: [immune]
  - label: CMS234
    description: canonical/metabolic/mesenchymal
    when: [other]
`))
	require.NoError(t, err)
	r := &dataset.SampleRecord{Covariates: map[string]string{"cms": "CMS3"}}
	assert.Equal(t, "CMS234", d.ClassifyRecord(r))
	r.Covariates["cms"] = "CMS5"
	assert.Equal(t, Unknown, d.ClassifyRecord(r))
}

func TestParseRejectsInvalidTables(t *testing.T) {
	bad := map[string]string{
		"unknown label": `
axes: [{covariate: a, categories: {x: [1]}}]
strata: [{label: unknown, when: [x]}]`,
		"arity": `
axes: [{covariate: a, categories: {x: [1]}}]
strata: [{label: S, when: [x, x]}]`,
		"undefined category": `
axes: [{covariate: a, categories: {x: [1]}}]
strata: [{label: S, when: [y]}]`,
		"overlapping values": `
axes: [{covariate: a, categories: {x: [1], y: ["1"]}}]
strata: [{label: S, when: [x]}]`,
		"duplicate combination": `
axes: [{covariate: a, categories: {x: [1]}}]
strata: [{label: S, when: [x]}, {label: T, when: [x]}]`,
		"no strata": `
axes: [{covariate: a, categories: {x: [1]}}]`,
	}
	for name, doc := range bad {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestUncompiledTableIsUnknown(t *testing.T) {
	d := &DecisionTable{Strata: []Stratum{{Label: "A"}}}
	assert.Equal(t, Unknown, d.Classify(covs(nil)))
}

func TestClassifyMSI(t *testing.T) {
	nan := math.NaN()
	cases := []struct {
		consensus      string
		mantis, sensor float64
		want           string
	}{
		{"MSI-H", nan, nan, MSIHigh},
		{"Instable MSI-H", nan, nan, MSIHigh},
		{"msi_l", 0.9, nan, MSIStable},
		{"", 0.41, nan, MSIHigh},
		{"", 0.4, 50, MSIStable},
		{"Indeterminate", nan, 10.5, MSIHigh},
		{"", nan, 10, MSIStable},
		{"", nan, nan, MSIUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyMSI(c.consensus, c.mantis, c.sensor), "%+v", c)
	}
}

func TestFillMSI(t *testing.T) {
	cols := DefaultMSIColumns()
	recs := []*dataset.SampleRecord{
		{SampleID: "a", MSIStatus: "MSS"},
		{SampleID: "b", Values: map[string]float64{cols.Mantis: 0.8}},
		{SampleID: "c"},
		{SampleID: "d", Covariates: map[string]string{cols.Consensus: "MSS"}},
	}
	assert.Equal(t, 2, FillMSI(recs, cols))
	assert.Equal(t, "MSS", recs[0].MSIStatus)
	assert.Equal(t, MSIHigh, recs[1].MSIStatus)
	assert.Equal(t, "", recs[2].MSIStatus)
	assert.Equal(t, MSIStable, recs[3].MSIStatus)
}
