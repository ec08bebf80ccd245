package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefaults(t *testing.T) *Settings {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	s, err := Load("")
	require.NoError(t, err)
	return s
}

func TestLoadDefaults(t *testing.T) {
	s := loadDefaults(t)
	assert.Equal(t, DefaultScoreGenes(), s.ScoreGenes)
	assert.Equal(t, "zscore", s.Normalization)
	assert.Equal(t, 10, s.MinSamples)
	assert.Equal(t, 0.05, s.Alpha)
	assert.Equal(t, "bonferroni", s.Correction)
	assert.Equal(t, "msi_tp53", s.Strata)
	assert.True(t, s.Signatures)
	assert.False(t, s.ResponseAnalysis)
	assert.Equal(t, 0.5, s.AlignmentThreshold)
	assert.Equal(t, "sample_id", s.Columns.SampleID)
	assert.Equal(t, "MSI_SCORE_MANTIS", s.MSIColumns.Mantis)
	assert.Len(t, s.Markers, 20)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".tgjs", "studies"), s.StudiesDir)
	require.NoError(t, s.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := filepath.Join(t.TempDir(), "tgjs.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
score_genes:
  - symbol: HK2
    weight: 0.5
  - symbol: TSPO
    weight: 0.5
normalization: rank
columns:
  sample_id: gsm
markers: [CD8A]
`), 0o644))
	t.Setenv("TGJS_MIN_SAMPLES", "12")
	t.Setenv("TGJS_COLUMNS_VISIT", "timepoint")

	s, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, []ScoreGene{{"HK2", 0.5}, {"TSPO", 0.5}}, s.ScoreGenes)
	assert.Equal(t, "rank", s.Normalization)
	assert.Equal(t, "gsm", s.Columns.SampleID)
	assert.Equal(t, "timepoint", s.Columns.Visit)
	assert.Equal(t, "title", s.Columns.Title)
	assert.Equal(t, []string{"CD8A"}, s.Markers)
	assert.Equal(t, 12, s.MinSamples)
	require.NoError(t, s.Validate())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	s := loadDefaults(t)
	s.Strata = "visit"
	s.GroupBy = "cancer_type"
	require.NoError(t, Save(s, ""))

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "visit", again.Strata)
	assert.Equal(t, "cancer_type", again.GroupBy)
	assert.Equal(t, s.ScoreGenes, again.ScoreGenes)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(s *Settings)
		field string
	}{
		{"weights sum to 0.9", func(s *Settings) { s.ScoreGenes[2].Weight = 0.2 }, "score_genes"},
		{"no genes", func(s *Settings) { s.ScoreGenes = nil }, "score_genes"},
		{"duplicate gene", func(s *Settings) { s.ScoreGenes[1].Symbol = "hk2" }, "score_genes"},
		{"negative weight", func(s *Settings) {
			s.ScoreGenes = []ScoreGene{{"HK2", 1.5}, {"TSPO", -0.5}}
		}, "score_genes"},
		{"normalization", func(s *Settings) { s.Normalization = "log" }, "normalization"},
		{"correction", func(s *Settings) { s.Correction = "holm" }, "correction"},
		{"strata", func(s *Settings) { s.Strata = "by_planet" }, "strata"},
		{"min samples", func(s *Settings) { s.MinSamples = 2 }, "min_samples"},
		{"alpha", func(s *Settings) { s.Alpha = 1 }, "alpha"},
		{"threshold", func(s *Settings) { s.AlignmentThreshold = 0 }, "alignment_threshold"},
		{"sample id column", func(s *Settings) { s.Columns.SampleID = " " }, "columns.sample_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := loadDefaults(t)
			tc.mut(s)
			err := s.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestValidateWeightTolerance(t *testing.T) {
	s := loadDefaults(t)
	s.ScoreGenes = []ScoreGene{{"HK2", 0.1}, {"BCL2L1", 0.2}, {"TSPO", 0.7}}
	assert.NoError(t, s.Validate())
	s.ScoreGenes[2].Weight = 0.7 + 1e-8
	assert.Error(t, s.Validate())
}

func TestDecisionTable(t *testing.T) {
	s := loadDefaults(t)
	d, err := s.DecisionTable()
	require.NoError(t, err)
	assert.Len(t, d.Labels(), 4)

	path := filepath.Join(t.TempDir(), "strata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: sex
axes:
  - covariate: sex
    categories:
      F: [female, f]
      M: [male, m]
strata:
  - {label: Female, when: [F]}
  - {label: Male, when: [M]}
`), 0o644))
	s.CustomStrata = path
	s.Strata = "ignored"
	require.NoError(t, s.Validate())
	d, err = s.DecisionTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"Female", "Male"}, d.Labels())
}

func TestDecisionTableCustomFileErrors(t *testing.T) {
	s := loadDefaults(t)
	s.CustomStrata = filepath.Join(t.TempDir(), "absent.yaml")
	// Validate stays off the filesystem
	require.NoError(t, s.Validate())
	_, err := s.DecisionTable()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "custom_strata", ve.Field)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("strata: [unclosed"), 0o644))
	s.CustomStrata = bad
	_, err = s.DecisionTable()
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "custom_strata", ve.Field)
	assert.Contains(t, ve.Problem, bad)
}

func TestSymbolsAndWeights(t *testing.T) {
	s := &Settings{ScoreGenes: DefaultScoreGenes()}
	assert.Equal(t, []string{"HK2", "BCL2L1", "TSPO"}, s.Symbols())
	assert.Equal(t, []float64{0.4, 0.3, 0.3}, s.Weights())
}
