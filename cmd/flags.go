package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/tgjs-cli/internal/config"
	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/pipeline"
	"github.com/KaramelBytes/tgjs-cli/internal/strata"
	"github.com/spf13/cobra"
)

// runFlags are the analysis overrides shared by score and run. A flag only
// replaces the configured value when it was set on the command line.
type runFlags struct {
	normalization string
	correction    string
	strata        string
	strataFile    string
	markers       string
	minSamples    int
	alpha         float64
	groupBy       string
	response      bool
	signatures    bool
}

func (f *runFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.normalization, "normalization", "", "per-gene normalization: zscore|minmax|rank")
	fl.StringVar(&f.correction, "correction", "", "multiple-testing correction: bonferroni|bh|none")
	fl.StringVar(&f.strata, "strata", "", "strata preset: msi_tp53|visit|visit_response|none")
	fl.StringVar(&f.strataFile, "strata-file", "", "YAML decision table (overrides --strata)")
	fl.StringVar(&f.markers, "markers", "", "comma-separated markers (clinical columns, signatures or genes)")
	fl.IntVar(&f.minSamples, "min-samples", 0, "minimum paired observations per test")
	fl.Float64Var(&f.alpha, "alpha", 0, "significance level")
	fl.StringVar(&f.groupBy, "group-by", "", "covariate for cohort group summaries (e.g. cancer_type)")
	fl.BoolVar(&f.response, "response", false, "run treatment-response tests on pre-treatment samples")
	fl.BoolVar(&f.signatures, "signatures", true, "derive immune and STING signatures as markers")
}

func (f *runFlags) apply(cmd *cobra.Command, s *cfgpkg.Settings) {
	fl := cmd.Flags()
	if fl.Changed("normalization") {
		s.Normalization = f.normalization
	}
	if fl.Changed("correction") {
		s.Correction = f.correction
	}
	if fl.Changed("strata") {
		s.Strata = f.strata
		s.CustomStrata = ""
	}
	if fl.Changed("strata-file") {
		s.CustomStrata = f.strataFile
	}
	if fl.Changed("markers") {
		s.Markers = splitList(f.markers)
	}
	if fl.Changed("min-samples") {
		s.MinSamples = f.minSamples
	}
	if fl.Changed("alpha") {
		s.Alpha = f.alpha
	}
	if fl.Changed("group-by") {
		s.GroupBy = f.groupBy
	}
	if fl.Changed("response") {
		s.ResponseAnalysis = f.response
	}
	if fl.Changed("signatures") {
		s.Signatures = f.signatures
	}
}

// settingsFor resolves config plus flag overrides, validates them and loads the
// strata decision table before any cohort table is read.
func (f *runFlags) settingsFor(cmd *cobra.Command) (*cfgpkg.Settings, *strata.DecisionTable, error) {
	s, err := currentSettings()
	if err != nil {
		return nil, nil, err
	}
	f.apply(cmd, s)
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	table, err := s.DecisionTable()
	if err != nil {
		return nil, nil, err
	}
	return s, table, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s", s)
}

// readInput loads a clinical table and an expression matrix.
func readInput(name, clinicalPath, exprPath string, opt dataset.ReadOptions, cm dataset.ColumnMap) (pipeline.Input, error) {
	clin, err := dataset.ReadTable(clinicalPath, opt)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("read clinical table: %w", err)
	}
	ct, err := dataset.ClinicalFromTable(clin, cm)
	if err != nil {
		return pipeline.Input{}, err
	}
	expr, err := dataset.ReadTable(exprPath, dataset.ReadOptions{})
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("read expression table: %w", err)
	}
	m, err := dataset.ExpressionFromTable(expr)
	if err != nil {
		return pipeline.Input{}, err
	}
	return pipeline.Input{Name: name, Clinical: ct, Expression: m}, nil
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Printf("⚠ %s\n", w)
	}
}
