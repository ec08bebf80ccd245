// Package pipeline runs one cohort end to end: sample alignment, gene extraction,
// normalization and compositing, stratification, batch correlation and summaries.
// Run does no I/O; inputs arrive as parsed tables plus a loaded strata table,
// and outputs are returned.
package pipeline

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/align"
	"github.com/KaramelBytes/tgjs-cli/internal/config"
	"github.com/KaramelBytes/tgjs-cli/internal/correlate"
	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/genes"
	"github.com/KaramelBytes/tgjs-cli/internal/normalize"
	"github.com/KaramelBytes/tgjs-cli/internal/report"
	"github.com/KaramelBytes/tgjs-cli/internal/response"
	"github.com/KaramelBytes/tgjs-cli/internal/strata"
	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"
)

// CohortStratum labels the unstratified correlation run.
const CohortStratum = "ALL"

// Input is one cohort's parsed tables.
type Input struct {
	Name       string
	Clinical   *dataset.ClinicalTable
	Expression *dataset.ExpressionMatrix
	// Strata is the decision table to classify with. When nil the settings'
	// preset is used; a custom strata file must be loaded by the caller.
	Strata *strata.DecisionTable
}

// MarkerSource records where a marker's values came from.
type MarkerSource struct {
	Marker string `json:"marker"`
	Source string `json:"source"` // clinical, signature, expression or missing
	Key    string `json:"key,omitempty"`
}

// Result is the outcome of one run. Samples are the aligned records in expression
// column order, with Score and Stratum set; the input tables are not modified.
type Result struct {
	Name       string
	Samples    []*dataset.SampleRecord
	Strata     []string
	Alignment  align.Resolution
	Genes      []genes.Hit
	Degenerate []normalize.Degenerate
	Markers    []MarkerSource
	Results    []correlate.Result
	Cohort     []correlate.Result
	Summary    report.Summary
	Groups     []report.GroupSummary
	ICI        *report.ICICheck
	Response   *response.Report
	Warnings   []string

	// ValueColumns are the numeric sample attributes worth persisting with the sample table.
	ValueColumns []string
	geneValues   map[string][]float64
}

// Run scores one cohort. Alignment and gene resolution failures abort the run;
// degenerate normalizations, missing markers and thin strata are reported as warnings.
func Run(in Input, s *config.Settings, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if in.Clinical == nil || in.Expression == nil {
		return nil, fmt.Errorf("pipeline: clinical and expression tables are required")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	mode, _ := normalize.ParseMode(s.Normalization)
	corr, _ := correlate.ParseCorrection(s.Correction)
	table, err := decisionTable(in, s)
	if err != nil {
		return nil, err
	}
	log = log.WithField("cohort", in.Name)
	res := &Result{Name: in.Name, geneValues: map[string][]float64{}}

	records := make([]*dataset.SampleRecord, 0, in.Clinical.Len())
	for _, r := range in.Clinical.Records() {
		records = append(records, r.Clone())
	}
	if n := strata.FillMSI(records, s.MSIColumns); n > 0 {
		log.WithField("samples", n).Debug("derived MSI status from score columns")
	}

	// alignment
	cands := make([]align.Candidate, len(records))
	byID := make(map[string]*dataset.SampleRecord, len(records))
	for i, r := range records {
		cands[i] = align.Candidate{ID: r.SampleID, Aliases: r.AllAliases()}
		byID[r.SampleID] = r
	}
	idMap, resolution, err := align.Resolve(in.Expression.Columns, cands, align.Options{Threshold: s.AlignmentThreshold})
	res.Alignment = resolution
	if err != nil {
		log.WithError(err).Error("sample alignment failed")
		return nil, err
	}
	var cols []int
	for j, label := range in.Expression.Columns {
		id, ok := idMap.Lookup(label)
		if !ok {
			continue
		}
		cols = append(cols, j)
		res.Samples = append(res.Samples, byID[id])
	}
	log.WithFields(logrus.Fields{
		"strategy": resolution.Strategy,
		"coverage": fmt.Sprintf("%.2f", resolution.Coverage),
		"matched":  resolution.Matched,
		"total":    resolution.Total,
	}).Info("aligned samples")
	for _, w := range resolution.Warnings {
		log.Warn(w)
	}
	res.Warnings = append(res.Warnings, resolution.Warnings...)
	n := len(res.Samples)

	// score genes
	symbols := s.Symbols()
	hits, err := genes.Extract(in.Expression, symbols)
	if err != nil {
		log.WithError(err).Error("gene resolution failed")
		return nil, err
	}
	res.Genes = hits
	raw := make([][]float64, len(hits))
	for k, h := range hits {
		raw[k] = in.Expression.Subset(h.Row, cols)
		res.geneValues[h.Symbol] = raw[k]
		log.WithFields(logrus.Fields{"gene": h.Symbol, "key": h.Key, "method": h.Method}).Debug("resolved score gene")
	}

	score, degenerate := scoreCohort(raw, symbols, s.Weights(), mode)
	res.Degenerate = degenerate
	for _, d := range degenerate {
		log.WithFields(logrus.Fields{"gene": d.Gene, "mode": d.Mode}).Warn("degenerate normalization")
		res.Warnings = append(res.Warnings, d.String())
	}
	scored := 0
	for i, r := range res.Samples {
		r.Score = null.Float{}
		if !math.IsNaN(score[i]) {
			r.Score = null.FloatFrom(score[i])
			scored++
		}
	}
	if missing := n - scored; missing > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d of %d aligned samples have no composite score (missing score gene values)", missing, n))
	}

	// strata
	labels := make([]string, n)
	count := map[string]int{}
	for i, r := range res.Samples {
		r.Stratum = table.ClassifyRecord(r)
		labels[i] = r.Stratum
		if r.Score.Valid {
			count[r.Stratum]++
		}
	}
	for _, l := range table.Labels() {
		if count[l] > 0 {
			res.Strata = append(res.Strata, l)
		}
	}
	if u := count[strata.Unknown]; u > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d scored samples in stratum %q excluded from stratified tests", u, strata.Unknown))
	}
	log.WithFields(logrus.Fields{"strata": strings.Join(res.Strata, ","), "unknown": count[strata.Unknown]}).Info("stratified samples")

	// markers
	markers, sources, sigs := sourceMarkers(res.Samples, in.Expression, cols, s)
	res.Markers = sources
	for _, src := range sources {
		if src.Source == SourceMissing {
			msg := fmt.Sprintf("marker %s not found in clinical columns, signatures or expression rows", src.Marker)
			log.WithField("marker", src.Marker).Warn("marker not found")
			res.Warnings = append(res.Warnings, msg)
		}
	}

	opt := correlate.Options{MinSamples: s.MinSamples, Alpha: s.Alpha, Correction: corr}
	res.Results = correlate.Run(score, labels, res.Strata, markers, opt)
	for _, r := range res.Results {
		if r.SignificantCorrected {
			log.WithFields(logrus.Fields{"stratum": r.Stratum, "marker": r.Marker, "rho": r.Rho.Float64, "p_corrected": r.PCorrected}).Info("significant correlation")
		}
	}
	all := make([]string, n)
	for i := range all {
		all[i] = CohortStratum
	}
	opt.Trend = true
	res.Cohort = correlate.Run(score, all, []string{CohortStratum}, markers, opt)

	if s.GroupBy != "" {
		res.Groups = report.GroupSummaries(res.Samples, s.GroupBy, res.geneValues, symbols)
		res.ICI = report.CheckICI(res.Groups)
		if len(res.Groups) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("no scored samples carry covariate %q", s.GroupBy))
		}
	}
	if s.ResponseAnalysis {
		res.Response = response.Analyze(responseSamples(res.Samples))
		for _, w := range res.Response.Warnings {
			res.Warnings = append(res.Warnings, "response: "+w)
		}
	}

	res.Summary = report.Summarize(res.Samples, res.Strata, table.Describe, res.Results)

	// persistable per-sample values: raw score genes, then emitted signatures
	for k, h := range hits {
		for i, r := range res.Samples {
			r.SetValue(h.Symbol, raw[k][i])
		}
		res.ValueColumns = append(res.ValueColumns, h.Symbol)
	}
	for _, name := range sigs.Names {
		for i, r := range res.Samples {
			r.SetValue(name, sigs.Values[name][i])
		}
		res.ValueColumns = append(res.ValueColumns, name)
	}
	log.WithFields(logrus.Fields{"scored": scored, "significant": len(res.Summary.Significant)}).Info("run complete")
	return res, nil
}

// scoreCohort normalizes each gene over the complete-case samples (every score gene
// present) and blends them. Other samples get NaN.
func decisionTable(in Input, s *config.Settings) (*strata.DecisionTable, error) {
	if in.Strata != nil {
		return in.Strata, nil
	}
	if s.CustomStrata != "" {
		return nil, fmt.Errorf("pipeline: custom strata %s not loaded; pass it as Input.Strata", s.CustomStrata)
	}
	return s.DecisionTable()
}

func scoreCohort(raw [][]float64, symbols []string, weights []float64, mode normalize.Mode) ([]float64, []normalize.Degenerate) {
	n := 0
	if len(raw) > 0 {
		n = len(raw[0])
	}
	var complete []int
	for i := 0; i < n; i++ {
		ok := true
		for _, v := range raw {
			if math.IsNaN(v[i]) {
				ok = false
				break
			}
		}
		if ok {
			complete = append(complete, i)
		}
	}
	var degenerate []normalize.Degenerate
	normed := make([][]float64, len(raw))
	for k, v := range raw {
		sub := make([]float64, len(complete))
		for j, i := range complete {
			sub[j] = v[i]
		}
		out, deg := normalize.Normalize(sub, mode)
		if deg {
			degenerate = append(degenerate, normalize.Degenerate{Gene: symbols[k], Mode: mode})
		}
		full := make([]float64, n)
		for i := range full {
			full[i] = math.NaN()
		}
		for j, i := range complete {
			full[i] = out[j]
		}
		normed[k] = full
	}
	score, err := normalize.Composite(normed, weights)
	if err != nil {
		score = make([]float64, n)
		for i := range score {
			score[i] = math.NaN()
		}
	}
	return score, degenerate
}

// responseSamples adapts aligned records for the response tests.
func responseSamples(samples []*dataset.SampleRecord) []response.Sample {
	out := make([]response.Sample, 0, len(samples))
	for _, r := range samples {
		patient := r.Patient
		if patient == "" {
			patient = response.PatientFromTitle(r.Title)
		}
		score := math.NaN()
		if r.Score.Valid {
			score = r.Score.Float64
		}
		out = append(out, response.Sample{ID: r.SampleID, Patient: patient, Visit: r.Visit, Response: r.Response, Score: score})
	}
	return out
}
