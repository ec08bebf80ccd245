package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/align"
	"github.com/KaramelBytes/tgjs-cli/internal/correlate"
	"github.com/KaramelBytes/tgjs-cli/internal/response"
	"gopkg.in/guregu/null.v3"
)

// Document gathers everything rendered into the run report.
type Document struct {
	Title         string
	Score         string // human description of the composite, e.g. "0.40*HK2 + 0.30*BCL2L1"
	Normalization string
	Correction    string
	Alignment     align.Resolution
	Summary       Summary
	Results       []correlate.Result
	Cohort        []correlate.Result
	GroupBy       string
	Groups        []GroupSummary
	ICI           *ICICheck
	Response      *response.Report
	Warnings      []string
}

func fmtNull(f null.Float, verb string) string {
	if !f.Valid {
		return "NA"
	}
	return fmt.Sprintf(verb, f.Float64)
}

func fmtP(p float64) string {
	if p < 1e-4 {
		return fmt.Sprintf("%.2e", p)
	}
	return fmt.Sprintf("%.4f", p)
}

func stars(r correlate.Result) string {
	switch {
	case r.SignificantCorrected:
		return "**"
	case r.SignificantRaw:
		return "*"
	}
	return ""
}

// Markdown renders the report with one bracketed header per section.
func (d *Document) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN SUMMARY]\n")
	if d.Title != "" {
		b.WriteString(fmt.Sprintf("Cohort: %s\n", d.Title))
	}
	if d.Score != "" {
		b.WriteString(fmt.Sprintf("Score: %s (%s)\n", d.Score, d.Normalization))
	}
	s := d.Summary
	b.WriteString(fmt.Sprintf("Samples: %d aligned, %d scored, %d unknown stratum\n", s.TotalSamples, s.ScoredSamples, s.Unknown))
	b.WriteString(fmt.Sprintf("Score mean %s, sd %s\n", fmtNull(s.ScoreMean, "%.4f"), fmtNull(s.ScoreSD, "%.4f")))
	a := d.Alignment
	if a.Strategy != "" {
		b.WriteString(fmt.Sprintf("Alignment: %s (%d/%d, %.0f%%)\n", a.Strategy, a.Matched, a.Total, a.Coverage*100))
	}

	b.WriteString("\n[STRATA]\n")
	for _, st := range s.Strata {
		line := fmt.Sprintf("- %s: n=%d, mean %s, sd %s", st.Label, st.N, fmtNull(st.ScoreMean, "%.4f"), fmtNull(st.ScoreSD, "%.4f"))
		if st.Description != "" {
			line += fmt.Sprintf(" (%s)", st.Description)
		}
		b.WriteString(line + "\n")
	}

	if len(d.Results) > 0 {
		b.WriteString(fmt.Sprintf("\n[CORRELATIONS] correction: %s\n", d.Correction))
		writeResults(&b, Sorted(d.Results), false)
	}
	b.WriteString("\n[SIGNIFICANT]\n")
	if len(s.Significant) == 0 {
		b.WriteString("- none after correction\n")
	}
	for _, f := range s.Significant {
		b.WriteString(fmt.Sprintf("- %s / %s: rho=%.3f, p_corrected=%s, n=%d\n", f.Stratum, f.Marker, f.Rho, fmtP(f.PCorrected), f.N))
	}

	if len(d.Cohort) > 0 {
		b.WriteString("\n[COHORT CORRELATIONS]\n")
		writeResults(&b, d.Cohort, true)
	}

	if len(d.Groups) > 0 {
		b.WriteString(fmt.Sprintf("\n[GROUPS BY %s]\n", strings.ToUpper(d.GroupBy)))
		for _, g := range d.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d): mean %s, median %s, sd %s", g.Group, g.N,
				fmtNull(g.Mean, "%.4f"), fmtNull(g.Median, "%.4f"), fmtNull(g.SD, "%.4f")))
			if g.ICIRate.Valid {
				b.WriteString(fmt.Sprintf("; ICI rate %.0f%%", g.ICIRate.Float64*100))
			}
			if len(g.GeneMeans) > 0 {
				keys := make([]string, 0, len(g.GeneMeans))
				for k := range g.GeneMeans {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				parts := make([]string, 0, len(keys))
				for _, k := range keys {
					parts = append(parts, fmt.Sprintf("%s=%s", k, fmtNull(g.GeneMeans[k], "%.3g")))
				}
				b.WriteString("; " + strings.Join(parts, ", "))
			}
			b.WriteString("\n")
		}
		if d.ICI != nil {
			b.WriteString(fmt.Sprintf("ICI check over %d groups: rho=%s, p=%s, %s\n", d.ICI.Groups, fmtNull(d.ICI.Rho, "%.3f"), fmtP(d.ICI.P), d.ICI.Verdict))
		}
	}

	if d.Response != nil {
		writeResponse(&b, d.Response)
	}

	if len(d.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range d.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func writeResults(b *strings.Builder, results []correlate.Result, trend bool) {
	for _, r := range results {
		if r.Insufficient {
			b.WriteString(fmt.Sprintf("- %s / %s: insufficient data (n=%d)\n", r.Stratum, r.Marker, r.N))
			continue
		}
		b.WriteString(fmt.Sprintf("- %s / %s: rho=%s, p=%s, p_corrected=%s, n=%d%s", r.Stratum, r.Marker,
			fmtNull(r.Rho, "%.3f"), fmtP(r.PRaw), fmtP(r.PCorrected), r.N, stars(r)))
		if trend && r.Trend != nil {
			b.WriteString(fmt.Sprintf("; slope %.4g, R2 %.3f", r.Trend.Slope, r.Trend.R2))
		}
		b.WriteString("\n")
	}
}

func writeResponse(b *strings.Builder, r *response.Report) {
	b.WriteString("\n[RESPONSE]\n")
	b.WriteString(fmt.Sprintf("Pre-treatment samples: %d (%d responders, %d non-responders)\n", r.NPre, r.Responders, r.NonResponders))
	if r.NPre == 0 {
		return
	}
	keys := make([]string, 0, len(r.ResponseCounts))
	for k := range r.ResponseCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, r.ResponseCounts[k]))
	}
	b.WriteString("RECIST: " + strings.Join(parts, ", ") + "\n")
	b.WriteString(fmt.Sprintf("Mean score: responders %s, non-responders %s\n", fmtNull(r.MeanResponders, "%.4f"), fmtNull(r.MeanNonResponders, "%.4f")))
	if r.MannWhitneyP.Valid {
		b.WriteString(fmt.Sprintf("Mann-Whitney U=%.1f, p=%s\n", r.MannWhitneyU.Float64, fmtP(r.MannWhitneyP.Float64)))
	}
	b.WriteString(fmt.Sprintf("Logistic OR per unit score: %s\n", fmtNull(r.LogisticOR, "%.3f")))
	b.WriteString(fmt.Sprintf("Spearman vs RECIST: rho=%s (n=%d)\n", fmtNull(r.SpearmanRECIST, "%.3f"), r.SpearmanN))
	for _, t := range r.Tertiles {
		b.WriteString(fmt.Sprintf("- %s tertile: %d/%d responders (%s)\n", t.Label, t.Responders, t.N, fmtNull(t.Rate, "%.2f")))
	}
	if r.KruskalTertile.Valid {
		b.WriteString(fmt.Sprintf("Kruskal-Wallis across tertiles: p=%s\n", fmtP(r.KruskalTertile.Float64)))
	}
	ms := r.MedianSplit
	b.WriteString(fmt.Sprintf("Median split: high %d/%d, low %d/%d responders; Fisher p=%s\n",
		ms[0][0], ms[0][0]+ms[0][1], ms[1][0], ms[1][0]+ms[1][1], fmtNull(r.FisherP, "%.4f")))
	for _, p := range r.Paired {
		b.WriteString(fmt.Sprintf("- %s: %d paired, pre %s -> on %s\n", p.Group, p.Pairs, fmtNull(p.PreMean, "%.4f"), fmtNull(p.OnMean, "%.4f")))
	}
}
