package pipeline

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/config"
	"github.com/KaramelBytes/tgjs-cli/internal/report"
)

// ScoreFormula renders the composite as "0.40*HK2 + 0.30*BCL2L1 + 0.30*TSPO".
func ScoreFormula(genes []config.ScoreGene) string {
	parts := make([]string, len(genes))
	for i, g := range genes {
		parts[i] = fmt.Sprintf("%.2f*%s", g.Weight, g.Symbol)
	}
	return strings.Join(parts, " + ")
}

// Document assembles the report document for a finished run.
func (r *Result) Document(s *config.Settings) *report.Document {
	return &report.Document{
		Title:         r.Name,
		Score:         ScoreFormula(s.ScoreGenes),
		Normalization: s.Normalization,
		Correction:    s.Correction,
		Alignment:     r.Alignment,
		Summary:       r.Summary,
		Results:       r.Results,
		Cohort:        r.Cohort,
		GroupBy:       s.GroupBy,
		Groups:        r.Groups,
		ICI:           r.ICI,
		Response:      r.Response,
		Warnings:      r.Warnings,
	}
}

// Bundle returns everything report.WriteAll persists for this run.
func (r *Result) Bundle(s *config.Settings) report.Bundle {
	return report.Bundle{Document: r.Document(s), Samples: r.Samples, ValueColumns: r.ValueColumns}
}
