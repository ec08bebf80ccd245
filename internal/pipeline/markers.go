package pipeline

import (
	"math"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/config"
	"github.com/KaramelBytes/tgjs-cli/internal/correlate"
	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/genes"
	"github.com/KaramelBytes/tgjs-cli/internal/signature"
)

// Marker sources.
const (
	SourceClinical   = "clinical"
	SourceSignature  = "signature"
	SourceExpression = "expression"
	SourceMissing    = "missing"
)

// sourceMarkers builds one vector per configured marker, aligned with samples. A
// clinical numeric column wins, then a derived signature, then an expression row.
// Unknown markers yield an all-missing vector so they surface as insufficient rows.
func sourceMarkers(samples []*dataset.SampleRecord, expr *dataset.ExpressionMatrix, cols []int, s *config.Settings) ([]correlate.Marker, []MarkerSource, signature.Result) {
	n := len(samples)
	var sigs signature.Result
	if s.Signatures {
		sigs = computeSignatures(expr, cols, n)
	}

	seen := map[string]bool{}
	var markers []correlate.Marker
	var sources []MarkerSource
	for _, name := range s.Markers {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if v, ok := clinicalVector(samples, name); ok {
			markers = append(markers, correlate.Marker{Name: name, Values: v})
			sources = append(sources, MarkerSource{Marker: name, Source: SourceClinical, Key: name})
			continue
		}
		if v, ok := sigs.Values[name]; ok {
			markers = append(markers, correlate.Marker{Name: name, Values: v})
			sources = append(sources, MarkerSource{Marker: name, Source: SourceSignature, Key: strings.Join(sigs.Used[name], "+")})
			continue
		}
		if h, ok := genes.Find(name, expr.RowKeys); ok {
			markers = append(markers, correlate.Marker{Name: name, Values: expr.Subset(h.Row, cols)})
			sources = append(sources, MarkerSource{Marker: name, Source: SourceExpression, Key: h.Key})
			continue
		}
		missing := make([]float64, n)
		for i := range missing {
			missing[i] = math.NaN()
		}
		markers = append(markers, correlate.Marker{Name: name, Values: missing})
		sources = append(sources, MarkerSource{Marker: name, Source: SourceMissing})
	}
	return markers, sources, sigs
}

// clinicalVector reads a numeric clinical attribute; ok is false when no sample has it.
func clinicalVector(samples []*dataset.SampleRecord, name string) ([]float64, bool) {
	out := make([]float64, len(samples))
	found := false
	for i, r := range samples {
		v, ok := r.Value(name)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
		found = true
	}
	return out, found
}

func computeSignatures(expr *dataset.ExpressionMatrix, cols []int, n int) signature.Result {
	vals := map[string][]float64{}
	for _, g := range signature.Genes(signature.DefaultSets) {
		if h, ok := genes.Find(g, expr.RowKeys); ok {
			vals[g] = expr.Subset(h.Row, cols)
		}
	}
	return signature.Compute(n, vals, signature.DefaultSets, signature.DefaultDifferences)
}

// GeneValues returns the raw expression of a score gene aligned with Samples.
func (r *Result) GeneValues(symbol string) []float64 {
	return r.geneValues[symbol]
}
