package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/KaramelBytes/tgjs-cli/internal/align"
	"github.com/KaramelBytes/tgjs-cli/internal/correlate"
	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/response"
	"github.com/KaramelBytes/tgjs-cli/internal/utils"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

type resultRow struct {
	Stratum              string `csv:"stratum"`
	Marker               string `csv:"marker"`
	Rho                  string `csv:"rho"`
	PRaw                 string `csv:"p_raw"`
	PCorrected           string `csv:"p_corrected"`
	N                    int    `csv:"n"`
	SignificantRaw       bool   `csv:"significant_raw"`
	SignificantCorrected bool   `csv:"significant_corrected"`
	Insufficient         bool   `csv:"insufficient"`
}

type cohortRow struct {
	Stratum      string `csv:"stratum"`
	Marker       string `csv:"marker"`
	Rho          string `csv:"rho"`
	PRaw         string `csv:"p_raw"`
	PCorrected   string `csv:"p_corrected"`
	N            int    `csv:"n"`
	Significant  bool   `csv:"significant_corrected"`
	Insufficient bool   `csv:"insufficient"`
	Slope        string `csv:"slope"`
	Intercept    string `csv:"intercept"`
	R2           string `csv:"r2"`
}

type groupRow struct {
	Group   string `csv:"group"`
	N       int    `csv:"n"`
	Mean    string `csv:"mean_score"`
	Median  string `csv:"median_score"`
	SD      string `csv:"sd_score"`
	ICIRate string `csv:"ici_response_rate"`
}

func num(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }

func nullNum(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return num(f.Float64)
}

func toRow(r correlate.Result) resultRow {
	return resultRow{
		Stratum:              r.Stratum,
		Marker:               r.Marker,
		Rho:                  nullNum(r.Rho),
		PRaw:                 num(r.PRaw),
		PCorrected:           num(r.PCorrected),
		N:                    r.N,
		SignificantRaw:       r.SignificantRaw,
		SignificantCorrected: r.SignificantCorrected,
		Insufficient:         r.Insufficient,
	}
}

// WriteResultsCSV writes the tidy correlation table sorted by stratum then marker.
// rho is left empty when undefined.
func WriteResultsCSV(w io.Writer, results []correlate.Result) error {
	rows := make([]resultRow, 0, len(results))
	for _, r := range Sorted(results) {
		rows = append(rows, toRow(r))
	}
	return gocsv.Marshal(rows, w)
}

// WriteCohortCSV writes unstratified results with their OLS trend columns, in input order.
func WriteCohortCSV(w io.Writer, results []correlate.Result) error {
	rows := make([]cohortRow, 0, len(results))
	for _, r := range results {
		base := toRow(r)
		row := cohortRow{
			Stratum:      base.Stratum,
			Marker:       base.Marker,
			Rho:          base.Rho,
			PRaw:         base.PRaw,
			PCorrected:   base.PCorrected,
			N:            base.N,
			Significant:  base.SignificantCorrected,
			Insufficient: base.Insufficient,
		}
		if r.Trend != nil {
			row.Slope, row.Intercept, row.R2 = num(r.Trend.Slope), num(r.Trend.Intercept), num(r.Trend.R2)
		}
		rows = append(rows, row)
	}
	return gocsv.Marshal(rows, w)
}

// WriteGroupsCSV writes group summaries in the order given.
func WriteGroupsCSV(w io.Writer, groups []GroupSummary) error {
	rows := make([]groupRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, groupRow{
			Group: g.Group, N: g.N,
			Mean: nullNum(g.Mean), Median: nullNum(g.Median), SD: nullNum(g.SD),
			ICIRate: nullNum(g.ICIRate),
		})
	}
	return gocsv.Marshal(rows, w)
}

var sampleColumns = []string{
	dataset.KeySampleID, dataset.KeyTitle, dataset.KeyPatient, dataset.KeyCancerType,
	dataset.KeyMSI, dataset.KeyTP53, dataset.KeyVisit, dataset.KeyResponse,
}

// WriteSamplesCSV writes the aligned and scored sample table. valueColumns name extra
// numeric attributes appended after score and stratum; missing values are empty.
func WriteSamplesCSV(w io.Writer, samples []*dataset.SampleRecord, valueColumns []string) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), sampleColumns...), "stratum", "score")
	header = append(header, valueColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range samples {
		row := make([]string, 0, len(header))
		for _, c := range sampleColumns {
			row = append(row, r.Covariate(c))
		}
		row = append(row, r.Stratum, nullNum(r.Score))
		for _, c := range valueColumns {
			if v, ok := r.Value(c); ok {
				row = append(row, num(v))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SummaryFile is the JSON document written as summary.json.
type SummaryFile struct {
	Summary   Summary          `json:"summary"`
	Alignment align.Resolution `json:"alignment"`
	ICI       *ICICheck        `json:"ici_check,omitempty"`
	Groups    []GroupSummary   `json:"groups,omitempty"`
	Response  *response.Report `json:"response,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// Bundle is everything persisted for one scored cohort.
type Bundle struct {
	Document     *Document
	Samples      []*dataset.SampleRecord
	ValueColumns []string
}

// WriteAll writes samples.csv, correlations.csv, cohort_correlations.csv, groups.csv
// (when grouped), summary.json and report.md into dir. It returns the written paths.
func WriteAll(dir string, b Bundle) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	d := b.Document
	var written []string
	put := func(name string, render func(io.Writer) error) error {
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		p := filepath.Join(dir, name)
		if err := utils.WriteAtomic(p, buf.Bytes()); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, p)
		return nil
	}
	if err := put("samples.csv", func(w io.Writer) error { return WriteSamplesCSV(w, b.Samples, b.ValueColumns) }); err != nil {
		return written, err
	}
	if err := put("correlations.csv", func(w io.Writer) error { return WriteResultsCSV(w, d.Results) }); err != nil {
		return written, err
	}
	if len(d.Cohort) > 0 {
		if err := put("cohort_correlations.csv", func(w io.Writer) error { return WriteCohortCSV(w, d.Cohort) }); err != nil {
			return written, err
		}
	}
	if len(d.Groups) > 0 {
		if err := put("groups.csv", func(w io.Writer) error { return WriteGroupsCSV(w, d.Groups) }); err != nil {
			return written, err
		}
	}
	sf := SummaryFile{Summary: d.Summary, Alignment: d.Alignment, ICI: d.ICI, Groups: d.Groups, Response: d.Response, Warnings: d.Warnings}
	if err := put("summary.json", func(w io.Writer) error {
		data, err := utils.MarshalJSON(sf)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}); err != nil {
		return written, err
	}
	if err := put("report.md", func(w io.Writer) error {
		_, err := io.WriteString(w, d.Markdown())
		return err
	}); err != nil {
		return written, err
	}
	return written, nil
}
