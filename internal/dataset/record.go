package dataset

import (
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Well-known covariate names accepted by SampleRecord.Covariate.
const (
	KeySampleID   = "sample_id"
	KeyTitle      = "title"
	KeyPatient    = "patient"
	KeyCancerType = "cancer_type"
	KeyMSI        = "msi_status"
	KeyTP53       = "tp53_status"
	KeyVisit      = "visit"
	KeyResponse   = "response"
)

// SampleRecord is one biological sample. Known covariates are typed fields;
// every other column is kept in Covariates (raw text) and, when numeric, in Values.
type SampleRecord struct {
	SampleID   string
	Title      string
	Aliases    []string
	Patient    string
	CancerType string
	MSIStatus  string
	TP53Status string
	Visit      string
	Response   string

	Covariates map[string]string
	Values     map[string]float64

	// Derived by the pipeline.
	Score   null.Float
	Stratum string
}

// Covariate returns a categorical value by name, checking known fields first.
// The empty string means missing.
func (r *SampleRecord) Covariate(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case KeySampleID:
		return r.SampleID
	case KeyTitle:
		return r.Title
	case KeyPatient, "patient_id":
		return r.Patient
	case KeyCancerType:
		return r.CancerType
	case KeyMSI, "msi":
		return r.MSIStatus
	case KeyTP53, "tp53":
		return r.TP53Status
	case KeyVisit:
		return r.Visit
	case KeyResponse:
		return r.Response
	}
	if v, ok := r.Covariates[name]; ok {
		return v
	}
	return ""
}

// Value returns a numeric attribute; ok is false when it is missing.
func (r *SampleRecord) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// SetValue stores a numeric attribute, dropping NaN so absence stays the only missing marker.
func (r *SampleRecord) SetValue(name string, v float64) {
	if v != v {
		delete(r.Values, name)
		return
	}
	if r.Values == nil {
		r.Values = make(map[string]float64)
	}
	r.Values[name] = v
}

// AllAliases returns the identifiers usable for resolution: sample id, title, then extra aliases.
func (r *SampleRecord) AllAliases() []string {
	out := []string{r.SampleID}
	if r.Title != "" {
		out = append(out, r.Title)
	}
	for _, a := range r.Aliases {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Clone returns a deep copy so derived fields can be written without touching the input table.
func (r *SampleRecord) Clone() *SampleRecord {
	c := *r
	c.Aliases = append([]string(nil), r.Aliases...)
	c.Covariates = make(map[string]string, len(r.Covariates))
	for k, v := range r.Covariates {
		c.Covariates[k] = v
	}
	c.Values = make(map[string]float64, len(r.Values))
	for k, v := range r.Values {
		c.Values[k] = v
	}
	return &c
}

// DuplicateSampleError reports a sample id occurring more than once in a table.
type DuplicateSampleError struct {
	SampleID string
	Rows     []int
}

func (e *DuplicateSampleError) Error() string {
	return fmt.Sprintf("duplicate sample_id %q (rows %v)", e.SampleID, e.Rows)
}

// ClinicalTable is an ordered set of samples keyed by unique sample id.
type ClinicalTable struct {
	records []*SampleRecord
	index   map[string]int
}

// NewClinicalTable validates id uniqueness and indexes the records. Row order is kept.
func NewClinicalTable(records []*SampleRecord) (*ClinicalTable, error) {
	t := &ClinicalTable{records: records, index: make(map[string]int, len(records))}
	for i, r := range records {
		if strings.TrimSpace(r.SampleID) == "" {
			return nil, fmt.Errorf("row %d: empty sample_id", i+1)
		}
		if j, ok := t.index[r.SampleID]; ok {
			return nil, &DuplicateSampleError{SampleID: r.SampleID, Rows: []int{j + 1, i + 1}}
		}
		t.index[r.SampleID] = i
	}
	return t, nil
}

// Len returns the number of samples.
func (t *ClinicalTable) Len() int { return len(t.records) }

// Records returns the samples in table order.
func (t *ClinicalTable) Records() []*SampleRecord { return t.records }

// Lookup returns the sample with the given canonical id.
func (t *ClinicalTable) Lookup(id string) (*SampleRecord, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return t.records[i], true
}

// IDs returns canonical ids in table order.
func (t *ClinicalTable) IDs() []string {
	out := make([]string, len(t.records))
	for i, r := range t.records {
		out[i] = r.SampleID
	}
	return out
}

// ColumnMap names the clinical table columns that feed the typed SampleRecord fields.
type ColumnMap struct {
	SampleID   string   `mapstructure:"sample_id" yaml:"sample_id"`
	Title      string   `mapstructure:"title" yaml:"title"`
	Aliases    []string `mapstructure:"aliases" yaml:"aliases"`
	Patient    string   `mapstructure:"patient" yaml:"patient"`
	CancerType string   `mapstructure:"cancer_type" yaml:"cancer_type"`
	MSI        string   `mapstructure:"msi" yaml:"msi"`
	TP53       string   `mapstructure:"tp53" yaml:"tp53"`
	Visit      string   `mapstructure:"visit" yaml:"visit"`
	Response   string   `mapstructure:"response" yaml:"response"`
}

// DefaultColumnMap returns the column names used by the bundled cohort exports.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		SampleID:   "sample_id",
		Title:      "title",
		Patient:    "patient_id",
		CancerType: "cancer_type",
		MSI:        "msi_status",
		TP53:       "tp53_status",
		Visit:      "visit",
		Response:   "response",
	}
}

// ClinicalFromTable converts a raw table into typed records. The sample id column
// is required; the others are optional and silently skipped when absent.
func ClinicalFromTable(t *Table, cm ColumnMap) (*ClinicalTable, error) {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[strings.ToLower(h)] = i
	}
	col := func(name string) int {
		if name == "" {
			return -1
		}
		if i, ok := idx[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}
	idCol := col(cm.SampleID)
	if idCol < 0 {
		return nil, fmt.Errorf("%s: sample id column %q not found (have: %s)", t.Name, cm.SampleID, strings.Join(t.Header, ", "))
	}
	typed := map[int]func(r *SampleRecord, v string){idCol: func(r *SampleRecord, v string) { r.SampleID = v }}
	bind := func(name string, set func(r *SampleRecord, v string)) {
		if i := col(name); i >= 0 && i != idCol {
			typed[i] = set
		}
	}
	bind(cm.Title, func(r *SampleRecord, v string) { r.Title = v })
	bind(cm.Patient, func(r *SampleRecord, v string) { r.Patient = v })
	bind(cm.CancerType, func(r *SampleRecord, v string) { r.CancerType = v })
	bind(cm.MSI, func(r *SampleRecord, v string) { r.MSIStatus = v })
	bind(cm.TP53, func(r *SampleRecord, v string) { r.TP53Status = v })
	bind(cm.Visit, func(r *SampleRecord, v string) { r.Visit = v })
	bind(cm.Response, func(r *SampleRecord, v string) { r.Response = v })
	aliasCols := map[int]bool{}
	for _, a := range cm.Aliases {
		if i := col(a); i >= 0 {
			aliasCols[i] = true
		}
	}

	records := make([]*SampleRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := &SampleRecord{Covariates: map[string]string{}, Values: map[string]float64{}}
		for i, h := range t.Header {
			if i >= len(row) {
				break
			}
			v := strings.TrimSpace(row[i])
			if aliasCols[i] && !IsMissing(v) {
				r.Aliases = append(r.Aliases, v)
			}
			if set, ok := typed[i]; ok {
				if !IsMissing(v) {
					set(r, v)
				}
				continue
			}
			if IsMissing(v) {
				continue
			}
			r.Covariates[h] = v
			if f, ok := ParseValue(v); ok {
				r.Values[h] = f
			}
		}
		records = append(records, r)
	}
	ct, err := NewClinicalTable(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}
	return ct, nil
}
